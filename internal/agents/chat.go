package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/llm"
)

// DefaultChatMessage is sent when the caller gives no message.
const DefaultChatMessage = "Please review the recent changes in this pull request for code quality and potential issues."

const chatBotPrefix = "🤖 **AI Assistant:** "

// ChatOutcome is what a chat run produced.
type ChatOutcome struct {
	BotResponse string
	Metadata    map[string]interface{}
	Status      llm.Status
	Posted      bool
	Error       string
}

// ChatAgent answers a message about a pull request and posts the answer.
type ChatAgent struct {
	prs    PullRequests
	llm    llm.Completer
	model  string
	ref    PullRequestRef
	logger *zap.Logger
}

// NewChatAgent builds the chat agent. logger may be nil.
func NewChatAgent(prs PullRequests, completer llm.Completer, model string, ref PullRequestRef, logger *zap.Logger) *ChatAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatAgent{prs: prs, llm: completer, model: model, ref: ref, logger: logger}
}

// ChatContext renders the assistant context with optional extra facts.
func ChatContext(extra map[string]string) string {
	if len(extra) == 0 {
		return llm.GenericAssistantContext
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+extra[k])
	}
	return llm.GenericAssistantContext + " Additional context: " + strings.Join(parts, "; ")
}

// Interact sends message with the pull request's changed files as context.
func (a *ChatAgent) Interact(ctx context.Context, message string, extra map[string]string) llm.ChatResult {
	if strings.TrimSpace(message) == "" {
		message = DefaultChatMessage
	}
	facts := map[string]string{"pull_request": a.ref.String()}
	for k, v := range extra {
		facts[k] = v
	}
	if files, err := a.prs.ListFiles(ctx, a.ref.Repo, a.ref.Number); err != nil {
		a.logger.Warn("list pull request files", zap.String("pr", a.ref.String()), zap.Error(err))
	} else if len(files) > 0 {
		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, f.Filename)
		}
		facts["changed_files"] = strings.Join(names, ", ")
	}
	return a.llm.Chat(ctx, llm.ChatRequest{Model: a.model, UserMessage: message, Context: ChatContext(facts)})
}

// Run asks about the pull request and posts a successful, non-empty answer
// as a comment.
func (a *ChatAgent) Run(ctx context.Context, message string) ChatOutcome {
	res := a.Interact(ctx, message, nil)
	out := ChatOutcome{BotResponse: res.Response, Metadata: res.Metadata, Status: res.Status}
	if res.Failed() || strings.TrimSpace(res.Response) == "" {
		out.Error = "Failed to get a successful response from the chat completion API."
		if res.Response != "" {
			out.Error = fmt.Sprintf("%s %s", out.Error, res.Response)
		}
		a.logger.Warn("chat produced no answer", zap.String("pr", a.ref.String()), zap.String("error", out.Error))
		return out
	}
	if err := a.prs.CreateIssueComment(ctx, a.ref.Repo, a.ref.Number, chatBotPrefix+res.Response); err != nil {
		out.Error = collaboratorError("post chat comment", err).Error()
		a.logger.Error("post chat comment", zap.String("pr", a.ref.String()), zap.Error(err))
		return out
	}
	out.Posted = true
	return out
}
