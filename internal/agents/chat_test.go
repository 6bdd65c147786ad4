package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/github"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/llm"
	llmmock "github.com/PhongLee1210/ai-agents-devop-team/internal/llm/mock"
)

func TestChatContext(t *testing.T) {
	require.Equal(t, "You are a helpful AI assistant.", ChatContext(nil))
	require.Equal(t, "You are a helpful AI assistant. Additional context: a: 1; b: 2",
		ChatContext(map[string]string{"b": "2", "a": "1"}))
}

func TestChatRunPostsAnswer(t *testing.T) {
	prs := &fakePRs{files: []github.File{{Filename: "src/App.tsx"}, {Filename: "package.json"}}}
	mock := &llmmock.Completer{
		ChatFn: func(_ context.Context, req llm.ChatRequest) llm.ChatResult {
			require.Equal(t, "chat-model", req.Model)
			require.Equal(t, DefaultChatMessage, req.UserMessage)
			require.Contains(t, req.Context, "changed_files: src/App.tsx, package.json")
			require.Contains(t, req.Context, "pull_request: acme/web#7")
			return llm.ChatResult{Response: "Looks good.", Metadata: map[string]interface{}{"model": "chat-model"}, Status: llm.StatusSuccess}
		},
	}

	out := NewChatAgent(prs, mock, "chat-model", testRef, nil).Run(context.Background(), "")
	require.True(t, out.Posted)
	require.Empty(t, out.Error)
	require.Equal(t, "Looks good.", out.BotResponse)
	require.Equal(t, llm.StatusSuccess, out.Status)
	require.Equal(t, []string{"🤖 **AI Assistant:** Looks good."}, prs.comments)
}

func TestChatRunSkipsPostingFailures(t *testing.T) {
	prs := &fakePRs{filesErr: errors.New("boom")}
	mock := &llmmock.Completer{
		ChatFn: func(_ context.Context, req llm.ChatRequest) llm.ChatResult {
			require.Equal(t, "why?", req.UserMessage)
			require.NotContains(t, req.Context, "changed_files")
			return llm.ErrorResult(llm.KindChat, errors.New("timeout")).(llm.ChatResult)
		},
	}

	out := NewChatAgent(prs, mock, "m", testRef, nil).Run(context.Background(), "why?")
	require.False(t, out.Posted)
	require.Contains(t, out.Error, "Failed to get a successful response")
	require.Empty(t, prs.comments)
}

func TestChatRunReportsCommentFailure(t *testing.T) {
	prs := &fakePRs{commentErr: errors.New("forbidden")}
	out := NewChatAgent(prs, &llmmock.Completer{}, "m", testRef, nil).Run(context.Background(), "hi")
	require.False(t, out.Posted)
	require.Contains(t, out.Error, "post chat comment")
	require.Equal(t, "mock", out.BotResponse)
}
