package mock

import (
	"context"
	"sync"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/llm"
)

// Call captures one invocation made against the Completer.
type Call struct {
	Kind     llm.Kind
	Model    string
	Messages []llm.Message
	Review   llm.ReviewRequest
	Chat     llm.ChatRequest
}

// Completer is a test double implementing llm.Completer.
type Completer struct {
	InferFn  func(ctx context.Context, model string, messages []llm.Message) llm.TextResult
	ReviewFn func(ctx context.Context, model string, req llm.ReviewRequest) llm.ReviewResult
	ChatFn   func(ctx context.Context, req llm.ChatRequest) llm.ChatResult

	mu    sync.Mutex
	calls []Call
}

var _ llm.Completer = (*Completer)(nil)

func (c *Completer) Infer(ctx context.Context, model string, messages []llm.Message) llm.TextResult {
	c.record(Call{Kind: llm.KindText, Model: model, Messages: append([]llm.Message(nil), messages...)})
	if c.InferFn != nil {
		return c.InferFn(ctx, model, messages)
	}
	return llm.TextResult{Content: "mock", Status: llm.StatusSuccess}
}

func (c *Completer) Review(ctx context.Context, model string, req llm.ReviewRequest) llm.ReviewResult {
	c.record(Call{Kind: llm.KindReview, Model: model, Review: req})
	if c.ReviewFn != nil {
		return c.ReviewFn(ctx, model, req)
	}
	return llm.ReviewResult{
		Issues:         []llm.Issue{{Description: "mock", Severity: llm.SeverityInfo}},
		Suggestions:    []llm.Suggestion{{Description: "See above feedback", Priority: llm.PriorityMedium}},
		OverallQuality: llm.QualityNeedsReview,
		Status:         llm.StatusSuccess,
	}
}

func (c *Completer) Chat(ctx context.Context, req llm.ChatRequest) llm.ChatResult {
	c.record(Call{Kind: llm.KindChat, Model: req.Model, Chat: req})
	if c.ChatFn != nil {
		return c.ChatFn(ctx, req)
	}
	return llm.ChatResult{
		Response: "mock",
		Metadata: map[string]interface{}{"model": req.Model, "usage": map[string]interface{}{}},
		Status:   llm.StatusSuccess,
	}
}

// Calls returns a copy of the recorded invocations.
func (c *Completer) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

func (c *Completer) record(call Call) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}
