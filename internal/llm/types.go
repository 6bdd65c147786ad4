package llm

import "context"

// Role is the message role used in chat exchanges.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Kind selects the result shape a request is normalized into.
type Kind string

const (
	KindText   Kind = "text"
	KindReview Kind = "review"
	KindChat   Kind = "chat"
)

// Status marks whether a result carries upstream content or a safe default.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Severity of a review issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Priority of a review suggestion.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Quality is the overall verdict of a review.
type Quality string

const (
	QualityGood             Quality = "good"
	QualityNeedsImprovement Quality = "needs_improvement"
	QualityNeedsReview      Quality = "needs_review"
)

// Result is the normalized shape of one chat-completion call. It is implemented
// only by TextResult, ReviewResult and ChatResult.
type Result interface {
	Kind() Kind
	Failed() bool
	isResult()
}

// TextResult is a free-text completion.
type TextResult struct {
	Content string `json:"content"`
	Status  Status `json:"status"`
}

func (TextResult) Kind() Kind     { return KindText }
func (r TextResult) Failed() bool { return r.Status != StatusSuccess }
func (TextResult) isResult()      {}

// Issue is a single review finding.
type Issue struct {
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Suggestion is a single review recommendation.
type Suggestion struct {
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
}

// ReviewResult is code-review feedback.
type ReviewResult struct {
	Issues         []Issue      `json:"issues"`
	Suggestions    []Suggestion `json:"suggestions"`
	OverallQuality Quality      `json:"overall_quality"`
	Status         Status       `json:"status"`
}

func (ReviewResult) Kind() Kind     { return KindReview }
func (r ReviewResult) Failed() bool { return r.Status != StatusSuccess }
func (ReviewResult) isResult()      {}

// ChatResult is a conversational reply with upstream metadata.
type ChatResult struct {
	Response string                 `json:"response"`
	Metadata map[string]interface{} `json:"metadata"`
	Status   Status                 `json:"status"`
}

func (ChatResult) Kind() Kind     { return KindChat }
func (r ChatResult) Failed() bool { return r.Status != StatusSuccess }
func (ChatResult) isResult()      {}

// ReviewRequest carries the code under review.
type ReviewRequest struct {
	Code     string
	FileName string
	Language string
}

// ChatRequest is a single-turn chat exchange.
type ChatRequest struct {
	Model       string
	UserMessage string
	Context     string // system context; defaults to a generic assistant prompt
}

// Completer is the contract agents depend on. Implementations never return
// errors; failures come back as error-shaped results.
type Completer interface {
	Infer(ctx context.Context, model string, messages []Message) TextResult
	Review(ctx context.Context, model string, req ReviewRequest) ReviewResult
	Chat(ctx context.Context, req ChatRequest) ChatResult
}
