package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/version"
)

// CompletionPath is appended to the configured base endpoint.
const CompletionPath = "/openai/v1/chat/completions"

const (
	defaultTimeout   = 60 * time.Second
	maxResponseBytes = 8 << 20
	maxLoggedBody    = 512
)

// ClientConfig carries the connection settings for the completion endpoint.
type ClientConfig struct {
	Endpoint    string
	APIKey      string
	Timeout     time.Duration
	ServiceName string
}

// MetricsRecorder receives one observation per completed call.
type MetricsRecorder interface {
	RecordLLMRequest(kind, outcome string, duration time.Duration)
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics attaches a request recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Client) { c.metrics = m }
}

// Client talks to an OpenAI-compatible chat-completion endpoint and always
// hands back a normalized result.
type Client struct {
	endpoint string
	apiKey   string
	service  string
	http     *http.Client
	logger   *zap.Logger
	metrics  MetricsRecorder
}

var _ Completer = (*Client)(nil)

// NewClient validates cfg and constructs a Client.
func NewClient(cfg ClientConfig, opts ...Option) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("llm: endpoint is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("llm: endpoint %q must be an absolute http(s) URL", endpoint)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm: api key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	service := cfg.ServiceName
	if service == "" {
		service = DefaultServiceName
	}

	c := &Client{
		endpoint: ResolveEndpoint(endpoint),
		apiKey:   cfg.APIKey,
		service:  service,
		http:     &http.Client{Timeout: timeout},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ResolveEndpoint appends CompletionPath to base exactly once.
func ResolveEndpoint(base string) string {
	endpoint := strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasSuffix(endpoint, CompletionPath) {
		return endpoint
	}
	return endpoint + CompletionPath
}

// Endpoint returns the resolved completion URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Infer runs a free-text completion.
func (c *Client) Infer(ctx context.Context, model string, messages []Message) TextResult {
	return c.Send(ctx, KindText, model, messages).(TextResult)
}

// Review asks for frontend code review feedback.
func (c *Client) Review(ctx context.Context, model string, req ReviewRequest) ReviewResult {
	return c.Send(ctx, KindReview, model, reviewMessages(req)).(ReviewResult)
}

// Chat runs a single-turn conversation.
func (c *Client) Chat(ctx context.Context, req ChatRequest) ChatResult {
	return c.Send(ctx, KindChat, req.Model, chatMessages(req)).(ChatResult)
}

// Send performs one POST and normalizes the reply into kind's result shape.
// Failures never escape as errors.
func (c *Client) Send(ctx context.Context, kind Kind, model string, messages []Message) Result {
	start := time.Now()
	res := c.send(ctx, kind, model, messages)
	outcome := "success"
	if res.Failed() {
		outcome = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordLLMRequest(string(kind), outcome, time.Since(start))
	}
	return res
}

func (c *Client) send(ctx context.Context, kind Kind, model string, messages []Message) Result {
	if len(messages) == 0 {
		return ErrorResult(kind, errors.New("at least one message is required"))
	}
	if strings.TrimSpace(model) == "" {
		return ErrorResult(kind, errors.New("model is required"))
	}

	payload, err := json.Marshal(completionRequest{Model: model, Messages: prepareMessages(kind, messages)})
	if err != nil {
		return ErrorResult(kind, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return ErrorResult(kind, fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("User-Agent", version.UserAgent())

	log := c.logger.With(zap.String("endpoint", c.endpoint), zap.String("model", model), zap.String("kind", string(kind)))
	log.Debug("sending chat completion", zap.Int("messages", len(messages)))

	start := time.Now()
	res, err := c.http.Do(httpReq)
	if err != nil {
		log.Warn("chat completion failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return ErrorResult(kind, &TransportError{Err: err})
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		log.Warn("read chat completion body", zap.Error(err))
		return ErrorResult(kind, &TransportError{Err: err})
	}

	log = log.With(zap.Int("status", res.StatusCode), zap.Duration("duration", time.Since(start)))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet := truncate(string(body), maxLoggedBody)
		log.Warn("chat completion rejected", zap.String("body", snippet))
		return ErrorResult(kind, &HTTPStatusError{StatusCode: res.StatusCode, Body: snippet})
	}
	log.Debug("chat completion received", zap.Int("bytes", len(body)))

	return Normalize(kind, body, c.service)
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
