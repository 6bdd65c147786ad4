// Package github is a small REST client for the pull-request operations the
// review and chat agents need.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/config"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/version"
)

// ErrNotFound is returned when the repository, pull request or file does not exist.
var ErrNotFound = errors.New("github: not found")

const (
	defaultAPIURL = "https://api.github.com"
	perPage       = 100
	maxPages      = 30
	maxBody       = 16 << 20
)

// PullRequest is the subset of pull-request metadata the agents use.
type PullRequest struct {
	Number  int
	Title   string
	HeadSHA string
	HeadRef string
}

// File is a changed file in a pull request.
type File struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch"`
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Client talks to the GitHub REST API with a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient validates cfg and builds a client.
func NewClient(cfg config.GitHubConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, &config.ValidationError{Field: "github.token", Reason: "is required"}
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if base == "" {
		base = defaultAPIURL
	}
	if u, err := url.Parse(base); err != nil || u.Host == "" {
		return nil, &config.ValidationError{Field: "github.api_url", Reason: fmt.Sprintf("must be an absolute URL, got %q", cfg.APIURL)}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:    base,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PullRequest fetches pull-request metadata.
func (c *Client) PullRequest(ctx context.Context, repo string, number int) (PullRequest, error) {
	var payload struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		Head   struct {
			SHA string `json:"sha"`
			Ref string `json:"ref"`
		} `json:"head"`
	}
	if err := c.get(ctx, fmt.Sprintf("/repos/%s/pulls/%d", repo, number), nil, &payload); err != nil {
		return PullRequest{}, fmt.Errorf("get pull request %s#%d: %w", repo, number, err)
	}
	return PullRequest{Number: payload.Number, Title: payload.Title, HeadSHA: payload.Head.SHA, HeadRef: payload.Head.Ref}, nil
}

// ListFiles returns every file changed by the pull request.
func (c *Client) ListFiles(ctx context.Context, repo string, number int) ([]File, error) {
	var all []File
	for page := 1; page <= maxPages; page++ {
		q := url.Values{}
		q.Set("per_page", fmt.Sprint(perPage))
		q.Set("page", fmt.Sprint(page))
		var batch []File
		if err := c.get(ctx, fmt.Sprintf("/repos/%s/pulls/%d/files", repo, number), q, &batch); err != nil {
			return nil, fmt.Errorf("list files of %s#%d: %w", repo, number, err)
		}
		all = append(all, batch...)
		if len(batch) < perPage {
			break
		}
	}
	return all, nil
}

// FileContent returns the decoded content of path at ref.
func (c *Client) FileContent(ctx context.Context, repo, path, ref string) (string, error) {
	var payload struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	q := url.Values{}
	if ref != "" {
		q.Set("ref", ref)
	}
	escaped := (&url.URL{Path: strings.TrimPrefix(path, "/")}).EscapedPath()
	if err := c.get(ctx, fmt.Sprintf("/repos/%s/contents/%s", repo, escaped), q, &payload); err != nil {
		return "", fmt.Errorf("get %s@%s: %w", path, ref, err)
	}
	if payload.Encoding != "base64" {
		return payload.Content, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(payload.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return string(raw), nil
}

// CreateIssueComment posts a comment on the pull request conversation.
func (c *Client) CreateIssueComment(ctx context.Context, repo string, number int, body string) error {
	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}
	endpoint := fmt.Sprintf("/repos/%s/issues/%d/comments", repo, number)
	if err := c.do(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(payload), nil); err != nil {
		return fmt.Errorf("comment on %s#%d: %w", repo, number, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, endpoint, q, nil, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, q url.Values, body io.Reader, out interface{}) error {
	target := c.baseURL + endpoint
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("github request",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: apiMessage(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}
