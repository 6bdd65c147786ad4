package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(t *testing.T, rt roundTripFunc, opts ...Option) *Client {
	t.Helper()
	opts = append(opts, WithHTTPClient(&http.Client{Transport: rt}))
	c, err := NewClient(ClientConfig{Endpoint: "https://api.example.com/", APIKey: "key"}, opts...)
	require.NoError(t, err)
	return c
}

func TestResolveEndpoint(t *testing.T) {
	cases := map[string]string{
		"https://api.example.com/":                            "https://api.example.com/openai/v1/chat/completions",
		"https://api.example.com":                             "https://api.example.com/openai/v1/chat/completions",
		"https://api.groq.com/openai/v1/chat/completions":     "https://api.groq.com/openai/v1/chat/completions",
		"https://api.groq.com/openai/v1/chat/completions/":    "https://api.groq.com/openai/v1/chat/completions",
		" http://localhost:8080/proxy//":                      "http://localhost:8080/proxy/openai/v1/chat/completions",
	}
	for in, want := range cases {
		require.Equal(t, want, ResolveEndpoint(in), in)
	}
}

func TestNewClientValidates(t *testing.T) {
	_, err := NewClient(ClientConfig{APIKey: "k"})
	require.Error(t, err)

	_, err = NewClient(ClientConfig{Endpoint: "api.example.com", APIKey: "k"})
	require.Error(t, err)

	_, err = NewClient(ClientConfig{Endpoint: "ftp://api.example.com", APIKey: "k"})
	require.Error(t, err)

	_, err = NewClient(ClientConfig{Endpoint: "https://api.example.com"})
	require.Error(t, err)

	c, err := NewClient(ClientConfig{Endpoint: "https://api.example.com", APIKey: "k"})
	require.NoError(t, err)
	require.Equal(t, defaultTimeout, c.http.Timeout)
	require.Equal(t, "https://api.example.com/openai/v1/chat/completions", c.Endpoint())
}

func TestInferSendsRequestAndParsesResponse(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "llama3-8b-8192", body.Model)
		require.Len(t, body.Messages, 2)
		require.Equal(t, RoleSystem, body.Messages[0].Role)
		require.True(t, strings.HasPrefix(body.Messages[0].Content, "Be brief."))
		require.Contains(t, body.Messages[0].Content, "expert in frontend development and DevOps")

		return jsonResponse(http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`), nil
	})

	msgs := []Message{{Role: RoleSystem, Content: "Be brief."}, {Role: RoleUser, Content: "hi"}}
	res := c.Infer(context.Background(), "llama3-8b-8192", msgs)
	require.Equal(t, TextResult{Content: "hello", Status: StatusSuccess}, res)
	require.Equal(t, "Be brief.", msgs[0].Content)
}

func TestInferSynthesizesSystemMessage(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		var body completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 2)
		require.Equal(t, RoleSystem, body.Messages[0].Role)
		require.Equal(t, Message{Role: RoleUser, Content: "hi"}, body.Messages[1])
		return jsonResponse(http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`), nil
	})

	res := c.Infer(context.Background(), "m", []Message{{Role: RoleUser, Content: "hi"}})
	require.Equal(t, "ok", res.Content)
}

func TestSendRejectsEmptyMessagesWithoutCalling(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(http.StatusOK, `{}`), nil
	})

	res := c.Infer(context.Background(), "m", nil)
	require.Equal(t, StatusError, res.Status)
	require.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestHTTPStatusErrorMessage(t *testing.T) {
	var err error = fmt.Errorf("send: %w", &HTTPStatusError{StatusCode: 502, Body: "bad gateway"})
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, 502, statusErr.StatusCode)
	require.Equal(t, "upstream returned HTTP 502: bad gateway", statusErr.Error())
	require.Equal(t, "upstream returned HTTP 404", (&HTTPStatusError{StatusCode: 404}).Error())

	res := ErrorResult(KindText, &HTTPStatusError{StatusCode: 500}).(TextResult)
	require.Equal(t, TextResult{Content: "Error: upstream returned HTTP 500", Status: StatusError}, res)
}

func TestServerErrorBecomesErrorResult(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, `{"error":"boom"}`), nil
	})

	res := c.Infer(context.Background(), "m", []Message{{Role: RoleUser, Content: "hi"}})
	require.Equal(t, StatusError, res.Status)
	require.Contains(t, res.Content, "HTTP 500")

	review := c.Review(context.Background(), "m", ReviewRequest{Code: "x"})
	require.True(t, review.Failed())
	require.Contains(t, review.Issues[0].Description, "HTTP 500")

	chat := c.Chat(context.Background(), ChatRequest{Model: "m", UserMessage: "hi"})
	require.True(t, chat.Failed())
	require.True(t, strings.HasPrefix(chat.Response, "Error: "))
}

func TestTransportFailureBecomesErrorResult(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	res := c.Infer(context.Background(), "m", []Message{{Role: RoleUser, Content: "hi"}})
	require.Equal(t, StatusError, res.Status)
	require.Contains(t, res.Content, "connection refused")
}

func TestTimeoutBecomesErrorResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := NewClient(ClientConfig{Endpoint: srv.URL, APIKey: "k", Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	res := c.Infer(context.Background(), "m", []Message{{Role: RoleUser, Content: "hi"}})
	require.Equal(t, StatusError, res.Status)
}

func TestReviewBuildsFrontendPrompt(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		var body completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 2)
		require.Contains(t, body.Messages[0].Content, "frontend code review expert")
		require.NotContains(t, body.Messages[0].Content, "You are an expert in frontend development")
		require.Contains(t, body.Messages[1].Content, "Review the following frontend code:\n\n```\nconst a = 1\n```")
		require.Contains(t, body.Messages[1].Content, "File: src/App.tsx")
		require.Contains(t, body.Messages[1].Content, "Language: tsx")
		return jsonResponse(http.StatusOK, `{"choices":[{"message":{"content":"Consider memoization."}}]}`), nil
	})

	res := c.Review(context.Background(), "m", ReviewRequest{Code: "const a = 1", FileName: "src/App.tsx", Language: "tsx"})
	require.False(t, res.Failed())
	require.Equal(t, "Consider memoization.", res.Issues[0].Description)
}

func TestChatReplacesGenericContext(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		var body completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Contains(t, body.Messages[0].Content, "specialized frontend DevOps assistant")
		require.Contains(t, body.Messages[0].Content, "Additional context: pr=7")
		require.NotContains(t, body.Messages[0].Content, GenericAssistantContext)
		require.Equal(t, "How do I cache npm?", body.Messages[1].Content)
		return jsonResponse(http.StatusOK, `{"model":"m","usage":{"total_tokens":3},"choices":[{"message":{"content":"Use actions/cache."}}]}`), nil
	})

	res := c.Chat(context.Background(), ChatRequest{
		Model:       "m",
		UserMessage: "How do I cache npm?",
		Context:     GenericAssistantContext + " Additional context: pr=7",
	})
	require.Equal(t, "Use actions/cache.", res.Response)
	require.Equal(t, "m", res.Metadata["model"])
}

func TestSendRecordsMetrics(t *testing.T) {
	rec := &recordingMetrics{}
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"choices":[]}`), nil
	}, WithMetrics(rec))

	c.Infer(context.Background(), "m", []Message{{Role: RoleUser, Content: "hi"}})
	require.Equal(t, []string{"text/error"}, rec.calls)
}

type recordingMetrics struct {
	calls []string
}

func (r *recordingMetrics) RecordLLMRequest(kind, outcome string, _ time.Duration) {
	r.calls = append(r.calls, kind+"/"+outcome)
}
