package pipeline

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/changes"
)

type changesRecord = changes.Record

var errExit = errors.New("exit status 1")

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}
