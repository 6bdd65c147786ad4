package llm

import (
	"errors"
	"fmt"
)

// ErrUpstreamProtocol marks a response body that is not the expected chat-completion JSON.
var ErrUpstreamProtocol = errors.New("unexpected upstream response")

// HTTPStatusError is a non-2xx reply from the completion endpoint.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.StatusCode, e.Body)
}

// TransportError wraps network-level failures (timeouts, DNS, refused connections).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

func protocolError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUpstreamProtocol, fmt.Sprintf(format, args...))
}
