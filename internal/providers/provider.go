package providers

import (
	"context"
	"fmt"
	"time"
)

// Provider forwards an already-enforced chat completion payload to an
// external AI service. Whether and with what content a call happens is
// decided upstream; implementations only transport.
type Provider interface {
	// Name identifies the provider in audit records.
	Name() string

	// ChatCompletion forwards the payload and returns the provider's
	// response. The payload has already passed policy enforcement and may
	// contain masked content.
	ChatCompletion(ctx context.Context, payload map[string]interface{}) (*Response, error)
}

// Response is the provider's reply, passed back to the caller verbatim.
type Response struct {
	StatusCode int
	Body       map[string]interface{}
}

// Usage extracts token counts from an OpenAI-style usage block, returning
// ok=false when absent.
func (r *Response) Usage() (promptTokens, completionTokens int, ok bool) {
	usage, found := r.Body["usage"].(map[string]interface{})
	if !found {
		return 0, 0, false
	}
	in, inOK := asInt(usage["prompt_tokens"])
	out, outOK := asInt(usage["completion_tokens"])
	return in, out, inOK || outOK
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// Config holds transport settings shared by provider adapters.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Error is a typed provider failure, distinguishing retryable transport
// problems from terminal ones.
type Error struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s provider error [%s]: %s", e.Provider, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a provider error.
func NewError(provider, code, message string, statusCode int, retryable bool, err error) *Error {
	return &Error{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Err:        err,
	}
}
