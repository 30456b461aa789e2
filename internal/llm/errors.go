package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// RateLimitError indicates the provider throttled the request (429).
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("llm rate limit exceeded (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("llm rate limit exceeded: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// AuthError indicates the API key was rejected (401/403).
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("llm authentication failed: %v", e.Err) }

func (e *AuthError) Unwrap() error { return e.Err }

// SchemaError indicates a reply that is not valid JSON for the requested
// schema.
type SchemaError struct {
	Content json.RawMessage
	Err     error
}

func (e *SchemaError) Error() string { return fmt.Sprintf("llm reply failed validation: %v", e.Err) }

func (e *SchemaError) Unwrap() error { return e.Err }

// UnavailableError indicates the provider is down or unreachable.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return "llm provider unavailable"
	}
	return fmt.Sprintf("llm provider unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// TruncatedError indicates the reply hit MaxTokens.
type TruncatedError struct {
	Content json.RawMessage
}

func (e *TruncatedError) Error() string { return "llm reply truncated at max tokens" }

// classifyStatus maps an HTTP status from any provider SDK to a typed error.
func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &RateLimitError{Err: err}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{Err: err}
	default:
		return &UnavailableError{Err: err}
	}
}

// isPermanent reports errors that no retry can fix.
func isPermanent(err error) bool {
	var auth *AuthError
	var trunc *TruncatedError
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &auth) ||
		errors.As(err, &trunc)
}
