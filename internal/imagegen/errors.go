package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	// ErrUnknownProvider matches any *ConfigurationError.
	ErrUnknownProvider = errors.New("unknown image provider")

	// ErrInvalidArgument matches any *InvalidArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ConfigurationError reports a provider identifier with no configuration.
type ConfigurationError struct {
	Provider Provider
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("unknown image provider: %q", e.Provider)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrUnknownProvider }

// InvalidArgumentError reports a request rejected before any upstream call.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}

func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// AuthError indicates rejected credentials (HTTP 401 or token exchange failure).
type AuthError struct {
	Provider Provider
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed (401): check API key or service account credentials: %s", e.Provider, transportDetail(e.Err))
}

func (e *AuthError) Unwrap() error { return e.Err }

// PermissionError indicates valid credentials lacking access (HTTP 403).
type PermissionError struct {
	Provider Provider
	Err      error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s permission denied (403): the account cannot use this model: %v", e.Provider, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// RateLimitError indicates the provider throttled the request (HTTP 429).
// Its text always contains "rate limit" so IsRetryable accepts it.
type RateLimitError struct {
	Provider Provider
	Err      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded (429): %v", e.Provider, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// BadRequestError indicates the provider rejected the request (HTTP 400).
type BadRequestError struct {
	Provider Provider
	Err      error
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("%s bad request (400): %v", e.Provider, e.Err)
}

func (e *BadRequestError) Unwrap() error { return e.Err }

// MalformedResponseError indicates a response without a usable image.
type MalformedResponseError struct {
	Provider Provider
	Fields   []string
	Reason   string
}

func (e *MalformedResponseError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s returned no image data: %s (available fields: %s)",
			e.Provider, e.Reason, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("%s returned no image data: %s", e.Provider, e.Reason)
}

// NetworkError indicates a transport failure talking to the provider or
// downloading a referenced image.
type NetworkError struct {
	Provider Provider
	Op       string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s failed: %s", e.Provider, e.Op, transportDetail(e.Err))
}

func (e *NetworkError) Unwrap() error { return e.Err }

// transportDetail describes err for a result text. Timeouts and
// cancellations get fixed wording: Go's own text ("context deadline
// exceeded", "Client.Timeout exceeded") would match the throttling markers.
func transportDetail(err error) string {
	var netErr net.Error
	switch {
	case err == nil:
		return "unknown error"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	default:
		return err.Error()
	}
}

// UpstreamError is any other non-success status.
type UpstreamError struct {
	Provider   Provider
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s image generation failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// classifyStatus maps an upstream HTTP status to a typed error.
func classifyStatus(p Provider, status int, detail error) error {
	switch status {
	case http.StatusUnauthorized:
		return &AuthError{Provider: p, Err: detail}
	case http.StatusForbidden:
		return &PermissionError{Provider: p, Err: detail}
	case http.StatusTooManyRequests:
		return &RateLimitError{Provider: p, Err: detail}
	case http.StatusBadRequest:
		return &BadRequestError{Provider: p, Err: detail}
	default:
		return &UpstreamError{Provider: p, StatusCode: status, Err: detail}
	}
}

// retryMarkers are the lower-case fragments that mark a failure as a
// throttling condition worth retrying.
var retryMarkers = []string{"429", "rate limit", "quota", "exceeded"}

// IsRetryable reports whether a failure text describes throttling. Only
// throttling is retried; every other failure is final.
func IsRetryable(errText string) bool {
	msg := strings.ToLower(errText)
	for _, m := range retryMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
