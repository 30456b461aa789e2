// Package reqctx carries request-scoped labels used by the event log.
package reqctx

import "context"

type key int

const (
	purposeKey key = iota
	requestIDKey
)

// WithPurpose attaches a purpose label (typically a quiz ID or the
// pipeline stage) to the context.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// Purpose extracts the purpose label from the context.
func Purpose(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// WithRequestID attaches the inbound request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the inbound request ID, or "" outside a request.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}
