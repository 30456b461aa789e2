package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit    int       // max results (0 = unlimited)
	After    int64     // sequence > After
	From     time.Time // timestamp >= From
	Provider string    // exact provider match when set
}

// ImageRequestEventData captures a single upstream image generation attempt.
type ImageRequestEventData struct {
	Provider     string
	Kind         string
	Purpose      string
	Prompt       string
	PayloadBytes int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// ImageRequestEvent is a stored image attempt.
type ImageRequestEvent struct {
	ID        int64
	Sequence  int64
	Timestamp time.Time
	ImageRequestEventData
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// LLMRequestEvent is a stored LLM call.
type LLMRequestEvent struct {
	ID        int64
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// ProviderUsage aggregates image attempts for one provider.
type ProviderUsage struct {
	Provider     string
	Attempts     int
	Successes    int
	RateLimited  int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to request events.
type EventRepo interface {
	// AppendImageRequest records one upstream image generation attempt.
	AppendImageRequest(ctx context.Context, data ImageRequestEventData) error

	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryImageEvents returns image events, newest first.
	QueryImageEvents(ctx context.Context, opts QueryOpts) ([]ImageRequestEvent, error)

	// GetImageEvent returns one image event, or nil if it does not exist.
	GetImageEvent(ctx context.Context, id int64) (*ImageRequestEvent, error)

	// QueryLLMEvents returns LLM events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// ImageUsageByProvider aggregates image attempts per provider.
	ImageUsageByProvider(ctx context.Context) ([]ProviderUsage, error)
}
