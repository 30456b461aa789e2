package imagegen

import (
	"fmt"
	"strings"
)

// ImageKind says which side of a quiz item an image illustrates. It selects
// the prompt phrasing and the storage bucket.
type ImageKind string

const (
	KindQuestion ImageKind = "question"
	KindAnswer   ImageKind = "answer"
)

// Bucket returns the blob bucket images of this kind are stored in.
func (k ImageKind) Bucket() string {
	return string(k) + "-images"
}

// ParseImageKind validates a kind supplied by a caller.
func ParseImageKind(s string) (ImageKind, error) {
	switch k := ImageKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindQuestion, KindAnswer:
		return k, nil
	default:
		return "", &InvalidArgumentError{Reason: fmt.Sprintf("unknown image kind %q", s)}
	}
}

// Provider identifies an upstream image generation backend.
type Provider string

const (
	// ProviderOpenAI is the fast provider: many requests in flight.
	ProviderOpenAI Provider = "openai"

	// ProviderImagen is the quota-constrained provider: effectively serial.
	ProviderImagen Provider = "imagen"

	// ProviderMock generates placeholder images offline.
	ProviderMock Provider = "mock"
)

// Providers lists every known provider in display order.
var Providers = []Provider{ProviderOpenAI, ProviderImagen, ProviderMock}

// ParseProvider validates a provider identifier supplied by a caller.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", &ConfigurationError{Provider: p}
}

// genericFailure is reported when a failure carries no usable description.
const genericFailure = "Generation failed"

// ImageResult is the outcome of generating one image. Failures are values:
// a Service never reports an upstream problem any other way.
type ImageResult struct {
	Payload []byte
	Success bool
	Error   string
}

// Succeeded builds a successful result. An empty payload is not a success.
func Succeeded(payload []byte) ImageResult {
	if len(payload) == 0 {
		return Failed("empty image payload")
	}
	return ImageResult{Payload: payload, Success: true}
}

// Failed builds a failed result with an empty payload.
func Failed(msg string) ImageResult {
	if strings.TrimSpace(msg) == "" {
		msg = genericFailure
	}
	return ImageResult{Payload: []byte{}, Error: msg}
}

// FailedErr builds a failed result from an error.
func FailedErr(err error) ImageResult {
	if err == nil {
		return Failed("")
	}
	return Failed(err.Error())
}

// normalize enforces the ImageResult invariants on values produced by
// arbitrary Service implementations.
func (r ImageResult) normalize() ImageResult {
	if r.Success {
		return Succeeded(r.Payload)
	}
	return Failed(r.Error)
}

// BatchOutcome aggregates the results of a batch in input order.
type BatchOutcome struct {
	Results      []ImageResult
	SuccessCount int
	FailureCount int
}

// newOutcome computes the counts for results.
func newOutcome(results []ImageResult) BatchOutcome {
	out := BatchOutcome{Results: results}
	for _, r := range results {
		if r.Success {
			out.SuccessCount++
		} else {
			out.FailureCount++
		}
	}
	return out
}

// ProgressFunc is told how many items have completed after each window.
type ProgressFunc func(completed, total int)
