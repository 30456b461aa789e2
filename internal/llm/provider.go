package llm

import (
	"context"
	"encoding/json"
)

// Provider drafts structured text from a single-turn prompt.
type Provider interface {
	// Generate sends the request and returns JSON content. When the
	// request carries a Schema the content has been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request is one single-turn completion.
type Request struct {
	// Instructions is the system prompt.
	Instructions string

	// Prompt is the user message.
	Prompt string

	// Schema, when set, makes the provider use its native structured
	// output mode and validates the reply.
	Schema *Schema

	MaxTokens int

	// Temperature in [0, 1]. Zero leaves the provider default.
	Temperature float64
}

// Schema is a named JSON Schema the reply must conform to.
type Schema struct {
	// Name is kebab-case, e.g. "quiz-image-prompts".
	Name        string
	Description string
	Definition  map[string]any
}

// FinishReason says why the model stopped.
type FinishReason string

const (
	FinishStop   FinishReason = "stop"
	FinishLength FinishReason = "length"
)

// Response holds the model output.
type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string
	Finish  FinishReason
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns input plus output tokens.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }
