package imagegen

import (
	"context"
	"fmt"
	"strings"
)

// Router is the public entry point for image generation. It validates
// requests, checks the provider, and hands the work to a BatchGenerator.
type Router struct {
	batch *BatchGenerator
}

// NewRouter creates a Router over batch.
func NewRouter(batch *BatchGenerator) *Router {
	return &Router{batch: batch}
}

// Generate validates the request and generates one image per prompt.
// Mismatched lengths, blank prompts, unknown kinds and unknown providers are
// rejected before any upstream call. An empty request returns an empty
// outcome without touching the provider.
func (r *Router) Generate(ctx context.Context, p Provider, prompts []string, kinds []ImageKind, onProgress ProgressFunc) (BatchOutcome, error) {
	if len(prompts) != len(kinds) {
		return BatchOutcome{}, &InvalidArgumentError{
			Reason: fmt.Sprintf("got %d prompts but %d kinds", len(prompts), len(kinds)),
		}
	}
	if len(prompts) == 0 {
		return newOutcome([]ImageResult{}), nil
	}

	for i := range prompts {
		if strings.TrimSpace(prompts[i]) == "" {
			return BatchOutcome{}, &InvalidArgumentError{Reason: fmt.Sprintf("prompt %d is empty", i)}
		}
		if kinds[i] != KindQuestion && kinds[i] != KindAnswer {
			return BatchOutcome{}, &InvalidArgumentError{Reason: fmt.Sprintf("prompt %d has unknown kind %q", i, kinds[i])}
		}
	}

	if _, err := r.batch.configs.Lookup(p); err != nil {
		return BatchOutcome{}, err
	}

	return r.batch.GenerateBatch(ctx, p, prompts, kinds, onProgress)
}

// GenerateOne generates a single image.
func (r *Router) GenerateOne(ctx context.Context, p Provider, prompt string, kind ImageKind) (ImageResult, error) {
	outcome, err := r.Generate(ctx, p, []string{prompt}, []ImageKind{kind}, nil)
	if err != nil {
		return ImageResult{}, err
	}
	return outcome.Results[0], nil
}
