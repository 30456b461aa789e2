package imagegen

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/abhisek/quizgen/internal/store"
)

// Service turns one prompt into one image. Implementations report every
// upstream problem (auth, quota, malformed response, network) as a failed
// ImageResult, so callers never handle per-item errors.
type Service interface {
	GenerateImage(ctx context.Context, prompt string, kind ImageKind) ImageResult

	// Name returns the provider identifier this service talks to.
	Name() string
}

// ServiceFactory builds the Service for a provider.
type ServiceFactory func(ctx context.Context, p Provider) (Service, error)

// NewService creates the Service for p from configuration. This is the
// only place that branches on provider identity.
func NewService(ctx context.Context, p Provider, cfg Config, log *zap.Logger) (Service, error) {
	if err := cfg.Validate(p); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.DownloadTimeout}

	switch p {
	case ProviderOpenAI:
		return NewOpenAIService(cfg.OpenAI, httpClient)
	case ProviderImagen:
		return NewImagenServiceFromConfig(ctx, cfg.Imagen, httpClient, log)
	case ProviderMock:
		return &MockService{Latency: cfg.MockLatency}, nil
	default:
		return nil, &ConfigurationError{Provider: p}
	}
}

// Factory returns a ServiceFactory that builds services from cfg and wraps
// each one with event logging.
func Factory(cfg Config, events store.EventRepo, log *zap.Logger) ServiceFactory {
	return func(ctx context.Context, p Provider) (Service, error) {
		svc, err := NewService(ctx, p, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("initializing %s image provider: %w", p, err)
		}
		return WithLogging(svc, events, log), nil
	}
}
