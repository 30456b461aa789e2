package imagegen

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchGenerator runs a list of image requests against one provider in
// fixed-size windows. Within a window all items run concurrently; the next
// window starts only after every item of the current one has finished,
// including its retries, and after the provider's inter-window delay.
type BatchGenerator struct {
	configs  ProviderConfigs
	services ServiceFactory
	log      *zap.Logger

	// sleep is swapped in tests to observe pacing without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewBatchGenerator creates a BatchGenerator. configs supplies the pacing
// tunables and services builds the per-provider Service.
func NewBatchGenerator(configs ProviderConfigs, services ServiceFactory, log *zap.Logger) *BatchGenerator {
	if log == nil {
		log = zap.NewNop()
	}
	return &BatchGenerator{
		configs:  configs,
		services: services,
		log:      log.Named("batch"),
		sleep:    sleepContext,
	}
}

// GenerateBatch generates one image per prompt. prompts and kinds must be
// the same length. Per-item failures are reported in the outcome; an error
// is returned only when the provider is unknown or its service cannot be
// built, and in that case no upstream call was made.
//
// If ctx ends mid-batch, items not yet attempted fail with the context's
// error and the partial outcome is still returned.
func (b *BatchGenerator) GenerateBatch(ctx context.Context, p Provider, prompts []string, kinds []ImageKind, onProgress ProgressFunc) (BatchOutcome, error) {
	if len(prompts) != len(kinds) {
		return BatchOutcome{}, &InvalidArgumentError{Reason: "prompts and kinds must be the same length"}
	}

	cfg, err := b.configs.Lookup(p)
	if err != nil {
		return BatchOutcome{}, err
	}

	total := len(prompts)
	if total == 0 {
		return newOutcome([]ImageResult{}), nil
	}

	svc, err := b.services(ctx, p)
	if err != nil {
		return BatchOutcome{}, err
	}

	window := cfg.MaxConcurrentRequests
	if window < 1 {
		window = 1
	}

	b.log.Info("starting batch",
		zap.String("provider", string(p)),
		zap.Int("items", total),
		zap.Int("window", window),
	)

	results := make([]ImageResult, total)
	completed := 0
	for start := 0; start < total; start += window {
		if err := ctx.Err(); err != nil {
			for i := start; i < total; i++ {
				results[i] = FailedErr(err)
			}
			b.log.Warn("batch interrupted", zap.Int("completed", completed), zap.Error(err))
			break
		}

		end := min(start+window, total)

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = b.generateWithRetry(ctx, svc, cfg, prompts[i], kinds[i])
				return nil
			})
		}
		_ = g.Wait()

		completed = end
		b.log.Debug("window complete", zap.Int("completed", completed), zap.Int("total", total))
		if onProgress != nil {
			onProgress(completed, total)
		}

		if end < total {
			// An interrupted delay is picked up by the ctx check above.
			_ = b.sleep(ctx, cfg.DelayBetweenBatches)
		}
	}

	outcome := newOutcome(results)
	b.log.Info("batch finished",
		zap.String("provider", string(p)),
		zap.Int("succeeded", outcome.SuccessCount),
		zap.Int("failed", outcome.FailureCount),
	)
	return outcome, nil
}

// generateWithRetry makes up to 1+MaxRetries attempts for one item.
// Only throttling failures are retried.
func (b *BatchGenerator) generateWithRetry(ctx context.Context, svc Service, cfg ProviderConfig, prompt string, kind ImageKind) ImageResult {
	var result ImageResult
	for attempt := 0; ; attempt++ {
		result = svc.GenerateImage(ctx, prompt, kind).normalize()
		if result.Success || !IsRetryable(result.Error) || attempt >= cfg.MaxRetries || ctx.Err() != nil {
			return result
		}

		b.log.Info("rate limited, retrying",
			zap.String("provider", svc.Name()),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", cfg.RetryDelay),
			zap.String("error", result.Error),
		)
		if err := b.sleep(ctx, cfg.RetryDelay); err != nil {
			return result
		}
	}
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
