package imagegen

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/abhisek/quizgen/internal/reqctx"
	"github.com/abhisek/quizgen/internal/store"
)

// maxLoggedPrompt bounds the prompt text stored with each event.
const maxLoggedPrompt = 500

// LoggingService is a decorator that records every upstream attempt as an
// event and a structured log line.
type LoggingService struct {
	inner     Service
	eventRepo store.EventRepo
	log       *zap.Logger
}

// WithLogging wraps a Service with event logging. A nil repo disables event
// persistence; a nil logger disables log lines.
func WithLogging(s Service, repo store.EventRepo, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingService{inner: s, eventRepo: repo, log: log.Named("imagegen")}
}

func (l *LoggingService) GenerateImage(ctx context.Context, prompt string, kind ImageKind) ImageResult {
	start := time.Now()
	result := l.inner.GenerateImage(ctx, prompt, kind)
	latency := time.Since(start)

	fields := []zap.Field{
		zap.String("provider", l.inner.Name()),
		zap.String("request_id", reqctx.RequestID(ctx)),
		zap.String("kind", string(kind)),
		zap.String("purpose", reqctx.Purpose(ctx)),
		zap.Duration("latency", latency),
	}
	if result.Success {
		l.log.Debug("image generated", append(fields, zap.Int("bytes", len(result.Payload)))...)
	} else {
		l.log.Warn("image generation failed", append(fields, zap.String("error", result.Error))...)
	}

	if l.eventRepo == nil {
		return result
	}

	data := store.ImageRequestEventData{
		Provider:     l.inner.Name(),
		Kind:         string(kind),
		Purpose:      reqctx.Purpose(ctx),
		Prompt:       truncate(prompt, maxLoggedPrompt),
		PayloadBytes: len(result.Payload),
		LatencyMs:    latency.Milliseconds(),
		Success:      result.Success,
		ErrorMessage: result.Error,
	}

	// The event is bookkeeping; its failure never changes the result.
	if err := l.eventRepo.AppendImageRequest(context.WithoutCancel(ctx), data); err != nil {
		l.log.Warn("failed to record image request event", zap.Error(err))
	}

	return result
}

func (l *LoggingService) Name() string {
	return l.inner.Name()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
