// Package httpapi exposes image generation over HTTP.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/abhisek/quizgen/internal/imagegen"
	"github.com/abhisek/quizgen/internal/imageprompt"
	"github.com/abhisek/quizgen/internal/upload"
)

// App holds the dependencies shared by the handlers.
type App struct {
	Images   *imagegen.Router
	Uploader *upload.Uploader

	// Drafter is optional. Without it the drafts endpoint answers 503.
	Drafter *imageprompt.Drafter

	// BlobRoot, when set, is served read-only under /blobs/.
	BlobRoot string

	Log *zap.Logger
}

// NewRouter builds the HTTP handler for app.
func NewRouter(app *App) http.Handler {
	if app.Log == nil {
		app.Log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, propagateRequestID, requestLogger(app.Log), middleware.Recoverer)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/images", func(r chi.Router) {
		r.Post("/", app.GenerateImage)
		r.Post("/batch", app.GenerateBatch)
		r.Post("/drafts", app.DraftPrompts)
	})

	if app.BlobRoot != "" {
		r.Handle("/blobs/*", http.StripPrefix("/blobs/", http.FileServer(http.Dir(app.BlobRoot))))
	}

	return r
}
