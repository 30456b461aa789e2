package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/quizgen/internal/imagegen"
	"github.com/abhisek/quizgen/internal/imageprompt"
	"github.com/abhisek/quizgen/internal/reqctx"
	"github.com/abhisek/quizgen/internal/upload"
)

const maxBodyBytes = 1 << 20

type imageRequest struct {
	Provider string `json:"provider"`
	Prompt   string `json:"prompt"`
	Kind     string `json:"kind"`
	QuizID   string `json:"quiz_id"`
}

type imageResponse struct {
	URL     *string `json:"url"`
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
}

type batchRequest struct {
	Provider string   `json:"provider"`
	Prompts  []string `json:"prompts"`
	Kinds    []string `json:"kinds"`
	QuizID   string   `json:"quiz_id"`
}

type batchResponse struct {
	URLs         []*string      `json:"urls"`
	SuccessCount int            `json:"success_count"`
	FailureCount int            `json:"failure_count"`
	Errors       map[int]string `json:"errors"`
	UploadErrors map[int]string `json:"upload_errors"`
}

type draftRequest struct {
	Questions []imageprompt.Question `json:"questions"`
}

type draftResponse struct {
	Prompts []string `json:"prompts"`
	Kinds   []string `json:"kinds"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, msg string) {
	a.json(w, code, errorResponse{Error: kind, Message: msg})
}

// fail maps a request-level error to a status. Bad input is the caller's
// fault; anything else means a provider could not be brought up.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, imagegen.ErrInvalidArgument):
		a.error(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, imagegen.ErrUnknownProvider):
		a.error(w, http.StatusBadRequest, "unknown_provider", err.Error())
	default:
		a.Log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", reqctx.RequestID(r.Context())),
			zap.Error(err),
		)
		a.error(w, http.StatusServiceUnavailable, "unavailable", err.Error())
	}
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid payload: %v", err))
		return false
	}
	return true
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"status": "ok"})
}

// GenerateImage generates and stores one image. A generation or upload
// failure is still a 200: the body carries success=false and the reason.
func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !a.decode(w, r, &req) {
		return
	}
	provider, err := imagegen.ParseProvider(req.Provider)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	kind, err := imagegen.ParseImageKind(req.Kind)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := upload.ValidateQuizID(req.QuizID); err != nil {
		a.fail(w, r, err)
		return
	}

	ctx := reqctx.WithPurpose(r.Context(), req.QuizID)
	outcome, err := a.Images.Generate(ctx, provider, []string{req.Prompt}, []imagegen.ImageKind{kind}, nil)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	report, err := a.Uploader.Upload(context.WithoutCancel(ctx), req.QuizID, outcome, []imagegen.ImageKind{kind})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	resp := imageResponse{URL: report.URLs[0], Success: report.URLs[0] != nil}
	if msg, ok := report.GenerationErrors[0]; ok {
		resp.Error = msg
	} else if msg, ok := report.UploadErrors[0]; ok {
		resp.Error = "upload failed: " + msg
	}
	a.json(w, http.StatusOK, resp)
}

// GenerateBatch generates and stores a batch. Per-item failures are
// reported in the body, keyed by input index.
func (a *App) GenerateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !a.decode(w, r, &req) {
		return
	}
	provider, err := imagegen.ParseProvider(req.Provider)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	kinds := make([]imagegen.ImageKind, len(req.Kinds))
	for i, s := range req.Kinds {
		k, err := imagegen.ParseImageKind(s)
		if err != nil {
			a.fail(w, r, fmt.Errorf("kind %d: %w", i, err))
			return
		}
		kinds[i] = k
	}
	if err := upload.ValidateQuizID(req.QuizID); err != nil {
		a.fail(w, r, err)
		return
	}

	ctx := reqctx.WithPurpose(r.Context(), req.QuizID)
	outcome, err := a.Images.Generate(ctx, provider, req.Prompts, kinds, func(completed, total int) {
		a.Log.Debug("batch progress",
			zap.String("request_id", reqctx.RequestID(ctx)),
			zap.Int("completed", completed),
			zap.Int("total", total),
		)
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	// Images already paid for are stored even if the client went away.
	report, err := a.Uploader.Upload(context.WithoutCancel(ctx), req.QuizID, outcome, kinds)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.json(w, http.StatusOK, batchResponse{
		URLs:         report.URLs,
		SuccessCount: outcome.SuccessCount,
		FailureCount: outcome.FailureCount,
		Errors:       report.GenerationErrors,
		UploadErrors: report.UploadErrors,
	})
}

// DraftPrompts turns quiz questions into image prompts ready for the
// batch endpoint.
func (a *App) DraftPrompts(w http.ResponseWriter, r *http.Request) {
	if a.Drafter == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "prompt drafting is not configured")
		return
	}
	var req draftRequest
	if !a.decode(w, r, &req) {
		return
	}
	if len(req.Questions) == 0 {
		a.error(w, http.StatusBadRequest, "invalid_argument", "questions must not be empty")
		return
	}

	prompts, kinds, err := a.Drafter.DraftBatch(r.Context(), req.Questions)
	if err != nil {
		if errors.Is(err, imagegen.ErrInvalidArgument) {
			a.fail(w, r, err)
			return
		}
		a.Log.Warn("drafting failed", zap.Error(err))
		a.error(w, http.StatusBadGateway, "upstream", strings.TrimSpace(err.Error()))
		return
	}

	resp := draftResponse{Prompts: prompts, Kinds: make([]string, len(kinds))}
	for i, k := range kinds {
		resp.Kinds[i] = string(k)
	}
	a.json(w, http.StatusOK, resp)
}
