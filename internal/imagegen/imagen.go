package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ImagenService generates images with the Vertex AI Imagen predict endpoint.
// A failed primary call is retried once against the fallback model.
type ImagenService struct {
	tokens        TokenSource
	httpClient    *http.Client
	log           *zap.Logger
	baseURL       string
	projectID     string
	location      string
	model         string
	fallbackModel string
	aspectRatio   string
}

// NewImagenServiceFromConfig creates an Imagen service from cfg. A fixed
// AccessToken wins over the credentials file; otherwise the project defaults
// to the one named in the key.
func NewImagenServiceFromConfig(ctx context.Context, cfg ImagenConfig, httpClient *http.Client, log *zap.Logger) (*ImagenService, error) {
	if cfg.AccessToken != "" {
		return NewImagenService(cfg, StaticToken(cfg.AccessToken), httpClient, log)
	}

	tokens, err := NewGoogleTokenSource(cfg.CredentialsFile, httpClient)
	if err != nil {
		return nil, err
	}
	if cfg.ProjectID == "" {
		project, err := tokens.ProjectID(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving imagen project: %w", err)
		}
		cfg.ProjectID = project
	}
	return NewImagenService(cfg, tokens, httpClient, log)
}

// NewImagenService creates an Imagen service that authenticates with tokens.
func NewImagenService(cfg ImagenConfig, tokens TokenSource, httpClient *http.Client, log *zap.Logger) (*ImagenService, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("imagen project ID is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("imagen token source is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}

	defaults := DefaultConfig().Imagen
	location := orDefault(cfg.Location, defaults.Location)
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s-aiplatform.googleapis.com", location)
	}

	return &ImagenService{
		tokens:        tokens,
		httpClient:    httpClient,
		log:           log.Named("imagen"),
		baseURL:       strings.TrimRight(baseURL, "/"),
		projectID:     cfg.ProjectID,
		location:      location,
		model:         orDefault(cfg.Model, defaults.Model),
		fallbackModel: cfg.FallbackModel,
		aspectRatio:   orDefault(cfg.AspectRatio, defaults.AspectRatio),
	}, nil
}

func (s *ImagenService) Name() string { return string(ProviderImagen) }

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount       int    `json:"sampleCount"`
	AspectRatio       string `json:"aspectRatio"`
	SafetyFilterLevel string `json:"safetyFilterLevel"`
	PersonGeneration  string `json:"personGeneration"`
}

func (s *ImagenService) GenerateImage(ctx context.Context, prompt string, kind ImageKind) ImageResult {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return FailedErr(&AuthError{Provider: ProviderImagen, Err: err})
	}

	body, err := json.Marshal(predictRequest{
		Instances: []predictInstance{{Prompt: kindPrompt(prompt, kind)}},
		Parameters: predictParameters{
			SampleCount:       1,
			AspectRatio:       s.aspectRatio,
			SafetyFilterLevel: "block_some",
			PersonGeneration:  "dont_allow",
		},
	})
	if err != nil {
		return FailedErr(fmt.Errorf("encoding imagen request: %w", err))
	}

	raw, err := s.predict(ctx, token, s.model, body)
	if err != nil && s.shouldFallback(err) {
		s.log.Warn("primary model failed, trying fallback",
			zap.String("model", s.model),
			zap.String("fallback_model", s.fallbackModel),
			zap.Error(err),
		)
		fallbackRaw, fallbackErr := s.predict(ctx, token, s.fallbackModel, body)
		if fallbackErr == nil {
			raw, err = fallbackRaw, nil
		} else {
			s.log.Warn("fallback model failed", zap.String("model", s.fallbackModel), zap.Error(fallbackErr))
		}
	}
	if err != nil {
		return FailedErr(err)
	}

	payload, err := extractImagenPayload(raw)
	if err != nil {
		return FailedErr(err)
	}
	return Succeeded(payload)
}

// shouldFallback reports whether a primary failure is worth retrying on
// the fallback model. Credential failures hit every model alike.
func (s *ImagenService) shouldFallback(err error) bool {
	if s.fallbackModel == "" || s.fallbackModel == s.model {
		return false
	}
	var authErr *AuthError
	var permErr *PermissionError
	return !errors.As(err, &authErr) && !errors.As(err, &permErr)
}

func (s *ImagenService) endpoint(model string) string {
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
		s.baseURL, s.projectID, s.location, model)
}

// predict performs one predict call and returns the raw response body.
// Non-2xx statuses come back as classified errors.
func (s *ImagenService) predict(ctx context.Context, token, model string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(model), bytes.NewReader(body))
	if err != nil {
		return nil, &NetworkError{Provider: ProviderImagen, Op: "predict", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Provider: ProviderImagen, Op: "predict", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, &NetworkError{Provider: ProviderImagen, Op: "predict", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyStatus(ProviderImagen, resp.StatusCode, upstreamDetail(raw))
	}
	return raw, nil
}

// upstreamDetail extracts the message from a Google API error body.
func upstreamDetail(raw []byte) error {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		if envelope.Error.Status != "" {
			return fmt.Errorf("%s: %s", envelope.Error.Status, envelope.Error.Message)
		}
		return errors.New(envelope.Error.Message)
	}
	text := strings.TrimSpace(string(raw))
	text = truncate(text, 500)
	if text == "" {
		text = "empty response body"
	}
	return errors.New(text)
}

// imagenPayloadFields are the prediction fields that may carry the image,
// checked in order.
var imagenPayloadFields = []string{"bytesBase64Encoded", "imageBytes", "b64_json"}

// extractImagenPayload finds and decodes the image in a predict response.
func extractImagenPayload(raw []byte) ([]byte, error) {
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &MalformedResponseError{Provider: ProviderImagen, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	var predictions []map[string]any
	if p, ok := resp["predictions"]; ok {
		if err := json.Unmarshal(p, &predictions); err != nil {
			return nil, &MalformedResponseError{Provider: ProviderImagen, Reason: fmt.Sprintf("invalid predictions: %v", err)}
		}
	}
	if len(predictions) == 0 {
		return nil, &MalformedResponseError{
			Provider: ProviderImagen,
			Fields:   sortedKeys(resp),
			Reason:   "response contained no predictions",
		}
	}

	pred := predictions[0]
	if encoded, field, ok := findEncodedImage(pred); ok {
		payload, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, &MalformedResponseError{Provider: ProviderImagen, Reason: fmt.Sprintf("decode %s: %v", field, err)}
		}
		return payload, nil
	}

	return nil, &MalformedResponseError{
		Provider: ProviderImagen,
		Fields:   sortedKeys(pred),
		Reason:   "prediction had no recognised image field",
	}
}

// findEncodedImage looks for a base64 string at the top level of a
// prediction, then under a nested "image" object.
func findEncodedImage(pred map[string]any) (string, string, bool) {
	for _, f := range imagenPayloadFields {
		if v, ok := pred[f].(string); ok && v != "" {
			return v, f, true
		}
	}
	if nested, ok := pred["image"].(map[string]any); ok {
		for _, f := range imagenPayloadFields[:2] {
			if v, ok := nested[f].(string); ok && v != "" {
				return v, "image." + f, true
			}
		}
	}
	return "", "", false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
