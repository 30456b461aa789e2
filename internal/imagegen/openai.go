package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// maxImageBytes caps how much of a downloaded image is buffered.
const maxImageBytes = 32 << 20

// OpenAIService generates images with the OpenAI images API, one request
// per image.
type OpenAIService struct {
	client     *openai.Client
	httpClient *http.Client
	model      string
	size       string
	quality    string
}

// NewOpenAIService creates a new OpenAI image service. httpClient is used to
// download images returned by URL.
func NewOpenAIService(cfg OpenAIConfig, httpClient *http.Client) (*OpenAIService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	defaults := DefaultConfig().OpenAI
	return &OpenAIService{
		client:     openai.NewClientWithConfig(config),
		httpClient: httpClient,
		model:      orDefault(cfg.Model, defaults.Model),
		size:       orDefault(cfg.Size, defaults.Size),
		quality:    orDefault(cfg.Quality, defaults.Quality),
	}, nil
}

func (s *OpenAIService) Name() string { return string(ProviderOpenAI) }

func (s *OpenAIService) GenerateImage(ctx context.Context, prompt string, kind ImageKind) ImageResult {
	resp, err := s.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         EnhancePrompt(prompt, kind),
		Model:          s.model,
		N:              1,
		Size:           s.size,
		Quality:        s.quality,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return FailedErr(mapOpenAIError(err))
	}

	if len(resp.Data) == 0 {
		return FailedErr(&MalformedResponseError{Provider: ProviderOpenAI, Reason: "response contained no images"})
	}

	data := resp.Data[0]
	switch {
	case data.B64JSON != "":
		payload, err := base64.StdEncoding.DecodeString(data.B64JSON)
		if err != nil {
			return FailedErr(&MalformedResponseError{Provider: ProviderOpenAI, Reason: fmt.Sprintf("decode b64_json: %v", err)})
		}
		return Succeeded(payload)
	case data.URL != "":
		payload, err := s.download(ctx, data.URL)
		if err != nil {
			return FailedErr(err)
		}
		return Succeeded(payload)
	default:
		return FailedErr(&MalformedResponseError{
			Provider: ProviderOpenAI,
			Reason:   "image entry had neither url nor b64_json",
		})
	}
}

// download fetches an image returned by reference.
func (s *OpenAIService) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{Provider: ProviderOpenAI, Op: "image download", Err: err}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Provider: ProviderOpenAI, Op: "image download", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{
			Provider: ProviderOpenAI,
			Op:       "image download",
			Err:      fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, &NetworkError{Provider: ProviderOpenAI, Op: "image download", Err: err}
	}
	if len(payload) == 0 {
		return nil, &MalformedResponseError{Provider: ProviderOpenAI, Reason: "downloaded image was empty"}
	}
	return payload, nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return classifyStatus(ProviderOpenAI, apiErr.HTTPStatusCode, errors.New(apiErr.Message))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return classifyStatus(ProviderOpenAI, reqErr.HTTPStatusCode, reqErr.Err)
	}
	return &NetworkError{Provider: ProviderOpenAI, Op: "request", Err: err}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
