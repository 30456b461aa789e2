package imagegen

import (
	"fmt"
	"os"
	"time"
)

// ProviderConfig holds the pacing tunables for one provider.
type ProviderConfig struct {
	// MaxConcurrentRequests is the window size: how many items run at once.
	MaxConcurrentRequests int

	// DelayBetweenBatches is slept between windows, never after the last.
	DelayBetweenBatches time.Duration

	// RetryDelay is slept before each retry of a throttled item.
	RetryDelay time.Duration

	// MaxRetries is the number of extra attempts after the first.
	MaxRetries int
}

// ProviderConfigs is a read-only table of tunables keyed by provider.
type ProviderConfigs map[Provider]ProviderConfig

// Lookup returns the tunables for p.
func (c ProviderConfigs) Lookup(p Provider) (ProviderConfig, error) {
	cfg, ok := c[p]
	if !ok {
		return ProviderConfig{}, &ConfigurationError{Provider: p}
	}
	return cfg, nil
}

// defaultProviderConfigs is never mutated; DefaultProviderConfigs hands out copies.
var defaultProviderConfigs = ProviderConfigs{
	ProviderOpenAI: {
		MaxConcurrentRequests: 5,
		DelayBetweenBatches:   1 * time.Second,
		RetryDelay:            2 * time.Second,
		MaxRetries:            3,
	},
	// Imagen's per-minute quota allows roughly one image per minute on new
	// projects, so requests go one at a time with a minute-plus gap.
	ProviderImagen: {
		MaxConcurrentRequests: 1,
		DelayBetweenBatches:   65 * time.Second,
		RetryDelay:            65 * time.Second,
		MaxRetries:            2,
	},
	ProviderMock: {
		MaxConcurrentRequests: 10,
	},
}

// DefaultProviderConfigs returns a copy of the built-in tunables table.
func DefaultProviderConfigs() ProviderConfigs {
	out := make(ProviderConfigs, len(defaultProviderConfigs))
	for p, cfg := range defaultProviderConfigs {
		out[p] = cfg
	}
	return out
}

// GetProviderConfig looks p up in the built-in table.
func GetProviderConfig(p Provider) (ProviderConfig, error) {
	return defaultProviderConfigs.Lookup(p)
}

// Config holds provider credentials and endpoints.
type Config struct {
	OpenAI OpenAIConfig
	Imagen ImagenConfig

	// DownloadTimeout bounds fetching an image returned by URL.
	DownloadTimeout time.Duration

	// MockLatency is slept by the mock provider before each image.
	MockLatency time.Duration
}

// OpenAIConfig holds OpenAI image settings.
type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "dall-e-3"
	Size    string // Default: "1024x1024"
	Quality string // Default: "standard"
	BaseURL string // Optional. Override for compatible gateways.
}

// ImagenConfig holds Vertex AI Imagen settings.
type ImagenConfig struct {
	// CredentialsFile is the path to a service account JSON key.
	CredentialsFile string

	// AccessToken is a pre-minted OAuth token used instead of the key file,
	// e.g. the output of "gcloud auth print-access-token". It is not refreshed.
	AccessToken string

	ProjectID     string // Defaults to the project in the key file.
	Location      string // Default: "us-central1"
	Model         string // Default: "imagen-3.0-generate-002"
	FallbackModel string // Default: "imagen-3.0-generate-001"
	AspectRatio   string // Default: "1:1"

	// BaseURL overrides the regional Vertex AI endpoint.
	BaseURL string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		OpenAI: OpenAIConfig{
			Model:   "dall-e-3",
			Size:    "1024x1024",
			Quality: "standard",
		},
		Imagen: ImagenConfig{
			Location:      "us-central1",
			Model:         "imagen-3.0-generate-002",
			FallbackModel: "imagen-3.0-generate-001",
			AspectRatio:   "1:1",
		},
		DownloadTimeout: 60 * time.Second,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if k := os.Getenv("QUIZGEN_OPENAI_API_KEY"); k != "" {
		cfg.OpenAI.APIKey = k
	} else if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.OpenAI.APIKey = k
	}
	if m := os.Getenv("QUIZGEN_OPENAI_IMAGE_MODEL"); m != "" {
		cfg.OpenAI.Model = m
	}
	if q := os.Getenv("QUIZGEN_OPENAI_IMAGE_QUALITY"); q != "" {
		cfg.OpenAI.Quality = q
	}
	if u := os.Getenv("QUIZGEN_OPENAI_BASE_URL"); u != "" {
		cfg.OpenAI.BaseURL = u
	}

	if f := os.Getenv("QUIZGEN_IMAGEN_CREDENTIALS"); f != "" {
		cfg.Imagen.CredentialsFile = f
	} else if f := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); f != "" {
		cfg.Imagen.CredentialsFile = f
	}
	if t := os.Getenv("QUIZGEN_IMAGEN_ACCESS_TOKEN"); t != "" {
		cfg.Imagen.AccessToken = t
	}
	if p := os.Getenv("QUIZGEN_IMAGEN_PROJECT"); p != "" {
		cfg.Imagen.ProjectID = p
	}
	if l := os.Getenv("QUIZGEN_IMAGEN_LOCATION"); l != "" {
		cfg.Imagen.Location = l
	}
	if m := os.Getenv("QUIZGEN_IMAGEN_MODEL"); m != "" {
		cfg.Imagen.Model = m
	}
	if m := os.Getenv("QUIZGEN_IMAGEN_FALLBACK_MODEL"); m != "" {
		cfg.Imagen.FallbackModel = m
	}

	if v := os.Getenv("QUIZGEN_MOCK_LATENCY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.MockLatency = d
		}
	}

	return cfg
}

// Validate checks that p has the credentials it needs.
func (c Config) Validate(p Provider) error {
	switch p {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("QUIZGEN_OPENAI_API_KEY is required for the openai image provider")
		}
	case ProviderImagen:
		if c.Imagen.AccessToken != "" {
			if c.Imagen.ProjectID == "" {
				return fmt.Errorf("QUIZGEN_IMAGEN_PROJECT is required when QUIZGEN_IMAGEN_ACCESS_TOKEN is set")
			}
			return nil
		}
		if c.Imagen.CredentialsFile == "" {
			return fmt.Errorf("QUIZGEN_IMAGEN_CREDENTIALS is required for the imagen image provider")
		}
	case ProviderMock:
		// No credentials needed.
	default:
		return &ConfigurationError{Provider: p}
	}
	return nil
}
