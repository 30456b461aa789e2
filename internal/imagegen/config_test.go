package imagegen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProviderConfigs(t *testing.T) {
	openai, err := GetProviderConfig(ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, ProviderConfig{
		MaxConcurrentRequests: 5,
		DelayBetweenBatches:   time.Second,
		RetryDelay:            2 * time.Second,
		MaxRetries:            3,
	}, openai)

	imagen, err := GetProviderConfig(ProviderImagen)
	require.NoError(t, err)
	assert.Equal(t, 1, imagen.MaxConcurrentRequests)
	assert.Equal(t, 65*time.Second, imagen.DelayBetweenBatches)
	assert.Equal(t, 65*time.Second, imagen.RetryDelay)
	assert.Equal(t, 2, imagen.MaxRetries)

	_, err = GetProviderConfig("nope")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestDefaultProviderConfigs_ReturnsCopy(t *testing.T) {
	cfgs := DefaultProviderConfigs()
	cfgs[ProviderOpenAI] = ProviderConfig{MaxConcurrentRequests: 99}

	orig, err := GetProviderConfig(ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, 5, orig.MaxConcurrentRequests)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("QUIZGEN_OPENAI_API_KEY", "sk-test")
	t.Setenv("QUIZGEN_OPENAI_IMAGE_MODEL", "dall-e-2")
	t.Setenv("QUIZGEN_IMAGEN_CREDENTIALS", "/tmp/sa.json")
	t.Setenv("QUIZGEN_IMAGEN_LOCATION", "europe-west4")

	cfg := ConfigFromEnv()
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "dall-e-2", cfg.OpenAI.Model)
	assert.Equal(t, "1024x1024", cfg.OpenAI.Size)
	assert.Equal(t, "/tmp/sa.json", cfg.Imagen.CredentialsFile)
	assert.Equal(t, "europe-west4", cfg.Imagen.Location)
	assert.Equal(t, "imagen-3.0-generate-002", cfg.Imagen.Model)
}

func TestConfigFromEnv_FallbackVariables(t *testing.T) {
	t.Setenv("QUIZGEN_OPENAI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-plain")
	t.Setenv("QUIZGEN_IMAGEN_CREDENTIALS", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/etc/gcp.json")

	cfg := ConfigFromEnv()
	assert.Equal(t, "sk-plain", cfg.OpenAI.APIKey)
	assert.Equal(t, "/etc/gcp.json", cfg.Imagen.CredentialsFile)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(ProviderOpenAI))
	assert.Error(t, cfg.Validate(ProviderImagen))
	assert.NoError(t, cfg.Validate(ProviderMock))
	assert.ErrorIs(t, cfg.Validate("nope"), ErrUnknownProvider)

	cfg.OpenAI.APIKey = "sk"
	cfg.Imagen.CredentialsFile = "sa.json"
	assert.NoError(t, cfg.Validate(ProviderOpenAI))
	assert.NoError(t, cfg.Validate(ProviderImagen))
}

func TestConfigValidate_ImagenAccessToken(t *testing.T) {
	t.Setenv("QUIZGEN_IMAGEN_CREDENTIALS", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("QUIZGEN_IMAGEN_ACCESS_TOKEN", "ya29.fixed")
	t.Setenv("QUIZGEN_IMAGEN_PROJECT", "")

	cfg := ConfigFromEnv()
	assert.Equal(t, "ya29.fixed", cfg.Imagen.AccessToken)
	assert.ErrorContains(t, cfg.Validate(ProviderImagen), "QUIZGEN_IMAGEN_PROJECT")

	cfg.Imagen.ProjectID = "quiz-project"
	assert.NoError(t, cfg.Validate(ProviderImagen))
}
