package imagegen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, svc Service) (*Router, *int) {
	t.Helper()
	b, _, built := newTestBatch(t, ProviderConfig{MaxConcurrentRequests: 2}, svc)
	return NewRouter(b), built
}

func TestRouter_LengthMismatch(t *testing.T) {
	svc := newScripted(echo)
	r, built := newTestRouter(t, svc)

	_, err := r.Generate(context.Background(), testProvider, []string{"a", "b"}, []ImageKind{KindQuestion}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 0, *built)
}

func TestRouter_MismatchCheckedBeforeProvider(t *testing.T) {
	r, _ := newTestRouter(t, newScripted(echo))

	_, err := r.Generate(context.Background(), "nope", []string{"a"}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRouter_EmptyShortCircuits(t *testing.T) {
	svc := newScripted(echo)
	r, built := newTestRouter(t, svc)

	// Even an unknown provider is fine when there is nothing to do.
	out, err := r.Generate(context.Background(), "nope", []string{}, []ImageKind{}, nil)
	require.NoError(t, err)
	assert.Empty(t, out.Results)
	assert.Equal(t, 0, *built)
	assert.Equal(t, 0, svc.calls())
}

func TestRouter_UnknownProvider(t *testing.T) {
	svc := newScripted(echo)
	r, built := newTestRouter(t, svc)

	_, err := r.Generate(context.Background(), "midjourney", []string{"a"}, []ImageKind{KindQuestion}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProvider)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, Provider("midjourney"), cfgErr.Provider)
	assert.Equal(t, 0, *built)
}

func TestRouter_RejectsBlankPromptAndBadKind(t *testing.T) {
	r, _ := newTestRouter(t, newScripted(echo))

	_, err := r.Generate(context.Background(), testProvider, []string{"  "}, []ImageKind{KindQuestion}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = r.Generate(context.Background(), testProvider, []string{"a"}, []ImageKind{"diagram"}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRouter_Delegates(t *testing.T) {
	svc := newScripted(echo)
	r, built := newTestRouter(t, svc)

	var last [2]int
	out, err := r.Generate(context.Background(), testProvider,
		[]string{"x", "y", "z"},
		[]ImageKind{KindQuestion, KindAnswer, KindQuestion},
		func(c, total int) { last = [2]int{c, total} })
	require.NoError(t, err)

	assert.Equal(t, 3, out.SuccessCount)
	assert.Equal(t, "y", string(out.Results[1].Payload))
	assert.Equal(t, [2]int{3, 3}, last)
	assert.Equal(t, 1, *built)
}

func TestRouter_GenerateOne(t *testing.T) {
	r, _ := newTestRouter(t, newScripted(echo))

	res, err := r.GenerateOne(context.Background(), testProvider, "single", KindAnswer)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "single", string(res.Payload))
}
