package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p)

	_, err = ParseProvider("dalle")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestParseImageKind(t *testing.T) {
	k, err := ParseImageKind("answer")
	require.NoError(t, err)
	assert.Equal(t, KindAnswer, k)
	assert.Equal(t, "answer-images", k.Bucket())
	assert.Equal(t, "question-images", KindQuestion.Bucket())

	_, err = ParseImageKind("hint")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestResultConstructors(t *testing.T) {
	ok := Succeeded([]byte{1, 2})
	assert.True(t, ok.Success)
	assert.Empty(t, ok.Error)

	empty := Succeeded(nil)
	assert.False(t, empty.Success)
	assert.NotEmpty(t, empty.Error)

	f := Failed("")
	assert.Equal(t, genericFailure, f.Error)
	assert.NotNil(t, f.Payload)
	assert.Empty(t, f.Payload)

	assert.Equal(t, genericFailure, FailedErr(nil).Error)
	assert.Equal(t, "boom", FailedErr(errors.New("boom")).Error)
}

func TestIsRetryable(t *testing.T) {
	retryable := []string{
		"429 Too Many Requests",
		"Rate Limit reached for images",
		"RESOURCE_EXHAUSTED: Quota exceeded for metric",
		"quota",
		"limit exceeded",
	}
	for _, s := range retryable {
		assert.True(t, IsRetryable(s), s)
	}

	final := []string{
		"",
		"Generation failed",
		"401 unauthorized",
		"content policy violation",
		"connection reset by peer",
	}
	for _, s := range final {
		assert.False(t, IsRetryable(s), s)
	}
}

func TestClassifyStatus(t *testing.T) {
	detail := errors.New("detail")
	tests := []struct {
		status    int
		target    any
		retryable bool
	}{
		{http.StatusUnauthorized, new(*AuthError), false},
		{http.StatusForbidden, new(*PermissionError), false},
		{http.StatusTooManyRequests, new(*RateLimitError), true},
		{http.StatusBadRequest, new(*BadRequestError), false},
		{http.StatusInternalServerError, new(*UpstreamError), false},
	}
	for _, tt := range tests {
		err := classifyStatus(ProviderImagen, tt.status, detail)
		assert.ErrorAs(t, err, tt.target, "status %d", tt.status)
		assert.ErrorIs(t, err, detail)
		assert.Equal(t, tt.retryable, IsRetryable(err.Error()), "status %d: %s", tt.status, err)
	}
}

func TestMalformedResponseError_ListsFields(t *testing.T) {
	err := &MalformedResponseError{Provider: ProviderImagen, Fields: []string{"mimeType", "raiFilteredReason"}, Reason: "no image"}
	assert.Contains(t, err.Error(), "mimeType, raiFilteredReason")
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "Client.Timeout exceeded while awaiting headers" }
func (timeoutErr) Timeout() bool { return true }
func (timeoutErr) Temporary() bool { return true }

func TestNetworkError_TimeoutsAreNotThrottling(t *testing.T) {
	tests := map[string]struct {
		err  error
		want string
	}{
		"deadline":  {fmt.Errorf("post: %w", context.DeadlineExceeded), "timed out"},
		"client":    {timeoutErr{}, "timed out"},
		"cancelled": {context.Canceled, "cancelled"},
		"refused":   {errors.New("connection refused"), "connection refused"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := &NetworkError{Provider: ProviderImagen, Op: "predict", Err: tt.err}
			assert.Contains(t, err.Error(), tt.want)
			assert.False(t, IsRetryable(err.Error()), err.Error())
			assert.ErrorIs(t, err, tt.err)
		})
	}

	auth := &AuthError{Provider: ProviderImagen, Err: context.DeadlineExceeded}
	assert.False(t, IsRetryable(auth.Error()), auth.Error())
}
