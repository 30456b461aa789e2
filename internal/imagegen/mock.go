package imagegen

import (
	"bytes"
	"context"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"
)

// MockService generates small placeholder PNGs offline. The colour is
// derived from the prompt, so the same prompt always yields the same image.
type MockService struct {
	// Latency is slept before each image, honouring cancellation.
	Latency time.Duration

	mu    sync.Mutex
	calls []string
}

// NewMockService creates a MockService.
func NewMockService() *MockService {
	return &MockService{}
}

func (m *MockService) Name() string { return string(ProviderMock) }

func (m *MockService) GenerateImage(ctx context.Context, prompt string, kind ImageKind) ImageResult {
	m.mu.Lock()
	m.calls = append(m.calls, prompt)
	m.mu.Unlock()

	if err := sleepContext(ctx, m.Latency); err != nil {
		return FailedErr(err)
	}

	payload, err := placeholderPNG(prompt, kind)
	if err != nil {
		return FailedErr(err)
	}
	return Succeeded(payload)
}

// CallCount returns the number of GenerateImage calls made.
func (m *MockService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Prompts returns the prompts seen so far, in call order.
func (m *MockService) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

const placeholderSize = 64

func placeholderPNG(prompt string, kind ImageKind) ([]byte, error) {
	h := fnv.New32a()
	h.Write([]byte(kind))
	h.Write([]byte(prompt))
	sum := h.Sum32()

	fill := color.NRGBA{R: uint8(sum >> 16), G: uint8(sum >> 8), B: uint8(sum), A: 0xff}
	img := image.NewNRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
	for y := 0; y < placeholderSize; y++ {
		for x := 0; x < placeholderSize; x++ {
			img.SetNRGBA(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
