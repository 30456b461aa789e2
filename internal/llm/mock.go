package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MockReply is a canned reply for the MockProvider.
type MockReply struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider is a deterministic Provider for tests and offline runs.
// Queued replies are returned in FIFO order. Once the queue is empty it
// synthesizes a reply from the request schema, filling every string
// property with text derived from the prompt.
type MockProvider struct {
	mu      sync.Mutex
	replies []MockReply
	calls   []Request
}

// NewMockProvider creates a MockProvider with the given queued replies.
func NewMockProvider(replies ...MockReply) *MockProvider {
	return &MockProvider{replies: replies}
}

func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if len(m.replies) > 0 {
		r := m.replies[0]
		m.replies = m.replies[1:]
		if r.Err != nil {
			return nil, r.Err
		}
		return &Response{Content: r.Content, Usage: r.Usage, Model: "mock", Finish: FinishStop}, nil
	}

	if req.Schema == nil {
		return nil, &UnavailableError{Err: fmt.Errorf("mock: no queued reply")}
	}
	content, err := synthesize(req)
	if err != nil {
		return nil, err
	}
	return &Response{Content: content, Model: "mock", Finish: FinishStop}, nil
}

func (m *MockProvider) ModelID() string {
	return "mock"
}

// Enqueue appends a reply to the queue.
func (m *MockProvider) Enqueue(r MockReply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, r)
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the requests seen so far.
func (m *MockProvider) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

func synthesize(req Request) (json.RawMessage, error) {
	props, _ := req.Schema.Definition["properties"].(map[string]any)
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	subject := strings.TrimSpace(strings.SplitN(req.Prompt, "\n", 2)[0])
	out := make(map[string]any, len(names))
	for _, name := range names {
		def, _ := props[name].(map[string]any)
		if t, _ := def["type"].(string); t == "string" {
			out[name] = fmt.Sprintf("%s for %s", strings.ReplaceAll(name, "_", " "), subject)
		}
	}
	return json.Marshal(out)
}
