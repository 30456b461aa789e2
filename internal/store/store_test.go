package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so journal_mode is not checked here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestOpenCreatesTables(t *testing.T) {
	s := openTestStore(t)

	for _, table := range []string{"image_request_events", "llm_request_events", "event_sequence"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := s.seq.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}
}

func TestAppendAndQueryImageEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	require.NoError(t, repo.AppendImageRequest(ctx, ImageRequestEventData{
		Provider: "openai", Kind: "question", Prompt: "a cat", PayloadBytes: 4, LatencyMs: 12, Success: true,
	}))
	require.NoError(t, repo.AppendImageRequest(ctx, ImageRequestEventData{
		Provider: "imagen", Kind: "answer", Prompt: "a dog", Success: false,
		ErrorMessage: "rate limit exceeded (429)",
	}))

	events, err := repo.QueryImageEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Newest first.
	assert.Equal(t, "imagen", events[0].Provider)
	assert.False(t, events[0].Success)
	assert.Equal(t, "openai", events[1].Provider)
	assert.Equal(t, 4, events[1].PayloadBytes)
	assert.Greater(t, events[0].Sequence, events[1].Sequence)

	filtered, err := repo.QueryImageEvents(ctx, QueryOpts{Provider: "openai"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "a cat", filtered[0].Prompt)

	limited, err := repo.QueryImageEvents(ctx, QueryOpts{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGetImageEvent(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	missing, err := repo.GetImageEvent(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.AppendImageRequest(ctx, ImageRequestEventData{
		Provider: "mock", Kind: "question", Success: true, PayloadBytes: 8,
	}))
	events, err := repo.QueryImageEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 1)

	got, err := repo.GetImageEvent(ctx, events[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "mock", got.Provider)
	assert.Equal(t, 8, got.PayloadBytes)
}

func TestImageUsageByProvider(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []ImageRequestEventData{
		{Provider: "imagen", Kind: "question", Success: false, ErrorMessage: "Quota exceeded", LatencyMs: 30},
		{Provider: "imagen", Kind: "question", Success: true, PayloadBytes: 10, LatencyMs: 10},
		{Provider: "openai", Kind: "answer", Success: false, ErrorMessage: "bad request (400)", LatencyMs: 5},
		{Provider: "openai", Kind: "answer", Success: true, PayloadBytes: 3, LatencyMs: 15},
	}
	for _, e := range events {
		require.NoError(t, repo.AppendImageRequest(ctx, e))
	}

	usage, err := repo.ImageUsageByProvider(ctx)
	require.NoError(t, err)
	require.Len(t, usage, 2)

	assert.Equal(t, ProviderUsage{Provider: "imagen", Attempts: 2, Successes: 1, RateLimited: 1, AvgLatencyMs: 20}, usage[0])
	assert.Equal(t, ProviderUsage{Provider: "openai", Attempts: 2, Successes: 1, RateLimited: 0, AvgLatencyMs: 10}, usage[1])
}

func TestAppendAndQueryLLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "gpt-4o-mini", Model: "gpt-4o-mini", Purpose: "image-prompt",
		InputTokens: 40, OutputTokens: 20, Success: true,
	}))
	require.NoError(t, repo.AppendImageRequest(ctx, ImageRequestEventData{
		Provider: "openai", Kind: "question", Success: true, PayloadBytes: 1,
	}))

	events, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "image-prompt", events[0].Purpose)
	assert.Equal(t, 40, events[0].InputTokens)

	// Sequence is shared across event types.
	images, err := repo.QueryImageEvents(ctx, QueryOpts{After: events[0].Sequence})
	require.NoError(t, err)
	assert.Len(t, images, 1)
}

func TestReopenMigratesOnceAndKeepsSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.EventRepo().AppendImageRequest(ctx, ImageRequestEventData{Provider: "mock", Kind: "question", Success: true}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	repo := s.EventRepo()
	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequestEventData{Provider: "mock", Model: "mock", Success: true}))

	llm, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, llm, 1)
	assert.Equal(t, int64(2), llm[0].Sequence)

	images, err := repo.QueryImageEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, int64(1), images[0].Sequence)
	assert.False(t, images[0].Timestamp.IsZero())
}

func TestQueryImageEvents_FromFilter(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	require.NoError(t, repo.AppendImageRequest(ctx, ImageRequestEventData{Provider: "mock", Kind: "answer", Success: true}))

	events, err := repo.QueryImageEvents(ctx, QueryOpts{From: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	assert.Len(t, events, 1)

	events, err = repo.QueryImageEvents(ctx, QueryOpts{From: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, events)
}
