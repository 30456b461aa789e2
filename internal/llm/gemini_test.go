package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestToGeminiSchema(t *testing.T) {
	s := toGeminiSchema(map[string]any{
		"type":        "object",
		"description": "prompts",
		"properties": map[string]any{
			"question_image": map[string]any{"type": "string"},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "enum": []any{"a", "b"}},
			},
		},
		"required": []string{"question_image"},
	})

	if s.Type != genai.TypeObject || s.Description != "prompts" {
		t.Fatalf("unexpected root: %+v", s)
	}
	if s.Properties["question_image"].Type != genai.TypeString {
		t.Fatal("question_image should be a string")
	}
	tags := s.Properties["tags"]
	if tags.Type != genai.TypeArray || tags.Items == nil || len(tags.Items.Enum) != 2 {
		t.Fatalf("unexpected tags schema: %+v", tags)
	}
	if len(s.Required) != 1 || s.Required[0] != "question_image" {
		t.Fatalf("unexpected required: %v", s.Required)
	}
}

func TestStringList(t *testing.T) {
	if got := stringList([]any{"a", 1, "b"}); len(got) != 2 {
		t.Fatalf("expected 2 strings, got %v", got)
	}
	if stringList(nil) != nil {
		t.Fatal("expected nil")
	}
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	if _, err := NewGeminiProvider(t.Context(), GeminiConfig{}); err == nil {
		t.Fatal("expected error without API key")
	}
}
