// Package imageprompt drafts image descriptions for quiz questions with an
// LLM, producing the prompt and kind lists the image router consumes.
package imageprompt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/quizgen/internal/imagegen"
	"github.com/abhisek/quizgen/internal/llm"
	"github.com/abhisek/quizgen/internal/reqctx"
)

// Question is the quiz item an image pair is drafted for.
type Question struct {
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
	Answer  string   `json:"answer"`
}

// Prompts is the drafted pair of image descriptions.
type Prompts struct {
	QuestionImage string `json:"question_image"`
	AnswerImage   string `json:"answer_image"`
}

// Schema is the structured output the LLM must return.
var Schema = &llm.Schema{
	Name:        "quiz-image-prompts",
	Description: "Descriptions of two illustrations for a quiz question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question_image": map[string]any{
				"type":        "string",
				"description": "An illustration that sets up the question without revealing the answer",
			},
			"answer_image": map[string]any{
				"type":        "string",
				"description": "An illustration that shows or explains the correct answer",
			},
		},
		"required":             []any{"question_image", "answer_image"},
		"additionalProperties": false,
	},
}

const instructions = `You write short descriptions for educational illustrations.
For each quiz question, describe two images:
- question_image: supports the question and must not reveal the answer.
- answer_image: shows or explains the correct answer.
Each description is one or two sentences of concrete visual detail.
Never ask for text, letters, numbers or labels inside the image.`

// Drafter turns quiz questions into image prompts.
type Drafter struct {
	provider  llm.Provider
	log       *zap.Logger
	maxTokens int
}

// New creates a Drafter over provider.
func New(provider llm.Provider, log *zap.Logger) *Drafter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Drafter{provider: provider, log: log.Named("imageprompt"), maxTokens: 400}
}

// Draft asks the LLM for the question and answer image descriptions of q.
func (d *Drafter) Draft(ctx context.Context, q Question) (Prompts, error) {
	if err := q.validate(); err != nil {
		return Prompts{}, err
	}

	resp, err := d.provider.Generate(reqctx.WithPurpose(ctx, "image-prompts"), llm.Request{
		Instructions: instructions,
		Prompt:       q.render(),
		Schema:       Schema,
		MaxTokens:    d.maxTokens,
		Temperature:  0.4,
	})
	if err != nil {
		return Prompts{}, fmt.Errorf("drafting image prompts: %w", err)
	}

	var p Prompts
	if err := json.Unmarshal(resp.Content, &p); err != nil {
		return Prompts{}, fmt.Errorf("decoding image prompts: %w", err)
	}
	p.QuestionImage = strings.TrimSpace(p.QuestionImage)
	p.AnswerImage = strings.TrimSpace(p.AnswerImage)
	if p.QuestionImage == "" || p.AnswerImage == "" {
		return Prompts{}, fmt.Errorf("drafting image prompts: model returned an empty description")
	}
	return p, nil
}

// DraftBatch drafts every question and flattens the result into parallel
// prompt and kind lists: question image then answer image, per question.
// The first failure aborts the batch.
func (d *Drafter) DraftBatch(ctx context.Context, questions []Question) ([]string, []imagegen.ImageKind, error) {
	prompts := make([]string, 0, 2*len(questions))
	kinds := make([]imagegen.ImageKind, 0, 2*len(questions))

	for i, q := range questions {
		p, err := d.Draft(ctx, q)
		if err != nil {
			return nil, nil, fmt.Errorf("question %d: %w", i, err)
		}
		prompts = append(prompts, p.QuestionImage, p.AnswerImage)
		kinds = append(kinds, imagegen.KindQuestion, imagegen.KindAnswer)
	}

	d.log.Debug("drafted image prompts", zap.Int("questions", len(questions)), zap.Int("prompts", len(prompts)))
	return prompts, kinds, nil
}

func (q Question) validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return &imagegen.InvalidArgumentError{Reason: "question text is empty"}
	}
	if strings.TrimSpace(q.Answer) == "" {
		return &imagegen.InvalidArgumentError{Reason: "question answer is empty"}
	}
	return nil
}

func (q Question) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", strings.TrimSpace(q.Text))
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "%c) %s\n", 'A'+i, strings.TrimSpace(opt))
	}
	fmt.Fprintf(&b, "Correct answer: %s\n", strings.TrimSpace(q.Answer))
	return b.String()
}
