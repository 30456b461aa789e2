package imageprompt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizgen/internal/imagegen"
	"github.com/abhisek/quizgen/internal/llm"
)

var volcano = Question{
	Text:    "What comes out of an erupting volcano?",
	Options: []string{"Lava", "Snow", "Sand"},
	Answer:  "Lava",
}

func TestDraft(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockReply{
		Content: json.RawMessage(`{"question_image":" A mountain with smoke ","answer_image":"Glowing lava flowing down a volcano"}`),
	})
	d := New(mock, nil)

	p, err := d.Draft(context.Background(), volcano)
	require.NoError(t, err)
	assert.Equal(t, "A mountain with smoke", p.QuestionImage)
	assert.Equal(t, "Glowing lava flowing down a volcano", p.AnswerImage)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, Schema, calls[0].Schema)
	assert.Equal(t, "What comes out of an erupting volcano?\nA) Lava\nB) Snow\nC) Sand\nCorrect answer: Lava\n", calls[0].Prompt)
	assert.NotEmpty(t, calls[0].Instructions)
}

func TestDraft_SynthesizedReplyValidates(t *testing.T) {
	d := New(llm.NewMockProvider(), nil)

	p, err := d.Draft(context.Background(), volcano)
	require.NoError(t, err)
	assert.Contains(t, p.QuestionImage, "erupting volcano")
	assert.Contains(t, p.AnswerImage, "answer image")
}

func TestDraft_RejectsIncompleteQuestion(t *testing.T) {
	mock := llm.NewMockProvider()
	d := New(mock, nil)

	_, err := d.Draft(context.Background(), Question{Text: "  ", Answer: "x"})
	assert.ErrorIs(t, err, imagegen.ErrInvalidArgument)

	_, err = d.Draft(context.Background(), Question{Text: "q"})
	assert.ErrorIs(t, err, imagegen.ErrInvalidArgument)

	assert.Equal(t, 0, mock.CallCount())
}

func TestDraft_ProviderError(t *testing.T) {
	upstream := &llm.RateLimitError{Err: errors.New("slow down")}
	d := New(llm.NewMockProvider(llm.MockReply{Err: upstream}), nil)

	_, err := d.Draft(context.Background(), volcano)
	require.Error(t, err)
	assert.ErrorIs(t, err, upstream)
}

func TestDraft_EmptyDescription(t *testing.T) {
	d := New(llm.NewMockProvider(llm.MockReply{
		Content: json.RawMessage(`{"question_image":"   ","answer_image":"x"}`),
	}), nil)

	_, err := d.Draft(context.Background(), volcano)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty description")
}

func TestDraftBatch_Flattens(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockReply{Content: json.RawMessage(`{"question_image":"q1","answer_image":"a1"}`)},
		llm.MockReply{Content: json.RawMessage(`{"question_image":"q2","answer_image":"a2"}`)},
	)
	d := New(mock, nil)

	prompts, kinds, err := d.DraftBatch(context.Background(), []Question{volcano, {Text: "2+2?", Answer: "4"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "a1", "q2", "a2"}, prompts)
	assert.Equal(t, []imagegen.ImageKind{
		imagegen.KindQuestion, imagegen.KindAnswer,
		imagegen.KindQuestion, imagegen.KindAnswer,
	}, kinds)
}

func TestDraftBatch_StopsAtFirstFailure(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockReply{Content: json.RawMessage(`{"question_image":"q1","answer_image":"a1"}`)},
		llm.MockReply{Err: &llm.AuthError{Err: errors.New("bad key")}},
	)
	d := New(mock, nil)

	_, _, err := d.DraftBatch(context.Background(), []Question{volcano, volcano, volcano})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "question 1:"), err.Error())
	assert.Equal(t, 2, mock.CallCount())
}

func TestDraftBatch_Empty(t *testing.T) {
	prompts, kinds, err := New(llm.NewMockProvider(), nil).DraftBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, prompts)
	assert.Empty(t, kinds)
}
