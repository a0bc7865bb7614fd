package quiz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/dailyquiz/internal/domain/models"
	"github.com/letsssgooo/dailyquiz/internal/storage"
)

var loadBase = time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)

func TestLoadQuestions_Valid(t *testing.T) {
	data := []byte(`{
		"questions": [
			{
				"id": "defi-1",
				"question": "What does AMM stand for?",
				"answers": ["Automated Market Maker", "Asset Management Module"],
				"correct_answer_index": 0,
				"category": "defi",
				"points": 10,
				"created_at": "2024-04-01T10:00:00Z"
			},
			{
				"question": "What is a DAO?",
				"answers": ["A token", "An organization", "A wallet"],
				"correct_answer_index": 1
			}
		]
	}`)

	questions, err := LoadQuestions(data, loadBase)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	first := questions[0]
	assert.Equal(t, "defi-1", first.ID)
	assert.Equal(t, models.CategoryDeFi, first.Category)
	assert.True(t, first.CreatedAt.Equal(time.Date(2024, time.April, 1, 10, 0, 0, 0, time.UTC)))

	second := questions[1]
	assert.NotEmpty(t, second.ID)
	assert.Equal(t, models.CategoryGeneral, second.Category)
	assert.Equal(t, 1, second.CorrectAnswerIndex)
	assert.True(t, second.CreatedAt.Equal(loadBase.Add(time.Millisecond)))
}

func TestLoadQuestions_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{invalid json}`},
		{"no questions", `{"questions": []}`},
		{"missing text", `{"questions": [{"answers": ["a", "b"], "correct_answer_index": 0}]}`},
		{"too few answers", `{"questions": [{"question": "q", "answers": ["a"], "correct_answer_index": 0}]}`},
		{"missing correct index", `{"questions": [{"question": "q", "answers": ["a", "b"]}]}`},
		{"correct index out of range", `{"questions": [{"question": "q", "answers": ["a", "b"], "correct_answer_index": 2}]}`},
		{"negative points", `{"questions": [{"question": "q", "answers": ["a", "b"], "correct_answer_index": 0, "points": -1}]}`},
		{"unknown category", `{"questions": [{"question": "q", "answers": ["a", "b"], "correct_answer_index": 0, "category": "memes"}]}`},
		{"duplicate id", `{"questions": [
			{"id": "x", "question": "q", "answers": ["a", "b"], "correct_answer_index": 0},
			{"id": "x", "question": "q2", "answers": ["a", "b"], "correct_answer_index": 1}
		]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			questions, err := LoadQuestions([]byte(tt.data), loadBase)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Nil(t, questions)
		})
	}
}

func TestSeed_SkipsExisting(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()

	data := []byte(`{"questions": [
		{"id": "a", "question": "q1", "answers": ["x", "y"], "correct_answer_index": 0},
		{"id": "b", "question": "q2", "answers": ["x", "y"], "correct_answer_index": 1}
	]}`)
	questions, err := LoadQuestions(data, loadBase)
	require.NoError(t, err)

	added, err := Seed(ctx, st, questions)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = Seed(ctx, st, questions)
	require.NoError(t, err)
	assert.Zero(t, added)

	first, err := st.GetEarliestQuestion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", first.ID)
}

func TestLoadQuestions_StableIDs(t *testing.T) {
	data := []byte(`{"questions": [{"question": "q", "answers": ["a", "b"], "correct_answer_index": 0}]}`)

	first, err := LoadQuestions(data, loadBase)
	require.NoError(t, err)
	second, err := LoadQuestions(data, loadBase.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, first[0].ID, second[0].ID)

	dup := []byte(`{"questions": [
		{"question": "q", "answers": ["a", "b"], "correct_answer_index": 0},
		{"question": "q", "answers": ["a", "b"], "correct_answer_index": 1}
	]}`)
	_, err = LoadQuestions(dup, loadBase)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
