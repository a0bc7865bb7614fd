// Package storagetest содержит общий набор тестов для реализаций storage.Storage.
package storagetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/dailyquiz/internal/calendar"
	"github.com/letsssgooo/dailyquiz/internal/domain/models"
	"github.com/letsssgooo/dailyquiz/internal/storage"
)

// Factory создает пустое хранилище для одного теста.
type Factory func(t *testing.T) storage.Storage

var base = time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)

// Question собирает валидный вопрос, созданный через offset после base.
func Question(id string, offset time.Duration) *models.Question {
	return &models.Question{
		ID:                 id,
		Text:               "Question " + id,
		Answers:            []string{"A", "B", "C"},
		CorrectAnswerIndex: 1,
		Category:           models.CategoryGeneral,
		Points:             10,
		CreatedAt:          base.Add(offset),
	}
}

// Run прогоняет набор тестов на хранилище из factory.
func Run(t *testing.T, factory Factory) {
	t.Run("QuestionOrdering", func(t *testing.T) { testQuestionOrdering(t, factory(t)) })
	t.Run("QuestionNotFound", func(t *testing.T) { testQuestionNotFound(t, factory(t)) })
	t.Run("ProgressLifecycle", func(t *testing.T) { testProgressLifecycle(t, factory(t)) })
	t.Run("AssignNextQuestion", func(t *testing.T) { testAssignNextQuestion(t, factory(t)) })
	t.Run("TotalPoints", func(t *testing.T) { testTotalPoints(t, factory(t)) })
	t.Run("CommitAnswer", func(t *testing.T) { testCommitAnswer(t, factory(t)) })
	t.Run("CommitAnswerConcurrent", func(t *testing.T) { testCommitAnswerConcurrent(t, factory(t)) })
	t.Run("ListAnswers", func(t *testing.T) { testListAnswers(t, factory(t)) })
}

func testQuestionOrdering(t *testing.T, st storage.Storage) {
	ctx := context.Background()

	// b и c созданы одновременно, порядок между ними задает id
	require.NoError(t, st.AddQuestion(ctx, Question("c", time.Hour)))
	require.NoError(t, st.AddQuestion(ctx, Question("a", 0)))
	require.NoError(t, st.AddQuestion(ctx, Question("b", time.Hour)))
	require.NoError(t, st.AddQuestion(ctx, Question("d", 2*time.Hour)))

	first, err := st.GetEarliestQuestion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", first.ID)
	assert.Equal(t, []string{"A", "B", "C"}, first.Answers)
	assert.True(t, first.CreatedAt.Equal(base))

	var order []string
	for q := first; ; {
		order = append(order, q.ID)
		next, err := st.GetNextQuestionAfter(ctx, q)
		if err != nil {
			require.ErrorIs(t, err, storage.ErrNotFound)
			break
		}
		q = next
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, order)

	err = st.AddQuestion(ctx, Question("a", 0))
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func testQuestionNotFound(t *testing.T, st storage.Storage) {
	ctx := context.Background()

	_, err := st.GetEarliestQuestion(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.GetQuestionByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testProgressLifecycle(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	next := "q1"

	_, err := st.GetProgress(ctx, 42)
	require.ErrorIs(t, err, storage.ErrNotFound)

	created, err := st.CreateProgress(ctx, 42, &next)
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.UserID)
	require.NotNil(t, created.NextQuestionID)
	assert.Equal(t, "q1", *created.NextQuestionID)
	assert.Zero(t, created.Streak)

	_, err = st.CreateProgress(ctx, 42, nil)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	day := calendar.Date{Year: 2024, Month: time.May, Day: 2}
	last := "q1"
	updated := &models.UserProgress{
		UserID:         42,
		LastQuestionID: &last,
		LastQuizDate:   calendar.Ptr(day),
		Streak:         3,
		LastStreakDate: calendar.Ptr(day),
		QuizPoints:     60,
	}
	require.NoError(t, st.UpdateProgress(ctx, updated))

	got, err := st.GetProgress(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	err = st.UpdateProgress(ctx, &models.UserProgress{UserID: 7})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testAssignNextQuestion(t *testing.T, st storage.Storage) {
	ctx := context.Background()

	err := st.AssignNextQuestion(ctx, 11, "q1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.CreateProgress(ctx, 11, nil)
	require.NoError(t, err)

	require.NoError(t, st.AssignNextQuestion(ctx, 11, "q1"))

	err = st.AssignNextQuestion(ctx, 11, "q2")
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	got, err := st.GetProgress(ctx, 11)
	require.NoError(t, err)
	require.NotNil(t, got.NextQuestionID)
	assert.Equal(t, "q1", *got.NextQuestionID)
}

func testTotalPoints(t *testing.T, st storage.Storage) {
	ctx := context.Background()

	total, err := st.GetTotalPoints(ctx, 5)
	require.NoError(t, err)
	assert.Zero(t, total)

	require.NoError(t, st.AddTotalPoints(ctx, 5, 10))
	require.NoError(t, st.AddTotalPoints(ctx, 5, 30))

	total, err = st.GetTotalPoints(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(40), total)
}

func commitFor(userID int64, today calendar.Date, points int) storage.AnswerCommit {
	answered := "q1"
	return storage.AnswerCommit{
		Progress: &models.UserProgress{
			UserID:         userID,
			LastQuestionID: &answered,
			LastQuizDate:   calendar.Ptr(today),
			Streak:         points / 10,
			LastStreakDate: calendar.Ptr(today),
			QuizPoints:     int64(points),
		},
		Today:       today,
		PointsDelta: int64(points),
		Record: models.AnswerRecord{
			QuestionID:          "q1",
			UserID:              userID,
			SelectedAnswerIndex: 1,
			IsCorrect:           points > 0,
			PointsEarned:        points,
			AnsweredAt:          today.Time().Add(10 * time.Hour),
		},
	}
}

func testCommitAnswer(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	today := calendar.Date{Year: 2024, Month: time.May, Day: 1}

	err := st.CommitAnswer(ctx, commitFor(1, today, 10))
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.CreateProgress(ctx, 1, nil)
	require.NoError(t, err)

	require.NoError(t, st.CommitAnswer(ctx, commitFor(1, today, 10)))

	err = st.CommitAnswer(ctx, commitFor(1, today, 10))
	require.ErrorIs(t, err, storage.ErrAlreadyAnswered)

	got, err := st.GetProgress(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Streak)
	assert.Equal(t, int64(10), got.QuizPoints)
	assert.True(t, calendar.Equal(got.LastQuizDate, today))
	assert.Nil(t, got.NextQuestionID)

	total, err := st.GetTotalPoints(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)

	require.NoError(t, st.CommitAnswer(ctx, commitFor(1, today.AddDays(1), 20)))
	total, err = st.GetTotalPoints(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(30), total)
}

func testCommitAnswerConcurrent(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	today := calendar.Date{Year: 2024, Month: time.May, Day: 1}

	_, err := st.CreateProgress(ctx, 9, nil)
	require.NoError(t, err)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			err := st.CommitAnswer(ctx, commitFor(9, today, 10))
			switch {
			case err == nil:
				succeeded.Add(1)
			case assert.ErrorIs(t, err, storage.ErrAlreadyAnswered):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(attempts-1), rejected.Load())

	total, err := st.GetTotalPoints(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)

	history, err := st.ListAnswers(ctx, 9, 100)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func testListAnswers(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	day := calendar.Date{Year: 2024, Month: time.May, Day: 1}

	_, err := st.CreateProgress(ctx, 3, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, st.CommitAnswer(ctx, commitFor(3, day.AddDays(i), 10*(i+1))))
	}

	history, err := st.ListAnswers(ctx, 3, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 30, history[0].PointsEarned)
	assert.Equal(t, 20, history[1].PointsEarned)
	assert.True(t, history[0].AnsweredAt.Equal(day.AddDays(2).Time().Add(10*time.Hour)))

	empty, err := st.ListAnswers(ctx, 404, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
