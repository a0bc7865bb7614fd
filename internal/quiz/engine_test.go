package quiz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/dailyquiz/internal/calendar"
	"github.com/letsssgooo/dailyquiz/internal/domain/models"
	"github.com/letsssgooo/dailyquiz/internal/storage"
	"github.com/letsssgooo/dailyquiz/internal/storage/storagetest"
)

func day(d int) calendar.Date {
	return calendar.Date{Year: 2024, Month: time.May, Day: d}
}

func testQuestion() *models.Question {
	return storagetest.Question("q1", 0)
}

func TestSubmitAnswer_Scenarios(t *testing.T) {
	q := testQuestion()

	tests := []struct {
		name     string
		progress *models.UserProgress
		selected int
		today    calendar.Date
		want     models.AnswerOutcome
	}{
		{
			name:     "first correct answer",
			progress: &models.UserProgress{UserID: 1},
			selected: 1,
			today:    day(1),
			want:     models.AnswerOutcome{IsCorrect: true, NewStreak: 1, PointsAwarded: 10},
		},
		{
			name:     "streak continues from yesterday",
			progress: &models.UserProgress{UserID: 1, Streak: 3, LastStreakDate: calendar.Ptr(day(1))},
			selected: 1,
			today:    day(2),
			want:     models.AnswerOutcome{IsCorrect: true, NewStreak: 4, PointsAwarded: 40},
		},
		{
			name:     "gap resets streak",
			progress: &models.UserProgress{UserID: 1, Streak: 3, LastStreakDate: calendar.Ptr(day(1))},
			selected: 1,
			today:    day(4),
			want:     models.AnswerOutcome{IsCorrect: true, NewStreak: 1, PointsAwarded: 10},
		},
		{
			name:     "streak is capped",
			progress: &models.UserProgress{UserID: 1, Streak: MaxStreak, LastStreakDate: calendar.Ptr(day(1))},
			selected: 1,
			today:    day(2),
			want:     models.AnswerOutcome{IsCorrect: true, NewStreak: 5, PointsAwarded: 50},
		},
		{
			name:     "wrong answer",
			progress: &models.UserProgress{UserID: 1, Streak: 4, LastStreakDate: calendar.Ptr(day(1))},
			selected: 2,
			today:    day(2),
			want:     models.AnswerOutcome{IsCorrect: false, NewStreak: 0, PointsAwarded: 0},
		},
		{
			name:     "no progress yet",
			progress: nil,
			selected: 1,
			today:    day(1),
			want:     models.AnswerOutcome{IsCorrect: true, NewStreak: 1, PointsAwarded: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SubmitAnswer(tt.progress, q, tt.selected, tt.today)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubmitAnswer_WrongAnswerClearsStreakDate(t *testing.T) {
	q := testQuestion()
	progress := &models.UserProgress{UserID: 1, Streak: 4, LastStreakDate: calendar.Ptr(day(1))}

	outcome, err := SubmitAnswer(progress, q, 0, day(2))
	require.NoError(t, err)

	updated := ApplyOutcome(progress, q, outcome, day(2), nil)
	assert.Nil(t, updated.LastStreakDate)
	assert.Zero(t, updated.Streak)
	assert.True(t, calendar.Equal(updated.LastQuizDate, day(2)))
}

func TestSubmitAnswer_DoesNotMutateProgress(t *testing.T) {
	q := testQuestion()
	progress := &models.UserProgress{UserID: 1, Streak: 2, LastStreakDate: calendar.Ptr(day(1)), QuizPoints: 30}
	before := progress.Clone()

	first, err := SubmitAnswer(progress, q, 1, day(2))
	require.NoError(t, err)
	second, err := SubmitAnswer(progress, q, 1, day(2))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, before, progress)
}

func TestSubmitAnswer_InvalidInput(t *testing.T) {
	q := testQuestion()
	progress := &models.UserProgress{UserID: 1}

	_, err := SubmitAnswer(progress, q, -1, day(1))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = SubmitAnswer(progress, q, len(q.Answers), day(1))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = SubmitAnswer(progress, nil, 0, day(1))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = SubmitAnswer(progress, q, 0, calendar.Date{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSubmitAnswer_StreakBounds(t *testing.T) {
	q := testQuestion()
	progress := &models.UserProgress{UserID: 1}

	for d := 1; d <= 10; d++ {
		outcome, err := SubmitAnswer(progress, q, 1, day(d))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, outcome.NewStreak, 1)
		assert.LessOrEqual(t, outcome.NewStreak, MaxStreak)
		assert.Equal(t, BasePoints*outcome.NewStreak, outcome.PointsAwarded)
		progress = ApplyOutcome(progress, q, outcome, day(d), q)
	}

	assert.Equal(t, MaxStreak, progress.Streak)
	assert.Equal(t, int64(10+20+30+40+50*6), progress.QuizPoints)
}

func TestCanAnswerToday(t *testing.T) {
	assert.True(t, CanAnswerToday(nil, day(1)))
	assert.True(t, CanAnswerToday(&models.UserProgress{}, day(1)))
	assert.True(t, CanAnswerToday(&models.UserProgress{LastQuizDate: calendar.Ptr(day(1))}, day(2)))
	assert.False(t, CanAnswerToday(&models.UserProgress{LastQuizDate: calendar.Ptr(day(2))}, day(2)))
}

func TestApplyOutcome(t *testing.T) {
	q := testQuestion()
	next := storagetest.Question("q2", time.Hour)
	progress := &models.UserProgress{UserID: 1, QuizPoints: 15}

	outcome := models.AnswerOutcome{IsCorrect: true, NewStreak: 1, PointsAwarded: 10}
	updated := ApplyOutcome(progress, q, outcome, day(1), next)

	require.NotNil(t, updated.NextQuestionID)
	assert.Equal(t, "q2", *updated.NextQuestionID)
	require.NotNil(t, updated.LastQuestionID)
	assert.Equal(t, "q1", *updated.LastQuestionID)
	assert.Equal(t, int64(25), updated.QuizPoints)
	assert.True(t, calendar.Equal(updated.LastStreakDate, day(1)))

	// исходный прогресс не изменился
	assert.Nil(t, progress.NextQuestionID)
	assert.Equal(t, int64(15), progress.QuizPoints)

	last := ApplyOutcome(updated, next, outcome, day(2), nil)
	assert.Nil(t, last.NextQuestionID)
}

func TestResolveNextQuestion_EmptyPool(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	engine := NewEngine(st, st)

	q, p, err := engine.ResolveNextQuestion(ctx, 1, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, q)
	assert.Nil(t, p)

	_, err = st.GetProgress(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// brokenQuestions - хранилище, в котором недоступна таблица вопросов.
type brokenQuestions struct {
	*storage.MemoryStorage
	err error
}

func (s *brokenQuestions) GetQuestionByID(context.Context, string) (*models.Question, error) {
	return nil, s.err
}

func (s *brokenQuestions) GetEarliestQuestion(context.Context) (*models.Question, error) {
	return nil, s.err
}

func (s *brokenQuestions) GetNextQuestionAfter(context.Context, *models.Question) (*models.Question, error) {
	return nil, s.err
}

func TestResolveNextQuestion_BackendUnavailable(t *testing.T) {
	ctx := context.Background()
	st := &brokenQuestions{MemoryStorage: storage.NewMemoryStorage(), err: errors.New("connection refused")}
	engine := NewEngine(st, st)

	next := "a"
	last := "a"
	tests := []struct {
		name     string
		progress *models.UserProgress
	}{
		{"no progress", nil},
		{"next question set", &models.UserProgress{UserID: 1, NextQuestionID: &next}},
		{"pool exhausted", &models.UserProgress{UserID: 1, LastQuestionID: &last}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, p, err := engine.ResolveNextQuestion(ctx, 1, tt.progress)
			assert.ErrorIs(t, err, ErrBackendUnavailable)
			assert.ErrorIs(t, err, st.err)
			assert.NotErrorIs(t, err, ErrNotFound)
			assert.Nil(t, q)
			assert.Nil(t, p)
		})
	}

	_, err := st.GetProgress(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResolveNextQuestion_CreatesProgress(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	require.NoError(t, st.AddQuestion(ctx, storagetest.Question("q2", time.Hour)))
	require.NoError(t, st.AddQuestion(ctx, storagetest.Question("q1", 0)))
	engine := NewEngine(st, st)

	q, p, err := engine.ResolveNextQuestion(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "q1", q.ID)
	require.NotNil(t, p.NextQuestionID)
	assert.Equal(t, "q1", *p.NextQuestionID)

	stored, err := st.GetProgress(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, p, stored)

	// повторный вызов отдает тот же вопрос
	again, _, err := engine.ResolveNextQuestion(ctx, 1, stored)
	require.NoError(t, err)
	assert.Equal(t, "q1", again.ID)
}

func TestResolveNextQuestion_ExistingProgressWithoutNext(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	require.NoError(t, st.AddQuestion(ctx, storagetest.Question("q1", 0)))
	engine := NewEngine(st, st)

	_, err := st.CreateProgress(ctx, 1, nil)
	require.NoError(t, err)
	progress, err := st.GetProgress(ctx, 1)
	require.NoError(t, err)

	q, p, err := engine.ResolveNextQuestion(ctx, 1, progress)
	require.NoError(t, err)
	assert.Equal(t, "q1", q.ID)
	require.NotNil(t, p.NextQuestionID)

	stored, err := st.GetProgress(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, stored.NextQuestionID)
	assert.Equal(t, "q1", *stored.NextQuestionID)
}

func TestResolveNextQuestion_ContinuesExhaustedPool(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	require.NoError(t, st.AddQuestion(ctx, storagetest.Question("q1", 0)))
	engine := NewEngine(st, st)

	last := "q1"
	_, err := st.CreateProgress(ctx, 1, nil)
	require.NoError(t, err)
	progress := &models.UserProgress{UserID: 1, LastQuestionID: &last, LastQuizDate: calendar.Ptr(day(1))}
	require.NoError(t, st.UpdateProgress(ctx, progress))

	_, _, err = engine.ResolveNextQuestion(ctx, 1, progress)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.AddQuestion(ctx, storagetest.Question("q2", time.Hour)))

	q, p, err := engine.ResolveNextQuestion(ctx, 1, progress)
	require.NoError(t, err)
	assert.Equal(t, "q2", q.ID)
	require.NotNil(t, p.NextQuestionID)
	assert.Equal(t, "q2", *p.NextQuestionID)
}

func TestResolveNextQuestion_MissingNextQuestion(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	engine := NewEngine(st, st)

	missing := "gone"
	_, _, err := engine.ResolveNextQuestion(ctx, 1, &models.UserProgress{UserID: 1, NextQuestionID: &missing})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
