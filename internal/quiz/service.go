package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/letsssgooo/dailyquiz/internal/calendar"
	"github.com/letsssgooo/dailyquiz/internal/domain/models"
	"github.com/letsssgooo/dailyquiz/internal/storage"
)

// Guard отсекает повторные ответы до обращения к хранилищу.
// Окончательную проверку все равно делает storage.CommitAnswer.
type Guard interface {
	// Acquire занимает слот ответа пользователя на день day.
	// Возвращает false, если слот уже занят.
	Acquire(ctx context.Context, userID int64, day calendar.Date) (bool, error)

	// Release освобождает слот, если ответ не удалось сохранить.
	Release(ctx context.Context, userID int64, day calendar.Date) error
}

// DailyState описывает состояние квиза пользователя на сегодня.
type DailyState struct {
	Today       calendar.Date
	CanAnswer   bool
	Question    *models.Question
	Streak      int
	QuizPoints  int64
	TotalPoints int64
}

// AnswerResult - итог принятого ответа.
type AnswerResult struct {
	models.AnswerOutcome
	CorrectAnswerIndex int
	NextQuestionID     *string
	Streak             int
	QuizPoints         int64
	TotalPoints        int64
}

// Stats - сводка по пользователю.
type Stats struct {
	UserID         int64
	Today          calendar.Date
	CanAnswer      bool
	Streak         int
	LastStreakDate *calendar.Date
	QuizPoints     int64
	TotalPoints    int64
}

// Service реализует сценарии ежедневного квиза поверх Engine и хранилища.
type Service struct {
	engine *Engine
	store  storage.Storage
	guard  Guard
	loc    *time.Location
	now    func() time.Time
	log    *slog.Logger
}

// Option настраивает Service.
type Option func(*Service)

// WithGuard включает предварительную проверку повторных ответов.
func WithGuard(g Guard) Option {
	return func(s *Service) { s.guard = g }
}

// WithLocation задает часовой пояс, в котором считаются календарные дни.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger задает логгер.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService создаёт новый Service.
func NewService(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		engine: NewEngine(store, store),
		store:  store,
		loc:    time.Local,
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today возвращает текущую календарную дату в часовом поясе сервиса.
func (s *Service) Today() calendar.Date {
	return calendar.Of(s.now(), s.loc)
}

// Daily возвращает вопрос дня для пользователя userID.
// Если пользователь уже ответил сегодня, CanAnswer равен false и Question пуст.
func (s *Service) Daily(ctx context.Context, userID int64) (*DailyState, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id %d", ErrInvalidInput, userID)
	}

	progress, err := s.loadProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	total, err := s.store.GetTotalPoints(ctx, userID)
	if err != nil {
		return nil, storageErr("get total points", err)
	}

	today := s.Today()
	state := &DailyState{
		Today:       today,
		CanAnswer:   CanAnswerToday(progress, today),
		TotalPoints: total,
	}
	if progress != nil {
		state.Streak = progress.Streak
		state.QuizPoints = progress.QuizPoints
	}

	if !state.CanAnswer {
		return state, nil
	}

	q, _, err := s.engine.ResolveNextQuestion(ctx, userID, progress)
	if err != nil {
		return nil, err
	}
	state.Question = q

	s.log.Debug("daily question resolved", "user_id", userID, "question_id", q.ID)

	return state, nil
}

// Answer принимает ответ selectedIndex пользователя userID на вопрос questionID.
func (s *Service) Answer(
	ctx context.Context,
	userID int64,
	questionID string,
	selectedIndex int,
) (*AnswerResult, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id %d", ErrInvalidInput, userID)
	}

	today := s.Today()

	progress, err := s.loadProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !CanAnswerToday(progress, today) {
		return nil, fmt.Errorf("user %d on %s: %w", userID, today, ErrAlreadyAnswered)
	}

	question, progress, err := s.engine.ResolveNextQuestion(ctx, userID, progress)
	if err != nil {
		return nil, err
	}
	if question.ID != questionID {
		return nil, fmt.Errorf("%w: question %s is not the daily question", ErrInvalidInput, questionID)
	}

	outcome, err := SubmitAnswer(progress, question, selectedIndex, today)
	if err != nil {
		return nil, err
	}

	next, err := s.engine.NextAfter(ctx, question)
	if err != nil {
		return nil, err
	}

	updated := ApplyOutcome(progress, question, outcome, today, next)

	if s.guard != nil {
		ok, err := s.guard.Acquire(ctx, userID, today)
		switch {
		case err != nil:
			s.log.Warn("answer guard unavailable, relying on storage", "user_id", userID, "error", err)
		case !ok:
			return nil, fmt.Errorf("user %d on %s: %w", userID, today, ErrAlreadyAnswered)
		}
	}

	err = s.store.CommitAnswer(ctx, storage.AnswerCommit{
		Progress:    updated,
		Today:       today,
		PointsDelta: int64(outcome.PointsAwarded),
		Record: models.AnswerRecord{
			QuestionID:          question.ID,
			UserID:              userID,
			SelectedAnswerIndex: selectedIndex,
			IsCorrect:           outcome.IsCorrect,
			PointsEarned:        outcome.PointsAwarded,
			AnsweredAt:          s.now(),
		},
	})
	if err != nil {
		if s.guard != nil && !errors.Is(err, storage.ErrAlreadyAnswered) {
			s.releaseGuard(ctx, userID, today)
		}
		return nil, storageErr("commit answer", err)
	}

	total, err := s.store.GetTotalPoints(ctx, userID)
	if err != nil {
		return nil, storageErr("get total points", err)
	}

	s.log.Info("answer accepted",
		"user_id", userID,
		"question_id", question.ID,
		"correct", outcome.IsCorrect,
		"streak", outcome.NewStreak,
		"points", outcome.PointsAwarded,
	)

	return &AnswerResult{
		AnswerOutcome:      outcome,
		CorrectAnswerIndex: question.CorrectAnswerIndex,
		NextQuestionID:     updated.NextQuestionID,
		Streak:             updated.Streak,
		QuizPoints:         updated.QuizPoints,
		TotalPoints:        total,
	}, nil
}

// Stats возвращает сводку по пользователю. Пользователь без прогресса получает нулевую сводку.
func (s *Service) Stats(ctx context.Context, userID int64) (*Stats, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id %d", ErrInvalidInput, userID)
	}

	progress, err := s.loadProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	total, err := s.store.GetTotalPoints(ctx, userID)
	if err != nil {
		return nil, storageErr("get total points", err)
	}

	today := s.Today()
	stats := &Stats{
		UserID:      userID,
		Today:       today,
		CanAnswer:   CanAnswerToday(progress, today),
		TotalPoints: total,
	}
	if progress != nil {
		stats.Streak = progress.Streak
		stats.LastStreakDate = progress.LastStreakDate
		stats.QuizPoints = progress.QuizPoints
	}

	return stats, nil
}

// History возвращает последние limit ответов пользователя.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]models.AnswerRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id %d", ErrInvalidInput, userID)
	}
	if limit <= 0 || limit > maxHistory {
		return nil, fmt.Errorf("%w: limit must be in [1, %d]", ErrInvalidInput, maxHistory)
	}

	records, err := s.store.ListAnswers(ctx, userID, limit)
	if err != nil {
		return nil, storageErr("list answers", err)
	}
	return records, nil
}

const maxHistory = 100

// releaseTimeout ограничивает снятие слота после неудачной записи ответа.
const releaseTimeout = 2 * time.Second

// releaseGuard снимает слот ответа. ctx запроса к этому моменту может быть
// уже отменен или истечь, слот все равно снимается на собственном таймауте.
func (s *Service) releaseGuard(ctx context.Context, userID int64, day calendar.Date) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := s.guard.Release(ctx, userID, day); err != nil {
		s.log.Warn("failed to release answer guard", "user_id", userID, "error", err)
	}
}

// loadProgress возвращает прогресс пользователя или nil, если его еще нет.
func (s *Service) loadProgress(ctx context.Context, userID int64) (*models.UserProgress, error) {
	progress, err := s.store.GetProgress(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get progress", err)
	}
	return progress, nil
}
