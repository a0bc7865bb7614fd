package quiz

import (
	"context"
	"errors"
	"fmt"

	"github.com/letsssgooo/dailyquiz/internal/calendar"
	"github.com/letsssgooo/dailyquiz/internal/domain/models"
	"github.com/letsssgooo/dailyquiz/internal/storage"
)

const (
	// MaxStreak - максимальная длина серии.
	MaxStreak = 5

	// BasePoints - очки за верный ответ при серии длины 1.
	BasePoints = 10
)

// CanAnswerToday сообщает, может ли пользователь ответить в день today.
// Ответ запрещен, только если last_quiz_date совпадает с today.
func CanAnswerToday(progress *models.UserProgress, today calendar.Date) bool {
	if progress == nil {
		return true
	}
	return !calendar.Equal(progress.LastQuizDate, today)
}

// SubmitAnswer проверяет ответ selectedIndex на вопрос question в день today
// и считает новую серию и начисленные очки. Функция чистая: ничего не
// сохраняет, результат применяет вызывающий код (см. ApplyOutcome).
func SubmitAnswer(
	progress *models.UserProgress,
	question *models.Question,
	selectedIndex int,
	today calendar.Date,
) (models.AnswerOutcome, error) {
	if question == nil {
		return models.AnswerOutcome{}, fmt.Errorf("%w: question is nil", ErrInvalidInput)
	}
	if selectedIndex < 0 || selectedIndex >= len(question.Answers) {
		return models.AnswerOutcome{}, fmt.Errorf(
			"%w: answer index %d is out of range [0, %d)",
			ErrInvalidInput,
			selectedIndex,
			len(question.Answers),
		)
	}
	if today.IsZero() {
		return models.AnswerOutcome{}, fmt.Errorf("%w: date is not set", ErrInvalidInput)
	}

	if selectedIndex != question.CorrectAnswerIndex {
		return models.AnswerOutcome{IsCorrect: false}, nil
	}

	newStreak := 1
	// серия продолжается, только если последний верный ответ был вчера
	if progress != nil && progress.LastStreakDate != nil && calendar.DaysBetween(*progress.LastStreakDate, today) == 1 {
		newStreak = min(progress.Streak+1, MaxStreak)
	}

	return models.AnswerOutcome{
		IsCorrect:     true,
		NewStreak:     newStreak,
		PointsAwarded: BasePoints * newStreak,
	}, nil
}

// ApplyOutcome возвращает прогресс после ответа на question в день today.
// next - следующий вопрос пула или nil, если пул закончился.
func ApplyOutcome(
	progress *models.UserProgress,
	question *models.Question,
	outcome models.AnswerOutcome,
	today calendar.Date,
	next *models.Question,
) *models.UserProgress {
	updated := progress.Clone()

	answered := question.ID
	updated.LastQuestionID = &answered
	updated.LastQuizDate = calendar.Ptr(today)
	updated.Streak = outcome.NewStreak
	updated.QuizPoints += int64(outcome.PointsAwarded)

	updated.LastStreakDate = nil
	if outcome.IsCorrect {
		updated.LastStreakDate = calendar.Ptr(today)
	}

	updated.NextQuestionID = nil
	if next != nil {
		id := next.ID
		updated.NextQuestionID = &id
	}

	return updated
}

// Engine определяет очередность вопросов поверх хранилища.
type Engine struct {
	questions storage.QuestionRepository
	progress  storage.ProgressRepository
}

// NewEngine создаёт новый Engine.
func NewEngine(questions storage.QuestionRepository, progress storage.ProgressRepository) *Engine {
	return &Engine{
		questions: questions,
		progress:  progress,
	}
}

// ResolveNextQuestion возвращает текущий вопрос пользователя userID.
// progress может быть nil, если прогресса еще нет: тогда он создается
// с первым вопросом пула. Возвращает вопрос и актуальный прогресс.
// Если вопросов нет, возвращает ErrNotFound и ничего не создает.
func (e *Engine) ResolveNextQuestion(
	ctx context.Context,
	userID int64,
	progress *models.UserProgress,
) (*models.Question, *models.UserProgress, error) {
	if progress != nil && progress.NextQuestionID != nil {
		q, err := e.questions.GetQuestionByID(ctx, *progress.NextQuestionID)
		if err != nil {
			return nil, nil, storageErr("get next question", err)
		}
		return q, progress, nil
	}

	if progress != nil && progress.LastQuestionID != nil {
		return e.continuePool(ctx, progress)
	}

	q, err := e.questions.GetEarliestQuestion(ctx)
	if err != nil {
		return nil, nil, storageErr("get earliest question", err)
	}
	id := q.ID

	if progress == nil {
		created, err := e.progress.CreateProgress(ctx, userID, &id)
		if errors.Is(err, storage.ErrAlreadyExists) {
			// прогресс создали параллельно, продолжаем от сохраненного
			existing, err := e.progress.GetProgress(ctx, userID)
			if err != nil {
				return nil, nil, storageErr("get progress", err)
			}
			return e.ResolveNextQuestion(ctx, userID, existing)
		}
		if err != nil {
			return nil, nil, storageErr("create progress", err)
		}
		return q, created, nil
	}

	return e.assign(ctx, progress, q)
}

// continuePool ищет вопрос после последнего отвеченного, когда пул был исчерпан.
func (e *Engine) continuePool(
	ctx context.Context,
	progress *models.UserProgress,
) (*models.Question, *models.UserProgress, error) {
	last, err := e.questions.GetQuestionByID(ctx, *progress.LastQuestionID)
	if err != nil {
		return nil, nil, storageErr("get last question", err)
	}

	next, err := e.NextAfter(ctx, last)
	if err != nil {
		return nil, nil, err
	}
	if next == nil {
		return nil, nil, fmt.Errorf("question after %s: %w", last.ID, ErrNotFound)
	}

	return e.assign(ctx, progress, next)
}

// assign закрепляет q следующим вопросом пользователя. Если вопрос уже
// назначил параллельный запрос, продолжает от сохраненного прогресса.
func (e *Engine) assign(
	ctx context.Context,
	progress *models.UserProgress,
	q *models.Question,
) (*models.Question, *models.UserProgress, error) {
	err := e.progress.AssignNextQuestion(ctx, progress.UserID, q.ID)
	if errors.Is(err, storage.ErrAlreadyExists) {
		existing, err := e.progress.GetProgress(ctx, progress.UserID)
		if err != nil {
			return nil, nil, storageErr("get progress", err)
		}
		return e.ResolveNextQuestion(ctx, progress.UserID, existing)
	}
	if err != nil {
		return nil, nil, storageErr("assign next question", err)
	}

	updated := progress.Clone()
	id := q.ID
	updated.NextQuestionID = &id

	return q, updated, nil
}

// NextAfter возвращает вопрос, следующий за q, или nil в конце пула.
func (e *Engine) NextAfter(ctx context.Context, q *models.Question) (*models.Question, error) {
	next, err := e.questions.GetNextQuestionAfter(ctx, q)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get next question after "+q.ID, err)
	}
	return next, nil
}
