package storage

import (
	"context"
	"errors"

	"github.com/letsssgooo/dailyquiz/internal/calendar"
	"github.com/letsssgooo/dailyquiz/internal/domain/models"
)

// Ошибки хранилища. Все прочие ошибки означают недоступность бэкенда.
var (
	ErrNotFound        = errors.New("record not found")
	ErrAlreadyExists   = errors.New("record already exists")
	ErrAlreadyAnswered = errors.New("already answered today")
)

// QuestionRepository определяет интерфейс для хранения пула вопросов.
type QuestionRepository interface {
	// AddQuestion сохраняет новый вопрос.
	AddQuestion(ctx context.Context, q *models.Question) error

	// GetQuestionByID возвращает вопрос по ID или ErrNotFound.
	GetQuestionByID(ctx context.Context, id string) (*models.Question, error)

	// GetEarliestQuestion возвращает самый ранний вопрос пула или ErrNotFound.
	GetEarliestQuestion(ctx context.Context) (*models.Question, error)

	// GetNextQuestionAfter возвращает вопрос, следующий за q в порядке (created_at, id),
	// или ErrNotFound, если q последний.
	GetNextQuestionAfter(ctx context.Context, q *models.Question) (*models.Question, error)
}

// ProgressRepository определяет интерфейс для хранения прогресса и счета пользователей.
type ProgressRepository interface {
	// GetProgress возвращает прогресс пользователя или ErrNotFound.
	GetProgress(ctx context.Context, userID int64) (*models.UserProgress, error)

	// CreateProgress создает прогресс пользователя. Если он уже есть, возвращает ErrAlreadyExists.
	CreateProgress(ctx context.Context, userID int64, nextQuestionID *string) (*models.UserProgress, error)

	// UpdateProgress перезаписывает прогресс пользователя p.UserID.
	UpdateProgress(ctx context.Context, p *models.UserProgress) error

	// AssignNextQuestion записывает next_question_id, только если он пуст.
	// Если вопрос уже назначен, возвращает ErrAlreadyExists, если прогресса нет - ErrNotFound.
	AssignNextQuestion(ctx context.Context, userID int64, questionID string) error

	// GetTotalPoints возвращает общий счет пользователя (0, если записи нет).
	GetTotalPoints(ctx context.Context, userID int64) (int64, error)

	// AddTotalPoints прибавляет delta к общему счету, создавая запись при необходимости.
	AddTotalPoints(ctx context.Context, userID int64, delta int64) error

	// CommitAnswer атомарно применяет результат ответа, см. AnswerCommit.
	CommitAnswer(ctx context.Context, c AnswerCommit) error

	// ListAnswers возвращает последние limit ответов пользователя, новые первыми.
	ListAnswers(ctx context.Context, userID int64, limit int) ([]models.AnswerRecord, error)
}

// Storage объединяет все репозитории.
type Storage interface {
	QuestionRepository
	ProgressRepository

	// Close освобождает ресурсы хранилища.
	Close() error
}

// AnswerCommit описывает изменения после ответа пользователя.
// Прогресс перезаписывается, счет увеличивается на PointsDelta, ответ
// добавляется в журнал - все в одной транзакции и только если сохраненный
// last_quiz_date не равен Today. Иначе возвращается ErrAlreadyAnswered.
type AnswerCommit struct {
	Progress    *models.UserProgress
	Today       calendar.Date
	PointsDelta int64
	Record      models.AnswerRecord
}
