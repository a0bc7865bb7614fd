package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/letsssgooo/dailyquiz/internal/calendar"
	"github.com/letsssgooo/dailyquiz/internal/domain/models"
	"github.com/letsssgooo/dailyquiz/internal/storage"
)

// Storage реализует storage.Storage поверх PostgreSQL.
type Storage struct {
	pool *pgxpool.Pool
}

// dbtx - общее подмножество пула и транзакции.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// NewStorage подключается к базе по dsn и применяет схему.
func NewStorage(ctx context.Context, dsn string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}
	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Storage{pool: pool}, nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

const questionColumns = `id, question, answers, correct_answer_index, category, points, created_at`

func (s *Storage) AddQuestion(ctx context.Context, q *models.Question) error {
	query := `
	INSERT INTO questions (` + questionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query,
		q.ID, q.Text, q.Answers, q.CorrectAnswerIndex, string(q.Category), q.Points, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert question %s: %w", q.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("question %s: %w", q.ID, storage.ErrAlreadyExists)
	}

	return nil
}

func (s *Storage) GetQuestionByID(ctx context.Context, id string) (*models.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE id = $1`
	return scanQuestion(s.pool.QueryRow(ctx, query, id), "question "+id)
}

func (s *Storage) GetEarliestQuestion(ctx context.Context) (*models.Question, error) {
	query := `
	SELECT ` + questionColumns + ` FROM questions
	ORDER BY created_at, id
	LIMIT 1
	`
	return scanQuestion(s.pool.QueryRow(ctx, query), "earliest question")
}

func (s *Storage) GetNextQuestionAfter(ctx context.Context, q *models.Question) (*models.Question, error) {
	query := `
	SELECT ` + questionColumns + ` FROM questions
	WHERE (created_at, id) > ($1, $2)
	ORDER BY created_at, id
	LIMIT 1
	`
	return scanQuestion(s.pool.QueryRow(ctx, query, q.CreatedAt, q.ID), "question after "+q.ID)
}

func scanQuestion(row pgx.Row, what string) (*models.Question, error) {
	var (
		q        models.Question
		category string
	)

	err := row.Scan(&q.ID, &q.Text, &q.Answers, &q.CorrectAnswerIndex, &category, &q.Points, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}

	q.Category = models.Category(category)
	q.CreatedAt = q.CreatedAt.UTC()

	return &q, nil
}

const progressColumns = `telegram_id, next_question_id, last_question_id, last_quiz_date, streak, last_streak_date, quiz_points`

func (s *Storage) GetProgress(ctx context.Context, userID int64) (*models.UserProgress, error) {
	return getProgress(ctx, s.pool, userID)
}

func getProgress(ctx context.Context, db dbtx, userID int64) (*models.UserProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM user_progress WHERE telegram_id = $1`

	var (
		p                        models.UserProgress
		quizDate, lastStreakDate pgtype.Date
	)

	err := db.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.NextQuestionID,
		&p.LastQuestionID,
		&quizDate,
		&p.Streak,
		&lastStreakDate,
		&p.QuizPoints,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("progress of user %d: %w", userID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress of user %d: %w", userID, err)
	}

	p.LastQuizDate = fromPgDate(quizDate)
	p.LastStreakDate = fromPgDate(lastStreakDate)

	return &p, nil
}

func (s *Storage) CreateProgress(
	ctx context.Context,
	userID int64,
	nextQuestionID *string,
) (*models.UserProgress, error) {
	query := `
	INSERT INTO user_progress (telegram_id, next_question_id) VALUES ($1, $2)
	ON CONFLICT (telegram_id) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query, userID, nextQuestionID)
	if err != nil {
		return nil, fmt.Errorf("failed to create progress of user %d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("progress of user %d: %w", userID, storage.ErrAlreadyExists)
	}

	p := &models.UserProgress{UserID: userID}
	if nextQuestionID != nil {
		id := *nextQuestionID
		p.NextQuestionID = &id
	}

	return p, nil
}

func (s *Storage) UpdateProgress(ctx context.Context, p *models.UserProgress) error {
	query := `
	UPDATE user_progress
	SET next_question_id = $2, last_question_id = $3, last_quiz_date = $4,
	    streak = $5, last_streak_date = $6, quiz_points = $7
	WHERE telegram_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, progressArgs(p)...)
	if err != nil {
		return fmt.Errorf("failed to update progress of user %d: %w", p.UserID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("progress of user %d: %w", p.UserID, storage.ErrNotFound)
	}

	return nil
}

func (s *Storage) AssignNextQuestion(ctx context.Context, userID int64, questionID string) error {
	query := `
	UPDATE user_progress SET next_question_id = $2
	WHERE telegram_id = $1 AND next_question_id IS NULL
	`

	tag, err := s.pool.Exec(ctx, query, userID, questionID)
	if err != nil {
		return fmt.Errorf("failed to assign next question of user %d: %w", userID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := s.GetProgress(ctx, userID); err != nil {
		return err
	}
	return fmt.Errorf("next question of user %d: %w", userID, storage.ErrAlreadyExists)
}

func (s *Storage) GetTotalPoints(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT total_points FROM user_totals WHERE telegram_id = $1`

	var total int64
	err := s.pool.QueryRow(ctx, query, userID).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get total points of user %d: %w", userID, err)
	}

	return total, nil
}

func (s *Storage) AddTotalPoints(ctx context.Context, userID int64, delta int64) error {
	return addTotalPoints(ctx, s.pool, userID, delta)
}

func addTotalPoints(ctx context.Context, db dbtx, userID int64, delta int64) error {
	query := `
	INSERT INTO user_totals (telegram_id, total_points) VALUES ($1, $2)
	ON CONFLICT (telegram_id) DO UPDATE SET total_points = user_totals.total_points + EXCLUDED.total_points
	`

	if _, err := db.Exec(ctx, query, userID, delta); err != nil {
		return fmt.Errorf("failed to add total points of user %d: %w", userID, err)
	}
	return nil
}

// CommitAnswer применяет результат ответа в одной транзакции. Строка
// прогресса обновляется, только если last_quiz_date отличается от c.Today.
func (s *Storage) CommitAnswer(ctx context.Context, c storage.AnswerCommit) error {
	userID := c.Progress.UserID

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // после Commit возвращает ErrTxClosed

	query := `
	UPDATE user_progress
	SET next_question_id = $2, last_question_id = $3, last_quiz_date = $4,
	    streak = $5, last_streak_date = $6, quiz_points = $7
	WHERE telegram_id = $1 AND last_quiz_date IS DISTINCT FROM $8
	`

	args := append(progressArgs(c.Progress), toPgDate(&c.Today))
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update progress of user %d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := getProgress(ctx, tx, userID); err != nil {
			return err
		}
		return fmt.Errorf("user %d on %s: %w", userID, c.Today, storage.ErrAlreadyAnswered)
	}

	if c.PointsDelta != 0 {
		if err := addTotalPoints(ctx, tx, userID, c.PointsDelta); err != nil {
			return err
		}
	}

	r := c.Record
	insert := `
	INSERT INTO quiz_responses
		(telegram_id, question_id, selected_answer_index, is_correct, points_earned, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.Exec(ctx, insert, userID, r.QuestionID, r.SelectedAnswerIndex, r.IsCorrect, r.PointsEarned, r.AnsweredAt)
	if err != nil {
		return fmt.Errorf("failed to insert answer of user %d: %w", userID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit answer of user %d: %w", userID, err)
	}

	return nil
}

func (s *Storage) ListAnswers(ctx context.Context, userID int64, limit int) ([]models.AnswerRecord, error) {
	if limit <= 0 {
		return []models.AnswerRecord{}, nil
	}

	query := `
	SELECT question_id, selected_answer_index, is_correct, points_earned, created_at
	FROM quiz_responses
	WHERE telegram_id = $1
	ORDER BY id DESC
	LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers of user %d: %w", userID, err)
	}
	defer rows.Close()

	records := make([]models.AnswerRecord, 0, limit)
	for rows.Next() {
		r := models.AnswerRecord{UserID: userID}
		if err := rows.Scan(&r.QuestionID, &r.SelectedAnswerIndex, &r.IsCorrect, &r.PointsEarned, &r.AnsweredAt); err != nil {
			return nil, fmt.Errorf("failed to scan answer of user %d: %w", userID, err)
		}
		r.AnsweredAt = r.AnsweredAt.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list answers of user %d: %w", userID, err)
	}

	return records, nil
}

func progressArgs(p *models.UserProgress) []interface{} {
	return []interface{}{
		p.UserID,
		p.NextQuestionID,
		p.LastQuestionID,
		toPgDate(p.LastQuizDate),
		p.Streak,
		toPgDate(p.LastStreakDate),
		p.QuizPoints,
	}
}

func toPgDate(d *calendar.Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{Status: pgtype.Null}
	}
	return pgtype.Date{Time: d.Time(), Status: pgtype.Present}
}

func fromPgDate(d pgtype.Date) *calendar.Date {
	if d.Status != pgtype.Present {
		return nil
	}
	return calendar.Ptr(calendar.Of(d.Time, time.UTC))
}
