// Package sqlite реализует storage.Storage поверх SQLite (modernc.org/sqlite, без cgo).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // регистрирует драйвер sqlite

	"github.com/letsssgooo/dailyquiz/internal/calendar"
	"github.com/letsssgooo/dailyquiz/internal/domain/models"
	"github.com/letsssgooo/dailyquiz/internal/storage"
)

// Storage хранит вопросы и прогресс в файле SQLite.
type Storage struct {
	db *sql.DB
}

// New открывает базу по dsn и применяет схему.
// Для тестов подходит dsn ":memory:".
func New(ctx context.Context, dsn string) (*Storage, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite допускает одного писателя; одно соединение к тому же
	// сохраняет общую базу для ":memory:".
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close закрывает соединение с базой.
func (s *Storage) Close() error {
	return s.db.Close()
}

const questionColumns = `id, question, answers, correct_answer_index, category, points, created_at`

// AddQuestion сохраняет вопрос.
func (s *Storage) AddQuestion(ctx context.Context, q *models.Question) error {
	answers, err := json.Marshal(q.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers of question %s: %w", q.ID, err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO questions (`+questionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`,
		q.ID,
		q.Text,
		string(answers),
		q.CorrectAnswerIndex,
		string(q.Category),
		q.Points,
		q.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert question %s: %w", q.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to insert question %s: %w", q.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("question %s: %w", q.ID, storage.ErrAlreadyExists)
	}

	return nil
}

// GetQuestionByID возвращает вопрос по ID.
func (s *Storage) GetQuestionByID(ctx context.Context, id string) (*models.Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	return scanQuestion(row, "question "+id)
}

// GetEarliestQuestion возвращает первый вопрос пула.
func (s *Storage) GetEarliestQuestion(ctx context.Context) (*models.Question, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+questionColumns+` FROM questions
		ORDER BY created_at, id
		LIMIT 1
	`)
	return scanQuestion(row, "earliest question")
}

// GetNextQuestionAfter возвращает вопрос, следующий за q.
func (s *Storage) GetNextQuestionAfter(ctx context.Context, q *models.Question) (*models.Question, error) {
	createdAt := q.CreatedAt.UnixNano()
	row := s.db.QueryRowContext(ctx, `
		SELECT `+questionColumns+` FROM questions
		WHERE created_at > ? OR (created_at = ? AND id > ?)
		ORDER BY created_at, id
		LIMIT 1
	`, createdAt, createdAt, q.ID)
	return scanQuestion(row, "question after "+q.ID)
}

func scanQuestion(row *sql.Row, what string) (*models.Question, error) {
	var (
		q         models.Question
		answers   string
		category  string
		createdAt int64
	)
	err := row.Scan(&q.ID, &q.Text, &answers, &q.CorrectAnswerIndex, &category, &q.Points, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}

	if err := json.Unmarshal([]byte(answers), &q.Answers); err != nil {
		return nil, fmt.Errorf("failed to decode answers of %s: %w", what, err)
	}
	q.Category = models.Category(category)
	q.CreatedAt = time.Unix(0, createdAt).UTC()

	return &q, nil
}

const progressColumns = `telegram_id, next_question_id, last_question_id, last_quiz_date, streak, last_streak_date, quiz_points`

// GetProgress возвращает прогресс пользователя.
func (s *Storage) GetProgress(ctx context.Context, userID int64) (*models.UserProgress, error) {
	return getProgress(ctx, s.db, userID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getProgress(ctx context.Context, db querier, userID int64) (*models.UserProgress, error) {
	var (
		p              models.UserProgress
		next, last     sql.NullString
		quizDate       sql.NullString
		lastStreakDate sql.NullString
	)

	err := db.QueryRowContext(ctx, `SELECT `+progressColumns+` FROM user_progress WHERE telegram_id = ?`, userID).
		Scan(&p.UserID, &next, &last, &quizDate, &p.Streak, &lastStreakDate, &p.QuizPoints)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("progress of user %d: %w", userID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress of user %d: %w", userID, err)
	}

	p.NextQuestionID = nullString(next)
	p.LastQuestionID = nullString(last)
	if p.LastQuizDate, err = nullDate(quizDate); err != nil {
		return nil, fmt.Errorf("progress of user %d: %w", userID, err)
	}
	if p.LastStreakDate, err = nullDate(lastStreakDate); err != nil {
		return nil, fmt.Errorf("progress of user %d: %w", userID, err)
	}

	return &p, nil
}

// CreateProgress создает прогресс пользователя.
func (s *Storage) CreateProgress(
	ctx context.Context,
	userID int64,
	nextQuestionID *string,
) (*models.UserProgress, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO user_progress (telegram_id, next_question_id)
		VALUES (?, ?)
		ON CONFLICT (telegram_id) DO NOTHING
	`, userID, toNullString(nextQuestionID))
	if err != nil {
		return nil, fmt.Errorf("failed to create progress of user %d: %w", userID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to create progress of user %d: %w", userID, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("progress of user %d: %w", userID, storage.ErrAlreadyExists)
	}

	p := &models.UserProgress{UserID: userID}
	if nextQuestionID != nil {
		id := *nextQuestionID
		p.NextQuestionID = &id
	}

	return p, nil
}

// UpdateProgress перезаписывает прогресс пользователя.
func (s *Storage) UpdateProgress(ctx context.Context, p *models.UserProgress) error {
	n, err := updateProgress(ctx, s.db, p, nil)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("progress of user %d: %w", p.UserID, storage.ErrNotFound)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// updateProgress перезаписывает прогресс. Если today задан, строка
// обновляется, только когда last_quiz_date отличается от today.
func updateProgress(ctx context.Context, db execer, p *models.UserProgress, today *calendar.Date) (int64, error) {
	query := `
		UPDATE user_progress
		SET next_question_id = ?, last_question_id = ?, last_quiz_date = ?,
		    streak = ?, last_streak_date = ?, quiz_points = ?
		WHERE telegram_id = ?`
	args := []any{
		toNullString(p.NextQuestionID),
		toNullString(p.LastQuestionID),
		toNullDate(p.LastQuizDate),
		p.Streak,
		toNullDate(p.LastStreakDate),
		p.QuizPoints,
		p.UserID,
	}
	if today != nil {
		query += ` AND (last_quiz_date IS NULL OR last_quiz_date <> ?)`
		args = append(args, today.String())
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update progress of user %d: %w", p.UserID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to update progress of user %d: %w", p.UserID, err)
	}
	return n, nil
}

// AssignNextQuestion назначает следующий вопрос, если он еще не назначен.
func (s *Storage) AssignNextQuestion(ctx context.Context, userID int64, questionID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_progress SET next_question_id = ?
		WHERE telegram_id = ? AND next_question_id IS NULL
	`, questionID, userID)
	if err != nil {
		return fmt.Errorf("failed to assign next question of user %d: %w", userID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to assign next question of user %d: %w", userID, err)
	}
	if n > 0 {
		return nil
	}

	if _, err := s.GetProgress(ctx, userID); err != nil {
		return err
	}
	return fmt.Errorf("next question of user %d: %w", userID, storage.ErrAlreadyExists)
}

// GetTotalPoints возвращает общий счет пользователя.
func (s *Storage) GetTotalPoints(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT total_points FROM user_totals WHERE telegram_id = ?`, userID).
		Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get total points of user %d: %w", userID, err)
	}
	return total, nil
}

// AddTotalPoints прибавляет delta к общему счету.
func (s *Storage) AddTotalPoints(ctx context.Context, userID int64, delta int64) error {
	return addTotalPoints(ctx, s.db, userID, delta)
}

func addTotalPoints(ctx context.Context, db execer, userID int64, delta int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO user_totals (telegram_id, total_points)
		VALUES (?, ?)
		ON CONFLICT (telegram_id) DO UPDATE SET total_points = total_points + excluded.total_points
	`, userID, delta)
	if err != nil {
		return fmt.Errorf("failed to add total points of user %d: %w", userID, err)
	}
	return nil
}

// CommitAnswer применяет результат ответа в одной транзакции.
func (s *Storage) CommitAnswer(ctx context.Context, c storage.AnswerCommit) (err error) {
	userID := c.Progress.UserID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	n, err := updateProgress(ctx, tx, c.Progress, &c.Today)
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err = getProgress(ctx, tx, userID); err != nil {
			return err
		}
		err = fmt.Errorf("user %d on %s: %w", userID, c.Today, storage.ErrAlreadyAnswered)
		return err
	}

	if c.PointsDelta != 0 {
		if err = addTotalPoints(ctx, tx, userID, c.PointsDelta); err != nil {
			return err
		}
	}

	r := c.Record
	_, err = tx.ExecContext(ctx, `
		INSERT INTO quiz_responses
			(telegram_id, question_id, selected_answer_index, is_correct, points_earned, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, userID, r.QuestionID, r.SelectedAnswerIndex, r.IsCorrect, r.PointsEarned, r.AnsweredAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert answer of user %d: %w", userID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit answer of user %d: %w", userID, err)
	}

	return nil
}

// ListAnswers возвращает последние ответы пользователя.
func (s *Storage) ListAnswers(ctx context.Context, userID int64, limit int) ([]models.AnswerRecord, error) {
	if limit <= 0 {
		return []models.AnswerRecord{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT question_id, selected_answer_index, is_correct, points_earned, created_at
		FROM quiz_responses
		WHERE telegram_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers of user %d: %w", userID, err)
	}
	defer rows.Close()

	records := make([]models.AnswerRecord, 0, limit)
	for rows.Next() {
		r := models.AnswerRecord{UserID: userID}
		var answeredAt int64
		if err := rows.Scan(&r.QuestionID, &r.SelectedAnswerIndex, &r.IsCorrect, &r.PointsEarned, &answeredAt); err != nil {
			return nil, fmt.Errorf("failed to scan answer of user %d: %w", userID, err)
		}
		r.AnsweredAt = time.Unix(0, answeredAt).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list answers of user %d: %w", userID, err)
	}

	return records, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullDate(ns sql.NullString) (*calendar.Date, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := calendar.Parse(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func toNullDate(d *calendar.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
