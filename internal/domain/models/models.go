package models

import (
	"time"

	"github.com/letsssgooo/dailyquiz/internal/calendar"
)

// Модели, общие для движка квиза, хранилищ и транспорта.
// Хранилища заполняют их из своих таблиц и отдают наружу.

// Category - тематика вопроса.
type Category string

const (
	CategoryDeFi    Category = "defi"
	CategoryNFT     Category = "nft"
	CategoryDAO     Category = "dao"
	CategoryGeneral Category = "general"
)

// Question определяет вопрос дня. После создания не изменяется.
type Question struct {
	ID                 string    `json:"id"`
	Text               string    `json:"question"`
	Answers            []string  `json:"answers"`
	CorrectAnswerIndex int       `json:"correct_answer_index"`
	Category           Category  `json:"category"`
	Points             int       `json:"points"`
	CreatedAt          time.Time `json:"created_at"`
}

// Before сообщает, что вопрос q идет в пуле раньше other.
// Порядок задается created_at, при равенстве - id.
func (q *Question) Before(other *Question) bool {
	if !q.CreatedAt.Equal(other.CreatedAt) {
		return q.CreatedAt.Before(other.CreatedAt)
	}
	return q.ID < other.ID
}

// UserProgress определяет прогресс пользователя в ежедневном квизе.
// LastQuestionID - последний отвеченный вопрос, по нему продолжается
// пул, когда в него добавляют новые вопросы.
type UserProgress struct {
	UserID         int64
	NextQuestionID *string
	LastQuestionID *string
	LastQuizDate   *calendar.Date
	Streak         int
	LastStreakDate *calendar.Date
	QuizPoints     int64
}

// Clone возвращает глубокую копию прогресса.
func (p *UserProgress) Clone() *UserProgress {
	c := *p
	if p.NextQuestionID != nil {
		id := *p.NextQuestionID
		c.NextQuestionID = &id
	}
	if p.LastQuestionID != nil {
		id := *p.LastQuestionID
		c.LastQuestionID = &id
	}
	if p.LastQuizDate != nil {
		c.LastQuizDate = calendar.Ptr(*p.LastQuizDate)
	}
	if p.LastStreakDate != nil {
		c.LastStreakDate = calendar.Ptr(*p.LastStreakDate)
	}
	return &c
}

// AnswerOutcome - результат проверки ответа.
type AnswerOutcome struct {
	IsCorrect     bool `json:"is_correct"`
	NewStreak     int  `json:"new_streak"`
	PointsAwarded int  `json:"points_awarded"`
}

// AnswerRecord определяет запись в журнале ответов.
type AnswerRecord struct {
	QuestionID          string    `json:"question_id"`
	UserID              int64     `json:"telegram_id"`
	SelectedAnswerIndex int       `json:"selected_answer_index"`
	IsCorrect           bool      `json:"is_correct"`
	PointsEarned        int       `json:"points_earned"`
	AnsweredAt          time.Time `json:"created_at"`
}
