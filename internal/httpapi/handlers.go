package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/letsssgooo/dailyquiz/internal/domain/models"
	"github.com/letsssgooo/dailyquiz/internal/quiz"
)

var validate = newValidator()

// newValidator возвращает валидатор, называющий поля по json тегам.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// questionResponse - вопрос без индекса правильного ответа.
type questionResponse struct {
	ID       string          `json:"id"`
	Question string          `json:"question"`
	Answers  []string        `json:"answers"`
	Category models.Category `json:"category"`
	Points   int             `json:"points"`
}

type dailyResponse struct {
	Today       string            `json:"today"`
	CanAnswer   bool              `json:"canAnswer"`
	Question    *questionResponse `json:"question,omitempty"`
	Streak      int               `json:"streak"`
	QuizPoints  int64             `json:"quizPoints"`
	TotalPoints int64             `json:"totalPoints"`
}

type answerRequest struct {
	UserID      int64  `json:"userId" validate:"required,gt=0"`
	QuestionID  string `json:"questionId" validate:"required"`
	AnswerIndex *int   `json:"answerIndex" validate:"required,gte=0"`
}

type answerResponse struct {
	IsCorrect          bool    `json:"isCorrect"`
	NewStreak          int     `json:"newStreak"`
	PointsAwarded      int     `json:"pointsAwarded"`
	CorrectAnswerIndex int     `json:"correctAnswerIndex"`
	NextQuestionID     *string `json:"nextQuestionId"`
	QuizPoints         int64   `json:"quizPoints"`
	TotalPoints        int64   `json:"totalPoints"`
}

type statsResponse struct {
	UserID         int64   `json:"userId"`
	Today          string  `json:"today"`
	CanAnswer      bool    `json:"canAnswer"`
	Streak         int     `json:"streak"`
	LastStreakDate *string `json:"lastStreakDate"`
	QuizPoints     int64   `json:"quizPoints"`
	TotalPoints    int64   `json:"totalPoints"`
}

type clientLogRequest struct {
	Level     string                 `json:"level" validate:"required,oneof=debug info warn error"`
	Message   string                 `json:"message" validate:"required,max=2000"`
	Data      map[string]interface{} `json:"data"`
	Timestamp string                 `json:"timestamp"`
}

const defaultHistoryLimit = 20

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return Success(c, fiber.StatusOK, fiber.Map{"status": "ok"})
}

func (s *Server) handleDaily(c *fiber.Ctx) error {
	userID, err := queryUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	state, err := s.svc.Daily(ctx, userID)
	if err != nil {
		return err
	}

	resp := dailyResponse{
		Today:       state.Today.String(),
		CanAnswer:   state.CanAnswer,
		Streak:      state.Streak,
		QuizPoints:  state.QuizPoints,
		TotalPoints: state.TotalPoints,
	}
	if q := state.Question; q != nil {
		resp.Question = &questionResponse{
			ID:       q.ID,
			Question: q.Text,
			Answers:  q.Answers,
			Category: q.Category,
			Points:   q.Points,
		}
	}

	return Success(c, fiber.StatusOK, resp)
}

func (s *Server) handleAnswer(c *fiber.Ctx) error {
	req := &answerRequest{}
	if err := c.BodyParser(req); err != nil {
		return fmt.Errorf("%w: cannot parse body: %w", quiz.ErrInvalidInput, err)
	}
	if err := validate.Struct(req); err != nil {
		return Error(c, fiber.StatusBadRequest, quiz.ErrInvalidInput, validationDetails(err))
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	res, err := s.svc.Answer(ctx, req.UserID, req.QuestionID, *req.AnswerIndex)
	if err != nil {
		return err
	}

	return Success(c, fiber.StatusOK, answerResponse{
		IsCorrect:          res.IsCorrect,
		NewStreak:          res.NewStreak,
		PointsAwarded:      res.PointsAwarded,
		CorrectAnswerIndex: res.CorrectAnswerIndex,
		NextQuestionID:     res.NextQuestionID,
		QuizPoints:         res.QuizPoints,
		TotalPoints:        res.TotalPoints,
	})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	userID, err := queryUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	stats, err := s.svc.Stats(ctx, userID)
	if err != nil {
		return err
	}

	resp := statsResponse{
		UserID:      stats.UserID,
		Today:       stats.Today.String(),
		CanAnswer:   stats.CanAnswer,
		Streak:      stats.Streak,
		QuizPoints:  stats.QuizPoints,
		TotalPoints: stats.TotalPoints,
	}
	if stats.LastStreakDate != nil {
		d := stats.LastStreakDate.String()
		resp.LastStreakDate = &d
	}

	return Success(c, fiber.StatusOK, resp)
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	userID, err := queryUserID(c)
	if err != nil {
		return err
	}

	limit := c.QueryInt("limit", defaultHistoryLimit)

	ctx, cancel := s.requestContext(c)
	defer cancel()

	records, err := s.svc.History(ctx, userID, limit)
	if err != nil {
		return err
	}

	return Success(c, fiber.StatusOK, records)
}

// handleClientLog пишет сообщение из Mini App в лог сервиса.
func (s *Server) handleClientLog(c *fiber.Ctx) error {
	req := &clientLogRequest{}
	if err := c.BodyParser(req); err != nil {
		return fmt.Errorf("%w: cannot parse body: %w", quiz.ErrInvalidInput, err)
	}
	if err := validate.Struct(req); err != nil {
		return Error(c, fiber.StatusBadRequest, quiz.ErrInvalidInput, validationDetails(err))
	}

	var level slog.Level
	_ = level.UnmarshalText([]byte(req.Level))

	s.log.Log(c.UserContext(), level, req.Message,
		"source", "miniapp",
		"client_time", req.Timestamp,
		"ip", c.IP(),
		"data", req.Data,
	)

	return Success(c, fiber.StatusOK, nil)
}

func (s *Server) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), s.timeout)
}

func queryUserID(c *fiber.Ctx) (int64, error) {
	raw := c.Query("userId")
	if raw == "" {
		return 0, fmt.Errorf("%w: userId is required", quiz.ErrInvalidInput)
	}

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: userId must be a positive integer", quiz.ErrInvalidInput)
	}

	return userID, nil
}

// validationDetails возвращает ошибки валидации в виде поле -> правило.
func validationDetails(err error) map[string]string {
	details := make(map[string]string)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	}

	return details
}
