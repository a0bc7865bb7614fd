// Package httpapi отдает ежедневный квиз Telegram Mini App по HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/letsssgooo/dailyquiz/internal/domain/models"
	"github.com/letsssgooo/dailyquiz/internal/quiz"
)

// QuizService определяет сценарии квиза, которые нужны HTTP слою.
type QuizService interface {
	Daily(ctx context.Context, userID int64) (*quiz.DailyState, error)
	Answer(ctx context.Context, userID int64, questionID string, selectedIndex int) (*quiz.AnswerResult, error)
	Stats(ctx context.Context, userID int64) (*quiz.Stats, error)
	History(ctx context.Context, userID int64, limit int) ([]models.AnswerRecord, error)
}

// Options настраивает Server.
type Options struct {
	// AllowOrigins - разрешенные CORS источники через запятую.
	AllowOrigins string
	// RateLimit - запросов в минуту с одного пользователя или адреса, 0 отключает.
	RateLimit int
	// RequestTimeout ограничивает обработку одного запроса.
	RequestTimeout time.Duration
}

// Server - HTTP сервер квиза.
type Server struct {
	app     *fiber.App
	svc     QuizService
	log     *slog.Logger
	timeout time.Duration
}

// New создаёт новый Server и регистрирует маршруты.
func New(svc QuizService, log *slog.Logger, opts Options) *Server {
	s := &Server{
		svc:     svc,
		log:     log,
		timeout: opts.RequestTimeout,
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "dailyquiz",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(requestLogger(log))

	origins := opts.AllowOrigins
	if origins == "" {
		origins = "*"
	}
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	if opts.RateLimit > 0 {
		s.app.Use(limiter.New(limiter.Config{
			Max:          opts.RateLimit,
			Expiration:   time.Minute,
			KeyGenerator: rateLimitKey,
			LimitReached: func(c *fiber.Ctx) error {
				return Error(c, fiber.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
			},
		}))
	}

	s.app.Get("/healthz", s.handleHealth)

	api := s.app.Group("/v1/quiz")
	api.Get("/daily", s.handleDaily)
	api.Post("/answer", s.handleAnswer)
	api.Get("/stats", s.handleStats)
	api.Get("/history", s.handleHistory)

	s.app.Post("/api/log", s.handleClientLog)

	return s
}

// App возвращает fiber приложение (используется в тестах).
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen принимает соединения на addr до вызова Shutdown.
func (s *Server) Listen(addr string) error {
	s.log.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown останавливает сервер, дожидаясь активных запросов не дольше ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	if status >= fiber.StatusInternalServerError {
		s.log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return Error(c, status, err)
}

// rateLimitKey ограничивает по userId из query или JSON тела запроса, иначе по адресу.
func rateLimitKey(c *fiber.Ctx) string {
	if q := c.Query("userId"); q != "" {
		return "user:" + q
	}

	if c.Method() == fiber.MethodPost && len(c.Body()) > 0 {
		var body struct {
			UserID int64 `json:"userId"`
		}
		if err := json.Unmarshal(c.Body(), &body); err == nil && body.UserID > 0 {
			return "user:" + strconv.FormatInt(body.UserID, 10)
		}
	}

	return c.IP()
}

// requestLogger пишет в лог каждый обработанный запрос.
func requestLogger(log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}

		log.Debug("http request",
			"ip", c.IP(),
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", time.Since(start),
		)

		return err
	}
}
