package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/letsssgooo/dailyquiz/internal/bot"
	"github.com/letsssgooo/dailyquiz/internal/client"
	"github.com/letsssgooo/dailyquiz/internal/config"
	"github.com/letsssgooo/dailyquiz/internal/events/fetcher"
	"github.com/letsssgooo/dailyquiz/internal/events/sender"
	"github.com/letsssgooo/dailyquiz/internal/guard"
	"github.com/letsssgooo/dailyquiz/internal/httpapi"
	"github.com/letsssgooo/dailyquiz/internal/lib/slogcustom"
	"github.com/letsssgooo/dailyquiz/internal/quiz"
	"github.com/letsssgooo/dailyquiz/internal/storage"
	"github.com/letsssgooo/dailyquiz/internal/storage/postgres"
	"github.com/letsssgooo/dailyquiz/internal/storage/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("daily quiz stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	log, err := setupLogger(cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(log)
	log.Info("starting daily quiz...", "storage", cfg.Storage.Driver)

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("failed to load time zone: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("failed to close storage", "error", err)
		}
	}()

	if cfg.Quiz.Seed != "" {
		if err := seedQuestions(ctx, st, cfg.Quiz.Seed, log); err != nil {
			return err
		}
	}

	opts := []quiz.Option{
		quiz.WithLocation(loc),
		quiz.WithLogger(log.With("component", "quiz")),
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis is unavailable, answer guard will rely on storage", "addr", cfg.Redis.Addr, "error", err)
		}
		opts = append(opts, quiz.WithGuard(guard.NewRedisGuard(rdb)))
	}

	svc := quiz.NewService(st, opts...)

	server := httpapi.New(svc, log.With("component", "http"), httpapi.Options{
		AllowOrigins: cfg.HTTP.Origins,
		RateLimit:    cfg.HTTP.Limit,
	})

	errCh := make(chan error, 2)

	go func() {
		if err := server.Listen(cfg.HTTP.Addr); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if cfg.Telegram.Token != "" {
		tg := client.NewHTTPClient(cfg.Telegram.Token)
		b := bot.NewBot(
			fetcher.NewTelegramFetcher(tg),
			sender.NewTelegramSender(tg),
			svc,
			cfg.Telegram.WebApp,
			log.With("component", "bot"),
		)

		go func() {
			if err := b.Run(ctx); err != nil {
				errCh <- fmt.Errorf("telegram bot: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down...")
	case err = <-errCh:
		log.Error("component failed, shutting down", "error", err)
	}

	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.Shutdown)
	defer cancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn("failed to shut down http server", "error", shutdownErr)
	}

	return err
}

func setupLogger(cfg config.Log) (*slog.Logger, error) {
	level, err := slogcustom.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return slogcustom.New(os.Stdout, cfg.Format, level), nil
}

func openStorage(ctx context.Context, cfg config.Storage) (storage.Storage, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.Driver {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite":
		return sqlite.New(connectCtx, cfg.DSN)
	case "postgres":
		return postgres.NewStorage(connectCtx, cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", config.ErrValidation, cfg.Driver)
	}
}

func seedQuestions(ctx context.Context, st storage.Storage, path string, log *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read question pack: %w", err)
	}

	questions, err := quiz.LoadQuestions(data, time.Now())
	if err != nil {
		return err
	}

	added, err := quiz.Seed(ctx, st, questions)
	if err != nil {
		return err
	}

	log.Info("question pack loaded", "path", path, "questions", len(questions), "added", added)

	return nil
}
