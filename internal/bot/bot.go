package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/letsssgooo/dailyquiz/internal/client"
	"github.com/letsssgooo/dailyquiz/internal/events/fetcher"
	"github.com/letsssgooo/dailyquiz/internal/events/sender"
	"github.com/letsssgooo/dailyquiz/internal/quiz"
)

// QuizService определяет сценарии квиза, которые нужны боту.
type QuizService interface {
	Stats(ctx context.Context, userID int64) (*quiz.Stats, error)
}

// Bot реализует Telegram бота ежедневного квиза.
// Сам квиз проходит в Mini App, бот открывает его и подсказывает статистику.
type Bot struct {
	fetcher   fetcher.Fetcher
	sender    sender.Sender
	svc       QuizService
	webAppURL string
	log       *slog.Logger

	pollTimeout int
	retryDelay  time.Duration
}

// NewBot создаёт нового бота.
// webAppURL - адрес Mini App, который открывает кнопка в ответ на /start.
func NewBot(
	f fetcher.Fetcher,
	s sender.Sender,
	svc QuizService,
	webAppURL string,
	log *slog.Logger,
) *Bot {
	return &Bot{
		fetcher:     f,
		sender:      s,
		svc:         svc,
		webAppURL:   webAppURL,
		log:         log,
		pollTimeout: 30,
		retryDelay:  3 * time.Second,
	}
}

// Run запускает бота (long polling) до отмены ctx.
func (b *Bot) Run(ctx context.Context) error {
	b.log.Info("telegram bot started")

	if err := b.sender.Commands(ctx, menuCommands); err != nil {
		b.log.Warn("failed to publish bot commands", "error", err)
	}

	for {
		updates, err := b.fetcher.GetUpdates(ctx, b.pollTimeout)
		if ctx.Err() != nil {
			b.log.Info("telegram bot stopped")
			return nil
		}
		if err != nil {
			b.log.Warn("failed to get updates", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(b.retryDelayFor(err)):
			}
			continue
		}

		for _, update := range updates {
			if err := b.HandleUpdate(ctx, update); err != nil {
				b.log.Error("failed to handle update", "update_id", update.UpdateID, "error", err)
			}
		}
	}
}

// retryDelayFor возвращает паузу перед повтором: Telegram может сам назвать ее в ответе 429.
func (b *Bot) retryDelayFor(err error) time.Duration {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > b.retryDelay {
		return apiErr.RetryAfter
	}
	return b.retryDelay
}

// HandleUpdate обрабатывает одно обновление.
func (b *Bot) HandleUpdate(ctx context.Context, update client.Update) error {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.From == nil {
		return nil
	}

	command, _, err := ParseCommand(msg.Text)
	if errors.Is(err, ErrValidation) {
		return b.reply(ctx, msg.Chat.ID, msgHelp, nil)
	}

	b.log.Debug("command received", "command", command, "user_id", msg.From.ID)

	switch command {
	case CommandStart:
		return b.reply(ctx, msg.Chat.ID, msgStart, b.openButton())
	case CommandHelp:
		return b.reply(ctx, msg.Chat.ID, msgHelp, nil)
	case CommandToday:
		return b.handleToday(ctx, msg)
	case CommandStats:
		return b.handleStats(ctx, msg)
	default:
		return b.reply(ctx, msg.Chat.ID, msgUnknownCommand, nil)
	}
}

func (b *Bot) handleToday(ctx context.Context, msg *client.Message) error {
	stats, err := b.svc.Stats(ctx, msg.From.ID)
	if err != nil {
		return b.replyFailure(ctx, msg.Chat.ID, err)
	}

	if !stats.CanAnswer {
		return b.reply(ctx, msg.Chat.ID, msgTodayDone, nil)
	}
	return b.reply(ctx, msg.Chat.ID, msgTodayOpen, b.openButton())
}

func (b *Bot) handleStats(ctx context.Context, msg *client.Message) error {
	stats, err := b.svc.Stats(ctx, msg.From.ID)
	if err != nil {
		return b.replyFailure(ctx, msg.Chat.ID, err)
	}

	text := fmt.Sprintf(msgStats, stats.Streak, quiz.MaxStreak, stats.QuizPoints, stats.TotalPoints)
	if stats.LastStreakDate != nil {
		text += fmt.Sprintf(msgStatsLastStreak, stats.LastStreakDate.String())
	}

	return b.reply(ctx, msg.Chat.ID, text, nil)
}

// replyFailure сообщает пользователю о сбое и возвращает исходную ошибку.
func (b *Bot) replyFailure(ctx context.Context, chatID int64, err error) error {
	if replyErr := b.reply(ctx, chatID, msgUnavailable, nil); replyErr != nil {
		return errors.Join(err, replyErr)
	}
	return err
}

func (b *Bot) openButton() *client.SendOptions {
	if b.webAppURL == "" {
		return nil
	}

	return &client.SendOptions{
		ReplyMarkup: &client.InlineKeyboardMarkup{
			InlineKeyboard: [][]client.InlineKeyboardButton{{
				{Text: msgOpenButton, WebApp: &client.WebAppInfo{URL: b.webAppURL}},
			}},
		},
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string, opts *client.SendOptions) error {
	_, err := b.sender.Message(ctx, chatID, text, opts)
	return err
}
