package sender

import (
	"context"
	"fmt"

	"github.com/letsssgooo/dailyquiz/internal/client"
)

// TelegramSender реализует отправку сообщений через Telegram Bot API.
type TelegramSender struct {
	client client.Client
}

// NewTelegramSender создает новый объект структуры TelegramSender.
func NewTelegramSender(client client.Client) *TelegramSender {
	return &TelegramSender{client: client}
}

// Message отправляет текстовое сообщение.
func (s *TelegramSender) Message(
	ctx context.Context,
	chatID int64,
	text string,
	opts *client.SendOptions,
) (*client.Message, error) {
	msg, err := s.client.SendMessage(ctx, chatID, text, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return msg, nil
}

// Commands публикует меню команд бота.
func (s *TelegramSender) Commands(ctx context.Context, commands []client.BotCommand) error {
	if err := s.client.SetMyCommands(ctx, commands); err != nil {
		return fmt.Errorf("failed to set %d bot commands: %w", len(commands), err)
	}
	return nil
}
