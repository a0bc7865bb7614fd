package sender

import (
	"context"

	"github.com/letsssgooo/dailyquiz/internal/client"
)

// Sender определяет основной интерфейс для отправки сообщений.
type Sender interface {
	// Message отправляет текстовое сообщение.
	Message(ctx context.Context, chatID int64, text string, opts *client.SendOptions) (*client.Message, error)

	// Commands публикует меню команд бота.
	Commands(ctx context.Context, commands []client.BotCommand) error
}
