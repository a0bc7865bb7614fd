package fetcher

import (
	"context"

	"github.com/letsssgooo/dailyquiz/internal/client"
)

// Fetcher  определяет основной интерфейс для получения сообщений.
type Fetcher interface {
	// GetUpdates получает слайс Update, учитывая timeout в секундах
	GetUpdates(ctx context.Context, timeout int) ([]client.Update, error)
}
