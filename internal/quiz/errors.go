package quiz

import (
	"errors"
	"fmt"

	"github.com/letsssgooo/dailyquiz/internal/storage"
)

// Ошибки движка квиза. Вызывающий код различает их через errors.Is.
var (
	// ErrInvalidInput - некорректный индекс ответа, вопрос или дата. Повторять бессмысленно.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - вопрос или прогресс отсутствуют (в том числе пул вопросов закончился).
	ErrNotFound = errors.New("not found")

	// ErrBackendUnavailable - хранилище недоступно, запрос можно повторить позже.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrAlreadyAnswered - пользователь уже ответил сегодня.
	ErrAlreadyAnswered = errors.New("already answered today")
)

// storageErr переводит ошибку хранилища в ошибку движка, сохраняя исходную цепочку.
func storageErr(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	case errors.Is(err, storage.ErrAlreadyAnswered):
		return fmt.Errorf("%s: %w: %w", op, ErrAlreadyAnswered, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrBackendUnavailable, err)
	}
}
