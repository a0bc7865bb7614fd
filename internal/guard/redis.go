// Package guard содержит быструю проверку повторных ответов на Redis.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/letsssgooo/dailyquiz/internal/calendar"
)

const keyPrefix = "dailyquiz:answered:"

// slack - запас к TTL ключа, чтобы ключ пережил конец дня в любом часовом поясе.
const slack = 14 * time.Hour

// RedisGuard занимает слот "пользователь ответил сегодня" через SETNX.
type RedisGuard struct {
	client *redis.Client
}

// NewRedisGuard создаёт новый RedisGuard.
func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

// Key возвращает ключ слота пользователя userID на день day.
func Key(userID int64, day calendar.Date) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, day, userID)
}

// TTL возвращает время жизни слота, взятого в момент now на день day.
func TTL(day calendar.Date, now time.Time) time.Duration {
	ttl := day.AddDays(1).Time().Sub(now) + slack
	if ttl < time.Minute {
		return time.Minute
	}
	return ttl
}

// Acquire занимает слот. Возвращает false, если слот уже занят.
func (g *RedisGuard) Acquire(ctx context.Context, userID int64, day calendar.Date) (bool, error) {
	ok, err := g.client.SetNX(ctx, Key(userID, day), 1, TTL(day, time.Now())).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire answer slot: %w", err)
	}
	return ok, nil
}

// Release освобождает слот.
func (g *RedisGuard) Release(ctx context.Context, userID int64, day calendar.Date) error {
	if err := g.client.Del(ctx, Key(userID, day)).Err(); err != nil {
		return fmt.Errorf("failed to release answer slot: %w", err)
	}
	return nil
}
