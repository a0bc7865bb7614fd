package postgres

import "context"

// Truncate очищает все таблицы между тестами.
func Truncate(ctx context.Context, s *Storage) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE quiz_responses, user_totals, user_progress, questions`)
	return err
}
