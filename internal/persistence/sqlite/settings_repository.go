package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/daylink/internal/persistence"
)

// GetSetting retrieves a setting by key.
func (s *Store) GetSetting(ctx context.Context, key string) (persistence.Setting, error) {
	var (
		value     string
		updatedAt string
	)
	err := s.withRetry(ctx, func() error {
		return s.db.QueryRowContext(ctx, `SELECT value, updated_at FROM settings WHERE key = ?`, key).Scan(&value, &updatedAt)
	})
	if err != nil {
		return persistence.Setting{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return persistence.Setting{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}
	return persistence.Setting{Key: key, Value: value, UpdatedAt: ts}, nil
}

// PutSetting inserts or replaces a setting.
func (s *Store) PutSetting(ctx context.Context, setting persistence.Setting) error {
	updatedAt := setting.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			setting.Key, setting.Value, updatedAt.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}
