package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/example/daylink/internal/persistence"
)

// profileValue is the stored column shape: {"encrypted": "<blob>"}.
type profileValue struct {
	Encrypted string `json:"encrypted"`
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PutProfile inserts or replaces a profile slot.
func (s *Store) PutProfile(ctx context.Context, record persistence.ProfileRecord) error {
	value, err := json.MarshalToString(profileValue{Encrypted: record.Encrypted})
	if err != nil {
		return fmt.Errorf("sqlite: encode profile: %w", err)
	}
	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO profiles (key, encrypted, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET encrypted = excluded.encrypted, updated_at = excluded.updated_at`,
			record.Key, value, updatedAt.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}

// GetProfile retrieves a profile slot by key.
func (s *Store) GetProfile(ctx context.Context, key string) (persistence.ProfileRecord, error) {
	var (
		value     string
		updatedAt string
	)
	err := s.withRetry(ctx, func() error {
		return s.db.QueryRowContext(ctx, `SELECT encrypted, updated_at FROM profiles WHERE key = ?`, key).Scan(&value, &updatedAt)
	})
	if err != nil {
		return persistence.ProfileRecord{}, err
	}

	var decoded profileValue
	if err := json.UnmarshalFromString(value, &decoded); err != nil {
		return persistence.ProfileRecord{}, fmt.Errorf("sqlite: decode profile %s: %w", key, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return persistence.ProfileRecord{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}
	return persistence.ProfileRecord{Key: key, Encrypted: decoded.Encrypted, UpdatedAt: ts}, nil
}

// DeleteProfile removes a profile slot.
func (s *Store) DeleteProfile(ctx context.Context, key string) error {
	return s.withRetry(ctx, func() error {
		return s.withTransaction(ctx, func(tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE key = ?`, key)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return persistence.ErrNotFound
			}
			return nil
		})
	})
}
