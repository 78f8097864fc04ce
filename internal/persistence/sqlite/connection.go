// Package sqlite persists encrypted profile slots and device settings in a
// local SQLite database through the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/example/daylink/internal/persistence"
)

// Store is a migrated SQLite database implementing the profile and
// settings repositories.
type Store struct {
	db    *sql.DB
	retry RetryConfig
}

var (
	_ persistence.ProfileRepository  = (*Store)(nil)
	_ persistence.SettingsRepository = (*Store)(nil)
)

// Open connects to the database described by cfg, creating the file and
// parent directory when needed, and applies pending migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dsn, err := cfg.dsn()
	if err != nil {
		return nil, err
	}
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping database: %w", err)
	}

	store := &Store{db: db, retry: cfg.Retry}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping tests the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTransaction runs fn inside a transaction, rolling back on error or panic.
func (s *Store) withTransaction(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqlite: transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit transaction: %w", err)
	}
	return nil
}

// withRetry runs fn, retrying busy and locked errors with exponential
// backoff. Any other error is returned immediately after mapping.
func (s *Store) withRetry(ctx context.Context, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	if s.retry.InitialDelay > 0 {
		policy.InitialInterval = s.retry.InitialDelay
	}
	if s.retry.MaxDelay > 0 {
		policy.MaxInterval = s.retry.MaxDelay
	}
	if s.retry.Multiplier > 0 {
		policy.Multiplier = s.retry.Multiplier
	}
	policy.MaxElapsedTime = 0

	operation := func() error {
		err := mapError(fn())
		if err == nil {
			return nil
		}
		if errors.Is(err, persistence.ErrBusy) {
			return err
		}
		return backoff.Permanent(err)
	}

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, s.retry.MaxRetries), ctx))
}

// mapError translates driver errors into persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %v", persistence.ErrBusy, err)
		}
		return err
	}

	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "database is busy") {
		return fmt.Errorf("%w: %v", persistence.ErrBusy, err)
	}
	return err
}
