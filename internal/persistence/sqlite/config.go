package sqlite

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds SQLite connection settings.
type Config struct {
	// Path is the database file, or ":memory:" for a private in-memory database.
	Path string

	// BusyTimeout sets how long SQLite itself waits on a locked database.
	BusyTimeout time.Duration

	// JournalMode sets the SQLite journal mode (WAL, DELETE, MEMORY, ...).
	JournalMode string

	// Synchronous sets the synchronous mode (FULL, NORMAL, OFF).
	Synchronous string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Retry bounds the backoff applied when the database stays busy.
	Retry RetryConfig
}

// RetryConfig configures exponential backoff for busy/locked errors.
type RetryConfig struct {
	MaxRetries   uint64
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultConfig returns settings for an on-disk database.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		BusyTimeout:     5 * time.Second,
		JournalMode:     "WAL",
		Synchronous:     "NORMAL",
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		Retry:           DefaultRetryConfig(),
	}
}

// InMemoryConfig returns settings for a single-connection in-memory database.
func InMemoryConfig() Config {
	return Config{
		Path:         ":memory:",
		BusyTimeout:  time.Second,
		JournalMode:  "MEMORY",
		Synchronous:  "OFF",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		Retry:        DefaultRetryConfig(),
	}
}

// DefaultRetryConfig returns a retry configuration with sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}
}

// dsn renders the modernc.org/sqlite connection string. Pragmas are passed
// as _pragma parameters so every pooled connection receives them.
func (c Config) dsn() (string, error) {
	if c.Path == "" {
		return "", fmt.Errorf("sqlite: database path is required")
	}

	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	params.Add("_pragma", "foreign_keys(1)")
	if c.JournalMode != "" {
		params.Add("_pragma", fmt.Sprintf("journal_mode(%s)", c.JournalMode))
	}
	if c.Synchronous != "" {
		params.Add("_pragma", fmt.Sprintf("synchronous(%s)", c.Synchronous))
	}

	if c.Path == ":memory:" {
		return "file::memory:?" + params.Encode(), nil
	}
	return "file:" + c.Path + "?" + params.Encode(), nil
}
