package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/daylink/internal/persistence"
	"github.com/example/daylink/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Store    *sqlite.Store
	Profiles persistence.ProfileRepository
	Settings persistence.SettingsRepository
	Path     string

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a database in a temporary directory.
// Callers may invoke Close, but the helper also registers a cleanup callback
// with tb.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "daylink.db")
	cfg := sqlite.DefaultConfig(path)
	cfg.Synchronous = "OFF"

	store, err := sqlite.Open(context.Background(), cfg)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store:    store,
		Profiles: store,
		Settings: store,
		Path:     path,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
