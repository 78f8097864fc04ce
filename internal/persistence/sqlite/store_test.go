package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/example/daylink/internal/persistence"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := DefaultConfig(filepath.Join(t.TempDir(), "daylink.db"))
	store, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("Close returned error: %v", err)
		}
	})
	return store
}

func TestStoreMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "daylink.db")

	first, err := Open(ctx, DefaultConfig(path))
	if err != nil {
		t.Fatalf("first Open returned error: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	second, err := Open(ctx, DefaultConfig(path))
	if err != nil {
		t.Fatalf("second Open returned error: %v", err)
	}
	defer second.Close()

	versions, err := second.AppliedVersions(ctx)
	if err != nil {
		t.Fatalf("AppliedVersions returned error: %v", err)
	}
	if !reflect.DeepEqual(versions, []string{"0001"}) {
		t.Fatalf("unexpected applied versions %v", versions)
	}
}

func TestStoreProfileRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	if _, err := store.GetProfile(ctx, "daylink_missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	updated := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	record := persistence.ProfileRecord{Key: "daylink_abc", Encrypted: "$daylink$v=1$blob", UpdatedAt: updated}
	if err := store.PutProfile(ctx, record); err != nil {
		t.Fatalf("PutProfile returned error: %v", err)
	}

	record.Encrypted = "$daylink$v=1$newer"
	record.UpdatedAt = updated.Add(time.Minute)
	if err := store.PutProfile(ctx, record); err != nil {
		t.Fatalf("PutProfile overwrite returned error: %v", err)
	}

	got, err := store.GetProfile(ctx, "daylink_abc")
	if err != nil {
		t.Fatalf("GetProfile returned error: %v", err)
	}
	if got.Encrypted != "$daylink$v=1$newer" || !got.UpdatedAt.Equal(updated.Add(time.Minute)) {
		t.Fatalf("unexpected record %+v", got)
	}

	if err := store.DeleteProfile(ctx, "daylink_abc"); err != nil {
		t.Fatalf("DeleteProfile returned error: %v", err)
	}
	if err := store.DeleteProfile(ctx, "daylink_abc"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStoreProfileValueShape(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	if err := store.PutProfile(ctx, persistence.ProfileRecord{Key: "daylink_shape", Encrypted: "opaque"}); err != nil {
		t.Fatalf("PutProfile returned error: %v", err)
	}

	var raw string
	if err := store.db.QueryRowContext(ctx, `SELECT encrypted FROM profiles WHERE key = ?`, "daylink_shape").Scan(&raw); err != nil {
		t.Fatalf("select raw value: %v", err)
	}
	if raw != `{"encrypted":"opaque"}` {
		t.Fatalf("unexpected stored value %s", raw)
	}
}

func TestStoreSettings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	if _, err := store.GetSetting(ctx, "daylink_theme"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.PutSetting(ctx, persistence.Setting{Key: "daylink_theme", Value: "light"}); err != nil {
		t.Fatalf("PutSetting returned error: %v", err)
	}
	if err := store.PutSetting(ctx, persistence.Setting{Key: "daylink_theme", Value: "system"}); err != nil {
		t.Fatalf("PutSetting overwrite returned error: %v", err)
	}
	got, err := store.GetSetting(ctx, "daylink_theme")
	if err != nil {
		t.Fatalf("GetSetting returned error: %v", err)
	}
	if got.Value != "system" {
		t.Fatalf("expected system, got %q", got.Value)
	}
}

func TestInMemoryConfig(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := Open(ctx, InMemoryConfig())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer store.Close()

	if err := store.PutSetting(ctx, persistence.Setting{Key: "k", Value: "v"}); err != nil {
		t.Fatalf("PutSetting returned error: %v", err)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	if err := mapError(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := mapError(errors.New("database is locked")); !errors.Is(err, persistence.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	other := errors.New("syntax error")
	if err := mapError(other); !errors.Is(err, other) {
		t.Fatalf("expected passthrough, got %v", err)
	}
}

func TestWithRetryStopsOnPermanentErrors(t *testing.T) {
	t.Parallel()

	store := &Store{retry: RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}}

	calls := 0
	err := store.withRetry(context.Background(), func() error {
		calls++
		return persistence.ErrNotFound
	})
	if !errors.Is(err, persistence.ErrNotFound) || calls != 1 {
		t.Fatalf("expected single attempt with ErrNotFound, got %d attempts, %v", calls, err)
	}

	calls = 0
	err = store.withRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success on third attempt, got %d attempts, %v", calls, err)
	}

	calls = 0
	err = store.withRetry(context.Background(), func() error {
		calls++
		return errors.New("database is locked")
	})
	if !errors.Is(err, persistence.ErrBusy) || calls != 4 {
		t.Fatalf("expected ErrBusy after 4 attempts, got %d attempts, %v", calls, err)
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	got := splitStatements("-- heading\nCREATE TABLE a (x INT);\n\n-- note\nCREATE TABLE b (y INT);\n")
	want := []string{"CREATE TABLE a (x INT)", "CREATE TABLE b (y INT)"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitStatements = %#v, want %#v", got, want)
	}
}
