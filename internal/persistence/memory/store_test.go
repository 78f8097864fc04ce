package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/daylink/internal/persistence"
)

func TestStoreProfiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()

	if _, err := store.GetProfile(ctx, "daylink_missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	record := persistence.ProfileRecord{Key: "daylink_abc", Encrypted: "blob-1", UpdatedAt: time.Unix(10, 0)}
	if err := store.PutProfile(ctx, record); err != nil {
		t.Fatalf("PutProfile returned error: %v", err)
	}
	record.Encrypted = "blob-2"
	if err := store.PutProfile(ctx, record); err != nil {
		t.Fatalf("PutProfile overwrite returned error: %v", err)
	}

	got, err := store.GetProfile(ctx, "daylink_abc")
	if err != nil {
		t.Fatalf("GetProfile returned error: %v", err)
	}
	if got.Encrypted != "blob-2" {
		t.Fatalf("expected last write to win, got %q", got.Encrypted)
	}

	if err := store.DeleteProfile(ctx, "daylink_abc"); err != nil {
		t.Fatalf("DeleteProfile returned error: %v", err)
	}
	if err := store.DeleteProfile(ctx, "daylink_abc"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStoreFailWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()
	boom := errors.New("quota exceeded")
	store.FailWrites(boom)

	if err := store.PutProfile(ctx, persistence.ProfileRecord{Key: "k"}); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if err := store.PutSetting(ctx, persistence.Setting{Key: "k"}); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}

	store.FailWrites(nil)
	if err := store.PutProfile(ctx, persistence.ProfileRecord{Key: "k"}); err != nil {
		t.Fatalf("expected writes to recover, got %v", err)
	}
}

func TestStoreSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()

	if _, err := store.GetSessionPhrase(ctx); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.SetSessionPhrase(ctx, "ABCDE-12345"); err != nil {
		t.Fatalf("SetSessionPhrase returned error: %v", err)
	}
	phrase, err := store.GetSessionPhrase(ctx)
	if err != nil || phrase != "ABCDE-12345" {
		t.Fatalf("GetSessionPhrase = %q, %v", phrase, err)
	}
	if err := store.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession returned error: %v", err)
	}
	if _, err := store.GetSessionPhrase(ctx); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}
