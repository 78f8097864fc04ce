package sessionfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/daylink/internal/persistence"
)

func TestStoreLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session")
	store := New(path)

	if _, err := store.GetSessionPhrase(ctx); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before login, got %v", err)
	}
	if err := store.SetSessionPhrase(ctx, "ABCDE-12345"); err != nil {
		t.Fatalf("SetSessionPhrase returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat session file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}

	phrase, err := store.GetSessionPhrase(ctx)
	if err != nil || phrase != "ABCDE-12345" {
		t.Fatalf("GetSessionPhrase = %q, %v", phrase, err)
	}

	if err := store.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession returned error: %v", err)
	}
	if err := store.ClearSession(ctx); err != nil {
		t.Fatalf("second ClearSession returned error: %v", err)
	}
	if _, err := store.GetSessionPhrase(ctx); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after logout, got %v", err)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Parallel()

	got := DefaultPath(func(key string) string {
		if key == "XDG_RUNTIME_DIR" {
			return "/run/user/1000"
		}
		return ""
	})
	if got != "/run/user/1000/daylink/session" {
		t.Fatalf("DefaultPath = %q", got)
	}

	fallback := DefaultPath(func(string) string { return "" })
	if filepath.Base(fallback) != "session" || filepath.Dir(filepath.Dir(fallback)) != filepath.Clean(os.TempDir()) {
		t.Fatalf("unexpected fallback path %q", fallback)
	}
}
