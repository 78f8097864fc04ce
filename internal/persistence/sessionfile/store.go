// Package sessionfile keeps the session pointer in a small file inside the
// user's runtime directory so consecutive CLI invocations share a login.
package sessionfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/daylink/internal/persistence"
)

const fileName = "session"

// Store implements persistence.SessionRepository on top of a single file.
type Store struct {
	path string
}

var _ persistence.SessionRepository = (*Store)(nil)

// New returns a Store writing to path.
func New(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns $XDG_RUNTIME_DIR/daylink/session, falling back to the
// temp directory scoped by uid when no runtime directory is set.
func DefaultPath(getenv func(string) string) string {
	if getenv == nil {
		getenv = os.Getenv
	}
	if dir := strings.TrimSpace(getenv("XDG_RUNTIME_DIR")); dir != "" {
		return filepath.Join(dir, "daylink", fileName)
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("daylink-%d", os.Getuid()), fileName)
}

// Path reports the backing file.
func (s *Store) Path() string {
	return s.path
}

// SetSessionPhrase writes the phrase with owner-only permissions.
func (s *Store) SetSessionPhrase(ctx context.Context, phrase string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("sessionfile: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("sessionfile: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("sessionfile: chmod: %w", err)
	}
	if _, err := tmp.WriteString(phrase + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("sessionfile: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("sessionfile: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("sessionfile: rename: %w", err)
	}
	return nil
}

// GetSessionPhrase returns the stored phrase or persistence.ErrNotFound.
func (s *Store) GetSessionPhrase(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", persistence.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sessionfile: read: %w", err)
	}
	phrase := strings.TrimSpace(string(data))
	if phrase == "" {
		return "", persistence.ErrNotFound
	}
	return phrase, nil
}

// ClearSession removes the file. A missing file is not an error.
func (s *Store) ClearSession(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("sessionfile: remove: %w", err)
	}
	return nil
}
