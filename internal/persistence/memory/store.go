// Package memory provides a process-local implementation of the
// persistence repositories.
package memory

import (
	"context"
	"sync"

	"github.com/example/daylink/internal/persistence"
)

// Store keeps profile slots, settings and the session pointer in maps.
// Its contents live as long as the process.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]persistence.ProfileRecord
	settings map[string]persistence.Setting
	session  string

	// failPuts makes every write fail; used to exercise persistence errors.
	failPuts error
}

var (
	_ persistence.ProfileRepository  = (*Store)(nil)
	_ persistence.SettingsRepository = (*Store)(nil)
	_ persistence.SessionRepository  = (*Store)(nil)
)

// New returns an empty Store.
func New() *Store {
	return &Store{
		profiles: make(map[string]persistence.ProfileRecord),
		settings: make(map[string]persistence.Setting),
	}
}

// FailWrites makes subsequent writes return err. Passing nil restores normal behaviour.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPuts = err
}

// --- ProfileRepository implementation ---

// PutProfile stores or replaces a profile slot.
func (s *Store) PutProfile(ctx context.Context, record persistence.ProfileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failPuts != nil {
		return s.failPuts
	}
	s.profiles[record.Key] = record
	return nil
}

// GetProfile retrieves a profile slot by key.
func (s *Store) GetProfile(ctx context.Context, key string) (persistence.ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.profiles[key]
	if !ok {
		return persistence.ProfileRecord{}, persistence.ErrNotFound
	}
	return record, nil
}

// DeleteProfile removes a profile slot.
func (s *Store) DeleteProfile(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[key]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.profiles, key)
	return nil
}

// ProfileKeys lists stored slot keys. Test helper.
func (s *Store) ProfileKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.profiles))
	for key := range s.profiles {
		keys = append(keys, key)
	}
	return keys
}

// --- SettingsRepository implementation ---

// GetSetting retrieves a setting by key.
func (s *Store) GetSetting(ctx context.Context, key string) (persistence.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	setting, ok := s.settings[key]
	if !ok {
		return persistence.Setting{}, persistence.ErrNotFound
	}
	return setting, nil
}

// PutSetting stores or replaces a setting.
func (s *Store) PutSetting(ctx context.Context, setting persistence.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failPuts != nil {
		return s.failPuts
	}
	s.settings[setting.Key] = setting
	return nil
}

// --- SessionRepository implementation ---

// SetSessionPhrase records the logged-in phrase.
func (s *Store) SetSessionPhrase(ctx context.Context, phrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = phrase
	return nil
}

// GetSessionPhrase returns the logged-in phrase or persistence.ErrNotFound.
func (s *Store) GetSessionPhrase(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == "" {
		return "", persistence.ErrNotFound
	}
	return s.session, nil
}

// ClearSession forgets the logged-in phrase.
func (s *Store) ClearSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = ""
	return nil
}
