package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/daylink/internal/identity"
	"github.com/example/daylink/internal/persistence"
	"github.com/example/daylink/internal/vault"
)

// ProfileStore persists encrypted profiles keyed by phrase.
type ProfileStore interface {
	Save(ctx context.Context, phrase string, payload any) error
	Load(ctx context.Context, phrase string, out any) error
	Delete(ctx context.Context, phrase string) error
	Seal(payload any, phrase string) (string, error)
	Open(blob, phrase string, out any) error
	Theme(ctx context.Context, fallback string) (string, error)
	SetTheme(ctx context.Context, theme string) error
}

var _ ProfileStore = (*vault.Vault)(nil)

// ProfileObserver follows the session lifecycle. Callbacks run after the
// state change, outside the service lock, one at a time and in the order
// the changes happened. They receive copies. A callback whose session or
// revision has been superseded before delivery is dropped.
type ProfileObserver interface {
	ProfileLoaded(ctx context.Context, profile Profile)
	ProfileUpdated(ctx context.Context, profile Profile)
	LoggedOut(ctx context.Context)
}

// ProfileService is the auth manager: it owns the logged-in profile and
// moves between the logged-out and logged-in states.
type ProfileService struct {
	store     ProfileStore
	sessions  persistence.SessionRepository
	now       func() time.Time
	logger    *slog.Logger
	observers []ProfileObserver

	mu      sync.RWMutex
	phrase  string
	profile *Profile
	// generation changes on every login and logout; revision on every
	// state change. Both are guarded by mu.
	generation uint64
	revision   uint64

	// dispatchMu serialises observer callbacks.
	dispatchMu sync.Mutex
}

// NewProfileService constructs a ProfileService with the provided dependencies.
func NewProfileService(store ProfileStore, sessions persistence.SessionRepository, now func() time.Time) *ProfileService {
	return NewProfileServiceWithLogger(store, sessions, now, nil)
}

// NewProfileServiceWithLogger constructs a ProfileService with a specified logger.
func NewProfileServiceWithLogger(store ProfileStore, sessions persistence.SessionRepository, now func() time.Time, logger *slog.Logger) *ProfileService {
	if now == nil {
		now = time.Now
	}
	return &ProfileService{
		store:    store,
		sessions: sessions,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

// Observe registers an observer. It must be called before the service is shared.
func (s *ProfileService) Observe(observer ProfileObserver) {
	if observer != nil {
		s.observers = append(s.observers, observer)
	}
}

func (s *ProfileService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ProfileService", operation, attrs...)
}

// IsAuthenticated reports whether a profile is loaded.
func (s *ProfileService) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile != nil
}

// Profile returns a copy of the loaded profile.
func (s *ProfileService) Profile() (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return Profile{}, false
	}
	return s.profile.Clone(), true
}

// NewProfile builds the profile a fresh registration starts with.
func NewProfile(phrase, username string, now time.Time) Profile {
	return Profile{
		UniquePhrase: identity.NormalizePhrase(phrase),
		Username:     strings.TrimSpace(username),
		Meetings:     []Meeting{},
		Templates:    DefaultTemplates(),
		Preferences:  DefaultPreferences(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Register creates, stores and logs into a new profile. A phrase that
// already opens a profile is refused rather than overwritten.
func (s *ProfileService) Register(ctx context.Context, params RegisterParams) (profile Profile, err error) {
	phrase := identity.NormalizePhrase(params.Phrase)

	logger := s.loggerWith(ctx, "Register", "profile", profileRef(phrase))
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile registered")
	}()

	if !identity.ValidateFormat(phrase) {
		err = ErrInvalidPhrase
		return
	}

	var existing Profile
	switch loadErr := s.store.Load(ctx, phrase, &existing); {
	case loadErr == nil:
		err = ErrPhraseInUse
		return
	case !errors.Is(loadErr, vault.ErrNotFound):
		err = fmt.Errorf("%w: %v", ErrPersistFailed, loadErr)
		return
	}

	profile = NewProfile(phrase, params.Username, s.now())
	if saveErr := s.store.Save(ctx, phrase, profile); saveErr != nil {
		err = fmt.Errorf("%w: %v", ErrPersistFailed, saveErr)
		return
	}

	s.activate(ctx, phrase, profile)
	return profile.Clone(), nil
}

// Login loads the profile stored under phrase and makes it active.
func (s *ProfileService) Login(ctx context.Context, phrase string) (profile Profile, err error) {
	phrase = identity.NormalizePhrase(phrase)

	logger := s.loggerWith(ctx, "Login", "profile", profileRef(phrase))
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "login succeeded", "meetings", len(profile.Meetings))
	}()

	if !identity.ValidateFormat(phrase) {
		err = ErrInvalidPhrase
		return
	}

	profile, err = s.load(ctx, phrase)
	if err != nil {
		return
	}

	s.activate(ctx, phrase, profile)
	return profile.Clone(), nil
}

// Restore re-authenticates silently from the session pointer. A pointer
// whose profile no longer opens is cleared. It reports whether a profile
// was restored.
func (s *ProfileService) Restore(ctx context.Context) (restored bool, err error) {
	logger := s.loggerWith(ctx, "Restore")

	if s.sessions == nil {
		return false, nil
	}
	phrase, getErr := s.sessions.GetSessionPhrase(ctx)
	if errors.Is(getErr, persistence.ErrNotFound) {
		return false, nil
	}
	if getErr != nil {
		logger.WarnContext(ctx, "session pointer unreadable", "error", getErr)
		return false, getErr
	}

	profile, loadErr := s.load(ctx, phrase)
	if loadErr != nil {
		logger.WarnContext(ctx, "stale session cleared", "profile", profileRef(phrase), "error_kind", ErrorKind(loadErr))
		if clearErr := s.sessions.ClearSession(ctx); clearErr != nil {
			logger.WarnContext(ctx, "clear session failed", "error", clearErr)
		}
		return false, nil
	}

	s.activate(ctx, identity.NormalizePhrase(phrase), profile)
	logger.InfoContext(ctx, "session restored", "profile", profileRef(phrase))
	return true, nil
}

// Logout forgets the in-memory profile and the session pointer. The
// encrypted profile stays in storage.
func (s *ProfileService) Logout(ctx context.Context) error {
	s.mu.Lock()
	phrase := s.phrase
	s.phrase = ""
	s.profile = nil
	s.generation++
	s.revision++
	stamp := s.stampLocked()
	s.mu.Unlock()

	logger := s.loggerWith(ctx, "Logout", "profile", profileRef(phrase))

	var err error
	if s.sessions != nil {
		if err = s.sessions.ClearSession(ctx); err != nil {
			logger.WarnContext(ctx, "clear session failed", "error", err)
		}
	}
	s.dispatch(stamp, func(o ProfileObserver) { o.LoggedOut(ctx) })
	logger.InfoContext(ctx, "logged out")
	return err
}

// Import decrypts a backup with phrase, re-keys it to that phrase, stores
// it and logs in. Nothing changes when any step fails.
func (s *ProfileService) Import(ctx context.Context, backup ExportedProfile, phrase string) (profile Profile, err error) {
	phrase = identity.NormalizePhrase(phrase)

	logger := s.loggerWith(ctx, "Import", "profile", profileRef(phrase), "backup_version", backup.Version)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "import failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile imported", "meetings", len(profile.Meetings))
	}()

	if strings.TrimSpace(backup.Version) == "" || strings.TrimSpace(backup.EncryptedData) == "" {
		err = ErrInvalidBackup
		return
	}
	if !identity.ValidateFormat(phrase) {
		err = ErrInvalidPhrase
		return
	}

	if openErr := s.store.Open(backup.EncryptedData, phrase, &profile); openErr != nil {
		err = ErrProfileNotFound
		return
	}
	normalizeLoaded(&profile)
	profile.UniquePhrase = phrase
	profile.UpdatedAt = s.now()

	if saveErr := s.store.Save(ctx, phrase, profile); saveErr != nil {
		err = fmt.Errorf("%w: %v", ErrPersistFailed, saveErr)
		return
	}

	s.activate(ctx, phrase, profile)
	return profile.Clone(), nil
}

// Export seals the active profile into a backup envelope.
func (s *ProfileService) Export(ctx context.Context) (backup ExportedProfile, err error) {
	logger := s.loggerWith(ctx, "Export")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "export failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile exported")
	}()

	s.mu.RLock()
	if s.profile == nil {
		s.mu.RUnlock()
		err = ErrNotLoggedIn
		return
	}
	phrase := s.phrase
	profile := s.profile.Clone()
	s.mu.RUnlock()

	blob, sealErr := s.store.Seal(profile, phrase)
	if sealErr != nil {
		err = fmt.Errorf("application: seal backup: %w", sealErr)
		return
	}
	return ExportedProfile{
		Version:       AppVersion,
		ExportDate:    s.now(),
		Username:      profile.Username,
		EncryptedData: blob,
	}, nil
}

// UpdateProfile merges the non-nil fields of update into the active
// profile and persists it. When persisting fails the in-memory profile
// keeps the change and the error wraps ErrPersistFailed.
func (s *ProfileService) UpdateProfile(ctx context.Context, update ProfileUpdate) (profile Profile, err error) {
	logger := s.loggerWith(ctx, "UpdateProfile")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "profile update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "profile updated")
	}()

	return s.Edit(ctx, func(next *Profile) error {
		verr := &ValidationError{}
		if update.Username != nil {
			next.Username = strings.TrimSpace(*update.Username)
		}
		if update.Meetings != nil {
			next.Meetings = append([]Meeting{}, *update.Meetings...)
			verr.merge("", validateMeetings(next.Meetings))
		}
		if update.Templates != nil {
			next.Templates = append([]MeetingTemplate{}, *update.Templates...)
			verr.merge("", validateTemplates(next.Templates))
		}
		if update.Preferences != nil {
			next.Preferences = *update.Preferences
			verr.merge("", validatePreferences(next.Preferences))
		}
		return verr.orNil()
	})
}

// Edit applies fn to a copy of the active profile while holding the
// service lock, refreshes updatedAt and persists the result. An error from
// fn discards the copy. A persistence failure keeps the change in memory
// and wraps ErrPersistFailed.
func (s *ProfileService) Edit(ctx context.Context, fn func(next *Profile) error) (Profile, error) {
	s.mu.Lock()
	if s.profile == nil {
		s.mu.Unlock()
		return Profile{}, ErrNotLoggedIn
	}

	next := s.profile.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return Profile{}, err
	}

	next.UpdatedAt = s.now()
	s.profile = &next
	s.revision++
	stamp := s.stampLocked()
	profile := next.Clone()
	saveErr := s.store.Save(ctx, s.phrase, next)
	s.mu.Unlock()

	s.dispatch(stamp, func(o ProfileObserver) { o.ProfileUpdated(ctx, profile.Clone()) })
	if saveErr != nil {
		return profile, fmt.Errorf("%w: %v", ErrPersistFailed, saveErr)
	}
	return profile, nil
}

// DeleteAccount removes the active profile from storage and logs out.
func (s *ProfileService) DeleteAccount(ctx context.Context) (err error) {
	logger := s.loggerWith(ctx, "DeleteAccount")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "account deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "account deleted")
	}()

	s.mu.RLock()
	phrase := s.phrase
	loggedIn := s.profile != nil
	s.mu.RUnlock()
	if !loggedIn {
		return ErrNotLoggedIn
	}

	if delErr := s.store.Delete(ctx, phrase); delErr != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, delErr)
	}
	return s.Logout(ctx)
}

// Theme returns the device theme record, defaulting to dark.
func (s *ProfileService) Theme(ctx context.Context) (Theme, error) {
	value, err := s.store.Theme(ctx, string(ThemeDark))
	theme := Theme(value)
	if !theme.Valid() {
		theme = ThemeDark
	}
	return theme, err
}

// SetTheme records the device theme and, when logged in, the profile's
// theme preference.
func (s *ProfileService) SetTheme(ctx context.Context, theme Theme) (Theme, error) {
	if !theme.Valid() {
		v := &ValidationError{}
		v.add("theme", "theme must be dark, light or system")
		return "", v
	}
	if err := s.store.SetTheme(ctx, string(theme)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	profile, ok := s.Profile()
	if !ok {
		return theme, nil
	}
	prefs := profile.Preferences
	prefs.Theme = theme
	if _, err := s.UpdateProfile(ctx, ProfileUpdate{Preferences: &prefs}); err != nil {
		return theme, err
	}
	return theme, nil
}

func (s *ProfileService) load(ctx context.Context, phrase string) (Profile, error) {
	var profile Profile
	err := s.store.Load(ctx, phrase, &profile)
	if errors.Is(err, vault.ErrNotFound) {
		return Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	normalizeLoaded(&profile)
	return profile, nil
}

// activate installs profile as the logged-in state and notifies observers.
func (s *ProfileService) activate(ctx context.Context, phrase string, profile Profile) {
	s.mu.Lock()
	s.phrase = phrase
	stored := profile.Clone()
	s.profile = &stored
	s.generation++
	s.revision++
	stamp := s.stampLocked()
	s.mu.Unlock()

	if s.sessions != nil {
		if err := s.sessions.SetSessionPhrase(ctx, phrase); err != nil {
			s.loggerWith(ctx, "activate").WarnContext(ctx, "session pointer not saved", "error", err)
		}
	}
	s.dispatch(stamp, func(o ProfileObserver) { o.ProfileLoaded(ctx, profile.Clone()) })
}

// stateStamp identifies one state change of the service.
type stateStamp struct {
	generation uint64
	revision   uint64
}

func (s *ProfileService) stampLocked() stateStamp {
	return stateStamp{generation: s.generation, revision: s.revision}
}

// current reports whether stamp still describes the latest state.
func (s *ProfileService) current(stamp stateStamp) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stampLocked() == stamp
}

// dispatch delivers one state change to every observer. Changes that were
// superseded before or during delivery are not delivered; the newer change
// carries the state observers need. Callers must not hold mu.
func (s *ProfileService) dispatch(stamp stateStamp, notify func(ProfileObserver)) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	for _, o := range s.observers {
		if !s.current(stamp) {
			return
		}
		notify(o)
	}
}

// normalizeLoaded fills fields that older or browser-written profiles may omit.
func normalizeLoaded(p *Profile) {
	if p.Meetings == nil {
		p.Meetings = []Meeting{}
	}
	if p.Templates == nil {
		p.Templates = DefaultTemplates()
	}
	if !p.Preferences.Theme.Valid() {
		p.Preferences.Theme = ThemeDark
	}
}
