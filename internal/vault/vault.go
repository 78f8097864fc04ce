// Package vault stores phrase-keyed encrypted payloads on top of a
// persistence.ProfileRepository.
package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/daylink/internal/identity"
	"github.com/example/daylink/internal/persistence"
)

// KeyPrefix namespaces every record written by the application.
const KeyPrefix = "daylink_"

// ThemeKey names the plain theme record.
const ThemeKey = KeyPrefix + "theme"

var (
	// ErrNotFound is returned when no slot exists for a phrase or the slot
	// cannot be opened with it. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("vault: profile not found")
)

// Vault ties the phrase-derived storage key and cipher to a repository.
type Vault struct {
	profiles persistence.ProfileRepository
	settings persistence.SettingsRepository
	cipher   *identity.Cipher
	now      func() time.Time
}

// New builds a Vault. settings may be nil when theme records are not needed.
func New(profiles persistence.ProfileRepository, settings persistence.SettingsRepository, cipher *identity.Cipher, now func() time.Time) *Vault {
	if cipher == nil {
		cipher = identity.NewCipher(identity.DefaultArgon2idParams)
	}
	if now == nil {
		now = time.Now
	}
	return &Vault{profiles: profiles, settings: settings, cipher: cipher, now: now}
}

// RecordKey returns the repository key for a phrase.
func RecordKey(phrase string) string {
	return KeyPrefix + identity.StorageKey(phrase)
}

// Save encrypts payload under phrase and writes it to the phrase's slot,
// replacing any previous content.
func (v *Vault) Save(ctx context.Context, phrase string, payload any) error {
	blob, err := v.cipher.Encrypt(payload, phrase)
	if err != nil {
		return fmt.Errorf("vault: encrypt: %w", err)
	}
	record := persistence.ProfileRecord{
		Key:       RecordKey(phrase),
		Encrypted: blob,
		UpdatedAt: v.now(),
	}
	if err := v.profiles.PutProfile(ctx, record); err != nil {
		return fmt.Errorf("vault: write: %w", err)
	}
	return nil
}

// Load reads and decrypts the phrase's slot into out. Missing slots and
// failed decryption both return ErrNotFound; repository faults are returned
// as-is.
func (v *Vault) Load(ctx context.Context, phrase string, out any) error {
	record, err := v.profiles.GetProfile(ctx, RecordKey(phrase))
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("vault: read: %w", err)
	}
	if err := v.cipher.Decrypt(record.Encrypted, phrase, out); err != nil {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether a slot is present for the phrase without
// attempting to decrypt it.
func (v *Vault) Exists(ctx context.Context, phrase string) (bool, error) {
	_, err := v.profiles.GetProfile(ctx, RecordKey(phrase))
	if errors.Is(err, persistence.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("vault: read: %w", err)
	}
	return true, nil
}

// Delete removes the phrase's slot. Deleting a missing slot is not an error.
func (v *Vault) Delete(ctx context.Context, phrase string) error {
	err := v.profiles.DeleteProfile(ctx, RecordKey(phrase))
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return fmt.Errorf("vault: delete: %w", err)
	}
	return nil
}

// Seal encrypts payload under phrase without storing it.
func (v *Vault) Seal(payload any, phrase string) (string, error) {
	return v.cipher.Encrypt(payload, phrase)
}

// Open decrypts a sealed blob into out, returning ErrNotFound on failure.
func (v *Vault) Open(blob, phrase string, out any) error {
	if err := v.cipher.Decrypt(blob, phrase, out); err != nil {
		return ErrNotFound
	}
	return nil
}

// Theme returns the stored theme, or fallback when none is recorded.
func (v *Vault) Theme(ctx context.Context, fallback string) (string, error) {
	if v.settings == nil {
		return fallback, nil
	}
	setting, err := v.settings.GetSetting(ctx, ThemeKey)
	if errors.Is(err, persistence.ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return fallback, fmt.Errorf("vault: read theme: %w", err)
	}
	return setting.Value, nil
}

// SetTheme records the theme in plaintext.
func (v *Vault) SetTheme(ctx context.Context, theme string) error {
	if v.settings == nil {
		return nil
	}
	if err := v.settings.PutSetting(ctx, persistence.Setting{Key: ThemeKey, Value: theme, UpdatedAt: v.now()}); err != nil {
		return fmt.Errorf("vault: write theme: %w", err)
	}
	return nil
}
