package persistence

import "context"

// ProfileRepository stores encrypted profile slots. Writes overwrite
// unconditionally; the last writer wins.
type ProfileRepository interface {
	PutProfile(ctx context.Context, record ProfileRecord) error
	GetProfile(ctx context.Context, key string) (ProfileRecord, error)
	DeleteProfile(ctx context.Context, key string) error
}

// SettingsRepository stores plain device-level settings.
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (Setting, error)
	PutSetting(ctx context.Context, setting Setting) error
}

// SessionRepository remembers which phrase is logged in. It never holds
// profile data, and its lifetime is the user's session rather than the disk.
type SessionRepository interface {
	SetSessionPhrase(ctx context.Context, phrase string) error
	GetSessionPhrase(ctx context.Context) (string, error)
	ClearSession(ctx context.Context) error
}
