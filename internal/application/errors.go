package application

import "errors"

var (
	// ErrInvalidPhrase is returned when a phrase is not in AAAAA-BBBBB form.
	ErrInvalidPhrase = errors.New("application: invalid phrase format")
	// ErrProfileNotFound is returned when no profile opens with a phrase.
	// It covers both a missing profile and a wrong phrase.
	ErrProfileNotFound = errors.New("application: no profile found for this phrase")
	// ErrPhraseInUse is returned when registering over a live profile.
	ErrPhraseInUse = errors.New("application: phrase already in use")
	// ErrNotLoggedIn is returned by operations that need an active profile.
	ErrNotLoggedIn = errors.New("application: not logged in")
	// ErrInvalidBackup is returned when a backup envelope is incomplete.
	ErrInvalidBackup = errors.New("application: invalid backup file")
	// ErrPersistFailed is returned when profile state could not be written.
	// The in-memory profile keeps the change.
	ErrPersistFailed = errors.New("application: failed to persist profile")
	// ErrNotFound is returned when a meeting or template id does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrValidation is the sentinel wrapped by every ValidationError.
	ErrValidation = errors.New("application: validation failed")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return ErrValidation.Error()
}

// Unwrap lets errors.Is match ErrValidation.
func (v *ValidationError) Unwrap() error {
	return ErrValidation
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver,
// prefixing each field.
func (v *ValidationError) merge(prefix string, other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(prefix+field, msg)
	}
}

// orNil returns nil when nothing was recorded so callers can return it directly.
func (v *ValidationError) orNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}
