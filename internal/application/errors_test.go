package application

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"title": "title is required"}}
	if got := withFields.Error(); got != ErrValidation.Error() {
		t.Fatalf("expected sentinel message, got %q", got)
	}
	if !errors.Is(withFields, ErrValidation) {
		t.Fatalf("expected ValidationError to match ErrValidation")
	}
}

func TestValidationError_AddMergeAndOrNil(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	if base.orNil() != nil {
		t.Fatalf("expected orNil to return nil for empty error")
	}

	base.add("time", "bad")
	other := &ValidationError{FieldErrors: map[string]string{"link": "missing"}}
	base.merge("meetings[0].", other)
	base.merge("ignored.", nil)

	if got := base.FieldErrors["meetings[0].link"]; got != "missing" {
		t.Fatalf("expected merged field with prefix, got %v", base.FieldErrors)
	}
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected two fields, got %v", base.FieldErrors)
	}
	if base.orNil() == nil {
		t.Fatalf("expected orNil to return the populated error")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := map[string]error{
		"":                  nil,
		"invalid_phrase":    ErrInvalidPhrase,
		"profile_not_found": ErrProfileNotFound,
		"phrase_in_use":     ErrPhraseInUse,
		"not_logged_in":     ErrNotLoggedIn,
		"invalid_backup":    ErrInvalidBackup,
		"persist_failed":    fmt.Errorf("%w: disk full", ErrPersistFailed),
		"not_found":         ErrNotFound,
		"validation":        &ValidationError{FieldErrors: map[string]string{"x": "y"}},
		"unexpected":        errors.New("boom"),
	}
	for want, err := range cases {
		if got := ErrorKind(err); got != want {
			t.Errorf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}
