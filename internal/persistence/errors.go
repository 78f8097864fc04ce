package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrBusy is returned when the backing store stayed locked past the retry budget.
	ErrBusy = errors.New("persistence: store busy")
)
