package identity

import "github.com/google/uuid"

// GenerateID returns a time-ordered identifier for meetings and templates.
// UUIDv7 carries a millisecond timestamp followed by random bits.
func GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
