package persistence

import "time"

// ProfileRecord is one encrypted profile slot. Key is the prefixed storage
// key derived from the owner's phrase; Encrypted is opaque to this layer.
type ProfileRecord struct {
	Key       string
	Encrypted string
	UpdatedAt time.Time
}

// Setting is a plain, unencrypted key/value pair such as the theme record.
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
