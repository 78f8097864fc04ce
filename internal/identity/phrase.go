// Package identity derives everything a profile needs from its unique
// phrase: the storage slot it lives in and the cipher that protects it.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"regexp"
	"strings"
)

const phraseAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// PhraseGroupLength is the number of characters on each side of the dash.
const PhraseGroupLength = 5

var phrasePattern = regexp.MustCompile(`^[A-Z0-9]{5}-[A-Z0-9]{5}$`)

// GeneratePhrase returns a fresh phrase in AAAAA-BBBBB form drawn from a
// cryptographically secure source.
func GeneratePhrase() (string, error) {
	var b strings.Builder
	b.Grow(PhraseGroupLength*2 + 1)
	limit := big.NewInt(int64(len(phraseAlphabet)))
	for i := 0; i < PhraseGroupLength*2; i++ {
		if i == PhraseGroupLength {
			b.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(phraseAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizePhrase trims surrounding whitespace and uppercases the phrase.
func NormalizePhrase(phrase string) string {
	return strings.ToUpper(strings.TrimSpace(phrase))
}

// ValidateFormat reports whether the phrase matches AAAAA-BBBBB once
// uppercased. Surrounding whitespace is not tolerated.
func ValidateFormat(phrase string) bool {
	return phrasePattern.MatchString(strings.ToUpper(phrase))
}

// StorageKey returns the lowercase hex SHA-256 digest of the uppercased
// phrase. It names a storage slot and is never used as key material.
func StorageKey(phrase string) string {
	sum := sha256.Sum256([]byte(strings.ToUpper(phrase)))
	return hex.EncodeToString(sum[:])
}
