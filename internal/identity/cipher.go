package identity

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/crypto/argon2"
)

var (
	// ErrDecrypt is returned for every decryption failure: malformed blob,
	// wrong phrase, tampered ciphertext or an undecodable payload.
	ErrDecrypt = errors.New("identity: unable to decrypt data")
	// ErrUnsupportedVersion is returned when a blob was written by a newer format.
	ErrUnsupportedVersion = errors.New("identity: unsupported cipher version")
)

const (
	envelopeTag     = "daylink"
	envelopeVersion = 1
)

// Ceilings on the cost a blob header may ask for. Headers beyond them are
// treated as malformed so a crafted backup cannot stall or exhaust the process.
const (
	MaxArgon2Memory      = 1 << 20 // KiB, 1 GiB
	MaxArgon2Iterations  = 16
	MaxArgon2Parallelism = 16
	minSaltLength        = 8
	maxSaltLength        = 64
)

// canonicalJSON sorts map keys so equal payloads serialise identically.
var canonicalJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Argon2idParams controls the cost of deriving an AES key from a phrase.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// Cipher encrypts JSON payloads under a phrase-derived key.
type Cipher struct {
	params Argon2idParams
}

// NewCipher builds a cipher writing blobs with the supplied parameters.
// Zero fields fall back to DefaultArgon2idParams.
func NewCipher(params Argon2idParams) *Cipher {
	if params.Memory == 0 {
		params.Memory = DefaultArgon2idParams.Memory
	}
	if params.Iterations == 0 {
		params.Iterations = DefaultArgon2idParams.Iterations
	}
	if params.Parallelism == 0 {
		params.Parallelism = DefaultArgon2idParams.Parallelism
	}
	if params.SaltLength == 0 {
		params.SaltLength = DefaultArgon2idParams.SaltLength
	}
	params.Memory = min(params.Memory, MaxArgon2Memory)
	params.Iterations = min(params.Iterations, MaxArgon2Iterations)
	params.Parallelism = min(params.Parallelism, MaxArgon2Parallelism)
	params.SaltLength = max(min(params.SaltLength, maxSaltLength), minSaltLength)
	// AES-256 only.
	params.KeyLength = 32
	return &Cipher{params: params}
}

// Params reports the parameters used for new blobs.
func (c *Cipher) Params() Argon2idParams {
	return c.params
}

// Encrypt serialises payload and seals it under the uppercased phrase.
func (c *Cipher) Encrypt(payload any, phrase string) (string, error) {
	plaintext, err := canonicalJSON.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("identity: encode payload: %w", err)
	}

	salt := make([]byte, c.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	aead, err := newAEAD(phrase, salt, c.params)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nil, nonce, plaintext, nil)

	// Format is $daylink$v=1$m=...,t=...,p=...$salt$nonce$ciphertext
	format := "$%s$v=%d$m=%d,t=%d,p=%d$%s$%s$%s"
	return fmt.Sprintf(format,
		envelopeTag,
		envelopeVersion,
		c.params.Memory, c.params.Iterations, c.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(nonce),
		base64.RawStdEncoding.EncodeToString(sealed),
	), nil
}

// Decrypt opens a blob produced by Encrypt, or by the browser build of the
// application, and decodes the JSON payload into out.
func (c *Cipher) Decrypt(ciphertext, phrase string, out any) error {
	var (
		plaintext []byte
		err       error
	)
	if isLegacyBlob(ciphertext) {
		plaintext, err = decryptLegacy(ciphertext, phrase)
	} else {
		plaintext, err = openEnvelope(ciphertext, phrase)
	}
	if err != nil {
		return err
	}
	if len(plaintext) == 0 {
		return ErrDecrypt
	}
	if err := canonicalJSON.Unmarshal(plaintext, out); err != nil {
		return ErrDecrypt
	}
	return nil
}

func openEnvelope(ciphertext, phrase string) ([]byte, error) {
	parts := strings.Split(ciphertext, "$")
	if len(parts) != 7 || parts[0] != "" || parts[1] != envelopeTag {
		return nil, ErrDecrypt
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, ErrDecrypt
	}
	if version != envelopeVersion {
		return nil, ErrUnsupportedVersion
	}

	var params Argon2idParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return nil, ErrDecrypt
	}
	if !params.withinLimits() {
		return nil, ErrDecrypt
	}
	params.KeyLength = 32

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < minSaltLength || len(salt) > maxSaltLength {
		return nil, ErrDecrypt
	}
	nonce, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, ErrDecrypt
	}
	sealed, err := base64.RawStdEncoding.DecodeString(parts[6])
	if err != nil {
		return nil, ErrDecrypt
	}

	aead, err := newAEAD(phrase, salt, params)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrDecrypt
	}
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func (p Argon2idParams) withinLimits() bool {
	return p.Memory > 0 && p.Memory <= MaxArgon2Memory &&
		p.Iterations > 0 && p.Iterations <= MaxArgon2Iterations &&
		p.Parallelism > 0 && p.Parallelism <= MaxArgon2Parallelism
}

func newAEAD(phrase string, salt []byte, params Argon2idParams) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(strings.ToUpper(phrase)), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
