package identity

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

var testParams = Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1}

type samplePayload struct {
	Name     string            `json:"name"`
	Count    int               `json:"count"`
	Settings map[string]string `json:"settings"`
}

func TestCipherRoundTrip(t *testing.T) {
	t.Parallel()

	c := NewCipher(testParams)
	in := samplePayload{Name: "Ada", Count: 3, Settings: map[string]string{"b": "2", "a": "1"}}

	blob, err := c.Encrypt(in, "abcde-12345")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	if !strings.HasPrefix(blob, "$daylink$v=1$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected envelope header: %q", blob)
	}

	var out samplePayload
	if err := c.Decrypt(blob, "ABCDE-12345", &out); err != nil {
		t.Fatalf("Decrypt returned error: %v", err)
	}
	if out.Name != in.Name || out.Count != in.Count || out.Settings["a"] != "1" || out.Settings["b"] != "2" {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestCipherRejectsWrongPhrase(t *testing.T) {
	t.Parallel()

	c := NewCipher(testParams)
	blob, err := c.Encrypt(samplePayload{Name: "Ada"}, "ABCDE-12345")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}

	var out samplePayload
	if err := c.Decrypt(blob, "ABCDE-12346", &out); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
	if out.Name != "" {
		t.Fatalf("expected output untouched, got %+v", out)
	}
}

func TestCipherRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	c := NewCipher(testParams)
	blob, err := c.Encrypt(samplePayload{Name: "Ada"}, "ABCDE-12345")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	parts := strings.Split(blob, "$")
	sealed, _ := base64.RawStdEncoding.DecodeString(parts[6])
	sealed[0] ^= 0xff
	parts[6] = base64.RawStdEncoding.EncodeToString(sealed)
	tampered := strings.Join(parts, "$")

	shortSalt := strings.Split(blob, "$")
	shortSalt[4] = base64.RawStdEncoding.EncodeToString([]byte("salt"))

	cases := map[string]string{
		"empty":            "",
		"garbage":          "not a blob",
		"truncated":        strings.Join(parts[:5], "$"),
		"tampered":         tampered,
		"bad params":       strings.Replace(blob, "m=1024,t=1,p=1", "m=0,t=1,p=1", 1),
		"huge iterations":  strings.Replace(blob, "m=1024,t=1,p=1", "m=1024,t=4000000000,p=1", 1),
		"huge memory":      strings.Replace(blob, "m=1024,t=1,p=1", "m=4000000000,t=1,p=1", 1),
		"huge parallelism": strings.Replace(blob, "m=1024,t=1,p=1", "m=1024,t=1,p=200", 1),
		"short salt":       strings.Join(shortSalt, "$"),
		"legacy":           legacyPrefix + "garbage",
	}
	for name, input := range cases {
		input := input
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			var out samplePayload
			if err := c.Decrypt(input, "ABCDE-12345", &out); !errors.Is(err, ErrDecrypt) {
				t.Fatalf("expected ErrDecrypt, got %v", err)
			}
		})
	}

	t.Run("future version", func(t *testing.T) {
		t.Parallel()
		future := strings.Replace(blob, "$v=1$", "$v=2$", 1)
		var out samplePayload
		if err := c.Decrypt(future, "ABCDE-12345", &out); !errors.Is(err, ErrUnsupportedVersion) {
			t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
		}
	})
}

func TestNewCipherClampsCost(t *testing.T) {
	t.Parallel()

	params := NewCipher(Argon2idParams{Memory: 1 << 30, Iterations: 100, Parallelism: 64, SaltLength: 4}).Params()
	if params.Memory != MaxArgon2Memory || params.Iterations != MaxArgon2Iterations || params.Parallelism != MaxArgon2Parallelism {
		t.Fatalf("expected cost clamped to the decrypt ceilings, got %+v", params)
	}
	if params.SaltLength != minSaltLength {
		t.Fatalf("expected salt length raised to %d, got %d", minSaltLength, params.SaltLength)
	}
}

func TestCipherReadsBlobsWrittenWithOtherParams(t *testing.T) {
	t.Parallel()

	writer := NewCipher(testParams)
	reader := NewCipher(Argon2idParams{Memory: 2048, Iterations: 2, Parallelism: 1})

	blob, err := writer.Encrypt(samplePayload{Name: "Grace"}, "ZZZZZ-00000")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	var out samplePayload
	if err := reader.Decrypt(blob, "ZZZZZ-00000", &out); err != nil {
		t.Fatalf("Decrypt returned error: %v", err)
	}
	if out.Name != "Grace" {
		t.Fatalf("unexpected payload %+v", out)
	}
}

func TestCipherDecryptsLegacyBlobs(t *testing.T) {
	t.Parallel()

	blob := legacyEncrypt(t, []byte(`{"name":"Linus","count":7}`), "QWERT-12345", []byte("8bytes!!"))
	if !strings.HasPrefix(blob, legacyPrefix) {
		t.Fatalf("fixture has unexpected prefix: %q", blob)
	}

	c := NewCipher(testParams)
	var out samplePayload
	if err := c.Decrypt(blob, "qwert-12345", &out); err != nil {
		t.Fatalf("Decrypt returned error: %v", err)
	}
	if out.Name != "Linus" || out.Count != 7 {
		t.Fatalf("unexpected payload %+v", out)
	}

	var wrong samplePayload
	if err := c.Decrypt(blob, "QWERT-12346", &wrong); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt for wrong phrase, got %v", err)
	}
}

func legacyEncrypt(t *testing.T, plaintext []byte, phrase string, salt []byte) string {
	t.Helper()

	key, iv := evpBytesToKey([]byte(strings.ToUpper(phrase)), salt, 32, aes.BlockSize)
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	pad := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := append(append([]byte{}, plaintext...), bytes.Repeat([]byte{byte(pad)}, pad)...)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	raw := append([]byte(legacyMagic), salt...)
	raw = append(raw, out...)
	return base64.StdEncoding.EncodeToString(raw)
}
