package identity

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/base64"
	"strings"
)

// Browser builds stored OpenSSL-compatible "Salted__" blobs.
const (
	legacyMagic  = "Salted__"
	legacyPrefix = "U2FsdGVkX1"
)

func isLegacyBlob(ciphertext string) bool {
	return strings.HasPrefix(ciphertext, legacyPrefix)
}

// decryptLegacy opens an AES-256-CBC blob keyed with OpenSSL's
// EVP_BytesToKey (MD5, one round). These blobs are read, never written.
func decryptLegacy(ciphertext, phrase string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, ErrDecrypt
	}
	if len(raw) < 16 || string(raw[:8]) != legacyMagic {
		return nil, ErrDecrypt
	}
	salt, body := raw[8:16], raw[16:]
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return nil, ErrDecrypt
	}

	key, iv := evpBytesToKey([]byte(strings.ToUpper(phrase)), salt, 32, aes.BlockSize)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrDecrypt
	}
	plaintext := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, body)

	return pkcs7Unpad(plaintext)
}

func evpBytesToKey(password, salt []byte, keyLen, ivLen int) ([]byte, []byte) {
	var (
		derived []byte
		prev    []byte
	)
	for len(derived) < keyLen+ivLen {
		h := md5.New()
		h.Write(prev)
		h.Write(password)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keyLen], derived[keyLen : keyLen+ivLen]
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrDecrypt
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(data) {
		return nil, ErrDecrypt
	}
	if !bytes.Equal(data[len(data)-pad:], bytes.Repeat([]byte{byte(pad)}, pad)) {
		return nil, ErrDecrypt
	}
	return data[:len(data)-pad], nil
}
