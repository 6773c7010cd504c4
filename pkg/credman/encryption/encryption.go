// Package encryption seals stored passwords with AES-256-GCM.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	gcmPrefix = "gcm1"
	KeySize   = 32
)

var (
	ErrInvalidKey       = errors.New("encryption key must be 32 bytes")
	ErrUnknownFormat    = errors.New("unknown ciphertext format")
	ErrCiphertextLength = errors.New("ciphertext too short")
)

var randReader io.Reader = rand.Reader

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptValue returns "gcm1" || nonce || sealed value.
func EncryptValue(value string, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(value), nil)
	out := make([]byte, 0, len(gcmPrefix)+len(nonce)+len(ciphertext))
	out = append(out, gcmPrefix...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// DecryptValue opens a value produced by EncryptValue.
func DecryptValue(ciphertext []byte, key []byte) ([]byte, error) {
	if len(ciphertext) < len(gcmPrefix) || string(ciphertext[:len(gcmPrefix)]) != gcmPrefix {
		return nil, ErrUnknownFormat
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < len(gcmPrefix)+nonceSize {
		return nil, ErrCiphertextLength
	}
	nonce := ciphertext[len(gcmPrefix) : len(gcmPrefix)+nonceSize]
	data := ciphertext[len(gcmPrefix)+nonceSize:]
	return gcm.Open(nil, nonce, data, nil)
}

// EncryptString is EncryptValue encoded as base64 text, the form kept in
// the users database.
func EncryptString(value string, key []byte) (string, error) {
	raw, err := EncryptValue(value, key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecryptString reverses EncryptString.
func DecryptString(encoded string, key []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	plain, err := DecryptValue(raw, key)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
