// Package keyring keeps the key that encrypts stored passwords, preferring
// the operating system keyring and falling back to a key file.
package keyring

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keySize = 32

// Provider stores one encryption key.
type Provider interface {
	GetKey() ([]byte, error)
	SetKey() ([]byte, error)
}

// Keyring keeps the key in the OS keyring service.
type Keyring struct {
	AppName  string
	KeyField string
}

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
	randRead      = rand.Read
)

func NewKeyring() *Keyring {
	return &Keyring{
		AppName:  "nauta",
		KeyField: "users",
	}
}

// SetKey generates a fresh key and stores it hex-encoded.
func (k *Keyring) SetKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := randRead(key); err != nil {
		return nil, err
	}
	if err := keyringSet(k.AppName, k.KeyField, hex.EncodeToString(key)); err != nil {
		return nil, err
	}
	return key, nil
}

func (k *Keyring) GetKey() ([]byte, error) {
	val, err := keyringGet(k.AppName, k.KeyField)
	if err != nil {
		return nil, err
	}
	key, err := hex.DecodeString(val)
	if err != nil {
		return nil, fmt.Errorf("invalid key format: %w", err)
	}
	return key, nil
}

func (k *Keyring) DeleteKey() error {
	return keyringDelete(k.AppName, k.KeyField)
}

// ErrNoProvider is returned by LoadKey when no provider could hold a key.
var ErrNoProvider = errors.New("no key storage available")

// LoadKey returns the key held by the first provider that has one. When
// none has, a key is created in the first provider that accepts it.
func LoadKey(providers ...Provider) ([]byte, error) {
	for _, p := range providers {
		if key, err := p.GetKey(); err == nil && len(key) == keySize {
			return key, nil
		}
	}
	var errs []error
	for _, p := range providers {
		key, err := p.SetKey()
		if err == nil {
			return key, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNoProvider
	}
	return nil, fmt.Errorf("%w: %w", ErrNoProvider, errors.Join(errs...))
}

// ParseHexKey decodes a key given on the command line or in the environment.
func ParseHexKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid key format: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("invalid key length: expected %d, got %d", keySize, len(key))
	}
	return key, nil
}
