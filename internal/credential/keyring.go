// Package credential stores application state in the operating system
// keyring. Identity passwords and tokens are secrets, so users can opt to
// keep the identity list here instead of the SQLite file.
package credential

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"

	"github.com/nhle/burnerx/internal/store"
)

const serviceName = "burnerx"

// Open returns a configured keyring instance. dir holds the encrypted file
// backend used when no system keyring is available.
func Open(dir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(dir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("burnerx-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// KV implements store.KV on top of a keyring.
type KV struct {
	ring keyring.Keyring
}

var _ store.KV = (*KV)(nil)

// NewKV wraps ring as a key/value store.
func NewKV(ring keyring.Keyring) *KV {
	return &KV{ring: ring}
}

// Get retrieves a value by key from the keyring.
func (k *KV) Get(_ context.Context, key string) (string, bool, error) {
	item, err := k.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), true, nil
}

// Set stores a value by key in the keyring.
func (k *KV) Set(_ context.Context, key string, value string) error {
	err := k.ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(value),
		Label:       serviceName + " " + key,
		Description: "burnerx application state",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a key from the keyring. Missing keys are ignored.
func (k *KV) Delete(_ context.Context, key string) error {
	err := k.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}
