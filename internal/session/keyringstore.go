package session

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "authgate-cli"

// KeyringStore persists session values in the OS keychain/credential
// manager. Preferred for the CLI: tokens never touch the filesystem.
type KeyringStore struct{}

// NewKeyringStore returns a keyring-backed store.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (k *KeyringStore) Get(key string) (string, bool) {
	value, err := keyring.Get(keyringService, key)
	if err != nil {
		return "", false
	}
	return value, true
}

func (k *KeyringStore) Set(key, value string) error {
	if err := keyring.Set(keyringService, key, value); err != nil {
		return fmt.Errorf("failed to save %q to keyring: %w", key, err)
	}
	return nil
}

func (k *KeyringStore) Remove(key string) error {
	if err := keyring.Delete(keyringService, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // already gone
		}
		return fmt.Errorf("failed to delete %q from keyring: %w", key, err)
	}
	return nil
}
