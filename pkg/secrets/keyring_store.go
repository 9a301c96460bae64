package secrets

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "dicescraper"
	keyringPrefix  = "apikey_"
)

// KeyringStore keeps keys in the system keychain
type KeyringStore struct{}

// NewKeyringStore returns a store after checking the keychain is usable
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

func (k *KeyringStore) Name() string { return "keyring" }

func (k *KeyringStore) Store(key *APIKey) error {
	if key == nil || key.Provider == "" {
		return ErrInvalidKey
	}
	data, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("failed to marshal api key: %w", err)
	}
	if err := keyring.Set(keyringService, keyringPrefix+key.Provider, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Retrieve(provider string) (*APIKey, error) {
	if provider == "" {
		return nil, ErrInvalidKey
	}
	data, err := keyring.Get(keyringService, keyringPrefix+provider)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var key APIKey
	if err := json.Unmarshal([]byte(data), &key); err != nil {
		return nil, fmt.Errorf("failed to unmarshal api key: %w", err)
	}
	return &key, nil
}

// List checks the known providers; go-keyring cannot enumerate entries
func (k *KeyringStore) List() ([]*APIKey, error) {
	var keys []*APIKey
	for _, p := range KnownProviders {
		if key, err := k.Retrieve(p); err == nil {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (k *KeyringStore) Delete(provider string) error {
	if provider == "" {
		return ErrInvalidKey
	}
	if err := keyring.Delete(keyringService, keyringPrefix+provider); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
