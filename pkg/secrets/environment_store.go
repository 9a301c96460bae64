package secrets

import (
	"os"
	"strings"
	"time"
)

// KnownProviders are the classifier providers that take an API key
var KnownProviders = []string{"openai", "groq"}

// EnvVar returns the environment variable holding provider's key
func EnvVar(provider string) string {
	return "DICESCRAPER_" + strings.ToUpper(provider) + "_API_KEY"
}

// EnvironmentStore reads keys from DICESCRAPER_<PROVIDER>_API_KEY. It is
// read-only.
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Name() string { return "environment" }

func (e *EnvironmentStore) Store(key *APIKey) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Retrieve(provider string) (*APIKey, error) {
	if provider == "" {
		return nil, ErrInvalidKey
	}
	v := os.Getenv(EnvVar(provider))
	if v == "" {
		return nil, ErrKeyNotFound
	}
	return &APIKey{Provider: provider, Key: v, LastModified: time.Time{}}, nil
}

func (e *EnvironmentStore) List() ([]*APIKey, error) {
	var keys []*APIKey
	for _, p := range KnownProviders {
		if k, err := e.Retrieve(p); err == nil {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (e *EnvironmentStore) Delete(provider string) error {
	return ErrStoreUnavailable
}
