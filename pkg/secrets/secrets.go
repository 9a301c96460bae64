package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// APIKey is a stored provider credential
type APIKey struct {
	Provider     string    `json:"provider"`
	Key          string    `json:"key"`
	LastModified time.Time `json:"last_modified"`
}

// Store is a backend for API keys
type Store interface {
	// Name identifies the backend in status output
	Name() string
	Store(key *APIKey) error
	Retrieve(provider string) (*APIKey, error)
	List() ([]*APIKey, error)
	Delete(provider string) error
}

// Errors
var (
	ErrKeyNotFound      = errors.New("api key not found")
	ErrInvalidKey       = errors.New("invalid api key")
	ErrStoreUnavailable = errors.New("secret store unavailable")
)

// Manager reads and writes API keys through an ordered list of stores
type Manager struct {
	stores []Store
}

// NewManager creates a manager over the keyring, an encrypted file in the
// user config dir and the environment, in that order
func NewManager() (*Manager, error) {
	var stores []Store

	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}

	configDir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fs, err := NewEncryptedFileStore(filepath.Join(configDir, "secrets.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, fs, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over the given stores
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Set saves a key in the first store that accepts it
func (m *Manager) Set(provider, key string) error {
	provider = normalizeProvider(provider)
	if provider == "" {
		return errors.New("provider is required")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("api key is required")
	}

	k := &APIKey{Provider: provider, Key: strings.TrimSpace(key), LastModified: time.Now()}

	var lastErr error
	for _, s := range m.stores {
		if err := s.Store(k); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("failed to store api key: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Get returns the key for provider from the first store that has it
func (m *Manager) Get(provider string) (string, error) {
	provider = normalizeProvider(provider)
	for _, s := range m.stores {
		if k, err := s.Retrieve(provider); err == nil && k != nil {
			return k.Key, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrKeyNotFound, provider)
}

// Remove deletes the key from every writable store
func (m *Manager) Remove(provider string) error {
	provider = normalizeProvider(provider)
	var deleted bool
	var lastErr error

	for _, s := range m.stores {
		if err := s.Delete(provider); err == nil {
			deleted = true
		} else if !errors.Is(err, ErrStoreUnavailable) {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil && !errors.Is(lastErr, ErrKeyNotFound) {
		return fmt.Errorf("failed to delete api key: %w", lastErr)
	}
	return fmt.Errorf("%w: %s", ErrKeyNotFound, provider)
}

// Status is one line of `auth status`
type Status struct {
	Provider string
	Store    string
	Masked   string
	Modified time.Time
}

// Status lists the keys each store knows about, newest first per provider
func (m *Manager) Status() []Status {
	best := make(map[string]Status)
	for _, s := range m.stores {
		keys, err := s.List()
		if err != nil {
			continue
		}
		for _, k := range keys {
			if cur, ok := best[k.Provider]; !ok || k.LastModified.After(cur.Modified) {
				best[k.Provider] = Status{
					Provider: k.Provider,
					Store:    s.Name(),
					Masked:   Mask(k.Key),
					Modified: k.LastModified,
				}
			}
		}
	}

	out := make([]Status, 0, len(best))
	for _, st := range best {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

// Mask hides all but the first and last four characters of a key
func Mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func normalizeProvider(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}

// ConfigDir returns the per-user configuration directory, creating it
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "dicescraper")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "dicescraper")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "dicescraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "dicescraper")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}
