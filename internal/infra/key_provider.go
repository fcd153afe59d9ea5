package infra

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
)

const (
	stateKeyFileName = "state.key"
	stateKeySize     = 32 // SQLCipher raw key
)

// ErrStateKeyMissing is returned when state.db exists but its key file does
// not. A fresh key would never open the old database.
var ErrStateKeyMissing = errors.New("state database key is missing")

// StateKeyProvider keeps the SQLCipher key of the state database in a
// base64 file next to it, readable only by the owner.
type StateKeyProvider struct {
	keyPath string
}

// NewStateKeyProvider keeps the key in <dataDir>/state.key.
func NewStateKeyProvider(dataDir string) *StateKeyProvider {
	return &StateKeyProvider{keyPath: filepath.Join(dataDir, stateKeyFileName)}
}

// GetKey reads the state database key. Surrounding whitespace in the file
// is ignored.
func (p *StateKeyProvider) GetKey() ([]byte, error) {
	data, err := os.ReadFile(p.keyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", p.keyPath, ErrStateKeyMissing)
		}
		return nil, fmt.Errorf("failed to read state key %s: %w", p.keyPath, err)
	}

	key, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(data)))
	if err != nil {
		return nil, fmt.Errorf("state key %s is not valid base64: %w", p.keyPath, err)
	}
	if err := checkStateKey(key); err != nil {
		return nil, fmt.Errorf("state key %s: %w", p.keyPath, err)
	}
	return key, nil
}

// StoreKey writes the key with 0600 permissions.
func (p *StateKeyProvider) StoreKey(key []byte) error {
	if err := checkStateKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.keyPath), 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	line := base64.StdEncoding.EncodeToString(key) + "\n"
	if err := os.WriteFile(p.keyPath, []byte(line), 0600); err != nil {
		return fmt.Errorf("failed to write state key: %w", err)
	}
	return nil
}

// KeyExists reports whether the key file is present.
func (p *StateKeyProvider) KeyExists() bool {
	_, err := os.Stat(p.keyPath)
	return err == nil
}

func checkStateKey(key []byte) error {
	if len(key) != stateKeySize {
		return fmt.Errorf("invalid key size: got %d bytes, want %d", len(key), stateKeySize)
	}
	return nil
}

func newStateKey() ([]byte, error) {
	key := make([]byte, stateKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate state key: %w", err)
	}
	return key, nil
}

// ensureStateKey returns the key for the database at dbPath. A key is only
// minted while no database exists yet.
func ensureStateKey(provider domain.KeyProvider, dbPath string) ([]byte, error) {
	if provider.KeyExists() {
		return provider.GetKey()
	}
	if _, err := os.Stat(dbPath); err == nil {
		return nil, fmt.Errorf("%s: %w", dbPath, ErrStateKeyMissing)
	}

	key, err := newStateKey()
	if err != nil {
		return nil, err
	}
	if err := provider.StoreKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Ensure StateKeyProvider implements domain.KeyProvider.
var _ domain.KeyProvider = (*StateKeyProvider)(nil)
