package client

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrNoCredentials is returned by a TokenStore that has nothing saved
var ErrNoCredentials = errors.New("no stored credentials")

// TokenStore persists session credentials across process restarts.
// Different implementations can store tokens in files, keychains, memory, etc.
type TokenStore interface {
	// Load returns the saved tokens, or ErrNoCredentials
	Load() (access, refresh string, err error)

	// Save stores both tokens
	Save(access, refresh string) error

	// Clear removes stored credentials
	Clear() error
}

// Restore installs tokens from store into session. A store with nothing
// saved leaves the session empty and is not an error.
func Restore(session *Session, store TokenStore) error {
	access, refresh, err := store.Load()
	if errors.Is(err, ErrNoCredentials) {
		return nil
	}
	if err != nil {
		return err
	}
	session.SetTokens(access, refresh)
	return nil
}

// Persist mirrors every session change into store. Cleared sessions clear the store.
func Persist(session *Session, store TokenStore) {
	session.OnChange(func(access, refresh string) {
		var err error
		if access == "" && refresh == "" {
			err = store.Clear()
		} else {
			err = store.Save(access, refresh)
		}
		if err != nil {
			slog.Warn("failed to persist session tokens",
				slog.String("component", "token-store"),
				slog.String("error", err.Error()))
		}
	})
}

// MemoryTokenStore is an in-process TokenStore
type MemoryTokenStore struct {
	mu      sync.Mutex
	access  string
	refresh string
	saved   bool
}

// Load implements TokenStore
func (m *MemoryTokenStore) Load() (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.saved {
		return "", "", ErrNoCredentials
	}
	return m.access, m.refresh, nil
}

// Save implements TokenStore
func (m *MemoryTokenStore) Save(access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh, m.saved = access, refresh, true
	return nil
}

// Clear implements TokenStore
func (m *MemoryTokenStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh, m.saved = "", "", false
	return nil
}
