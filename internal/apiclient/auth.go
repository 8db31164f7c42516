package apiclient

import (
	"context"
	"sync"
)

// DefaultLoginPath is passed to OnUnauthorized after a 401.
const DefaultLoginPath = "/login"

// TokenStore holds the bearer token attached to every request.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	ClearToken(ctx context.Context) error
}

// MemoryTokenStore is a TokenStore kept in process memory.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryTokenStore returns a store seeded with token.
func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

func (m *MemoryTokenStore) Token(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

// SetToken replaces the stored token.
func (m *MemoryTokenStore) SetToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

func (m *MemoryTokenStore) ClearToken(_ context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}
