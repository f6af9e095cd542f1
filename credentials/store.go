// Package credentials holds the mutable OAuth refresh token for the single account the relay serves.
//
// The default MemoryStore lives for the process lifetime only: a restart loses any token obtained
// through /callback unless SPOTIFY_REFRESH_TOKEN is reseeded. BoltStore keeps it on disk.
package credentials

import (
	"context"
	"sync"
)

// Store reads and replaces the refresh token.
type Store interface {
	// RefreshToken returns the current refresh token, or "" when none is configured.
	RefreshToken(ctx context.Context) (string, error)
	// SetRefreshToken replaces the refresh token.
	SetRefreshToken(ctx context.Context, token string) error
}

// MemoryStore keeps the refresh token in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates a store seeded with the given token (may be empty).
func NewMemoryStore(seed string) *MemoryStore {
	return &MemoryStore{token: seed}
}

func (m *MemoryStore) RefreshToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *MemoryStore) SetRefreshToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// HasRefreshToken reports whether the store currently holds a non-empty token.
func HasRefreshToken(ctx context.Context, s Store) bool {
	token, err := s.RefreshToken(ctx)
	return err == nil && token != ""
}
