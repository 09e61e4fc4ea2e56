package service

import (
	"context"
	"sync"
	"time"

	"github.com/escuelalink/parent-gateway/internal/directus"
)

// TokenVault keeps each user's upstream token pair server-side so it
// never reaches a client. Entries expire with the upstream refresh
// token; a miss means the user must log in again.
type TokenVault interface {
	Put(ctx context.Context, userID string, tokens *directus.Tokens, ttl time.Duration) error
	Get(ctx context.Context, userID string) (*directus.Tokens, bool, error)
	Delete(ctx context.Context, userID string) error
}

type vaultEntry struct {
	tokens    directus.Tokens
	expiresAt time.Time
}

type InMemoryTokenVault struct {
	mu   sync.RWMutex
	data map[string]vaultEntry
}

func NewInMemoryTokenVault() *InMemoryTokenVault {
	return &InMemoryTokenVault{data: make(map[string]vaultEntry)}
}

func (v *InMemoryTokenVault) Put(_ context.Context, userID string, tokens *directus.Tokens, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data[userID] = vaultEntry{tokens: *tokens, expiresAt: time.Now().UTC().Add(ttl)}
	return nil
}

func (v *InMemoryTokenVault) Get(_ context.Context, userID string) (*directus.Tokens, bool, error) {
	v.mu.RLock()
	entry, ok := v.data[userID]
	v.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if time.Now().UTC().After(entry.expiresAt) {
		v.mu.Lock()
		delete(v.data, userID)
		v.mu.Unlock()
		return nil, false, nil
	}
	tokens := entry.tokens
	return &tokens, true, nil
}

func (v *InMemoryTokenVault) Delete(_ context.Context, userID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.data, userID)
	return nil
}
