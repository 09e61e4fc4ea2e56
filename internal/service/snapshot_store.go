package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/escuelalink/parent-gateway/internal/permission"
)

// SnapshotStore caches the raw grant set a user's snapshot is built
// from. Grants are stored rather than the merged snapshot so the
// merge rules can change without invalidating cached data.
type SnapshotStore interface {
	Get(ctx context.Context, userID string) ([]permission.Grant, bool, error)
	Set(ctx context.Context, userID string, grants []permission.Grant, ttl time.Duration) error
	InvalidateUser(ctx context.Context, userID string) error
}

type NoopSnapshotStore struct{}

func NewNoopSnapshotStore() *NoopSnapshotStore { return &NoopSnapshotStore{} }

func (s *NoopSnapshotStore) Get(context.Context, string) ([]permission.Grant, bool, error) {
	return nil, false, nil
}

func (s *NoopSnapshotStore) Set(context.Context, string, []permission.Grant, time.Duration) error {
	return nil
}

func (s *NoopSnapshotStore) InvalidateUser(context.Context, string) error { return nil }

type snapshotCacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

type InMemorySnapshotStore struct {
	mu   sync.RWMutex
	data map[string]snapshotCacheEntry
}

func NewInMemorySnapshotStore() *InMemorySnapshotStore {
	return &InMemorySnapshotStore{data: make(map[string]snapshotCacheEntry)}
}

func (s *InMemorySnapshotStore) Get(_ context.Context, userID string) ([]permission.Grant, bool, error) {
	s.mu.RLock()
	entry, ok := s.data[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if time.Now().UTC().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.data, userID)
		s.mu.Unlock()
		return nil, false, nil
	}
	var grants []permission.Grant
	if err := json.Unmarshal(entry.payload, &grants); err != nil {
		return nil, false, err
	}
	return grants, true, nil
}

func (s *InMemorySnapshotStore) Set(_ context.Context, userID string, grants []permission.Grant, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(grants)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = snapshotCacheEntry{payload: payload, expiresAt: time.Now().UTC().Add(ttl)}
	return nil
}

func (s *InMemorySnapshotStore) InvalidateUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
	return nil
}
