package deeplink

import (
	"context"
	"sync"
	"time"
)

// PendingStore holds at most one deferred deep link per user: a link
// that arrived before authentication finished and is consumed exactly
// once afterwards.
type PendingStore interface {
	Put(ctx context.Context, userID, link string) error
	// Consume returns the stored link and removes it atomically; the
	// second result is false when nothing was pending.
	Consume(ctx context.Context, userID string) (string, bool, error)
	Clear(ctx context.Context, userID string) error
}

type pendingEntry struct {
	link      string
	expiresAt time.Time
}

// MemoryPendingStore is the single-process fallback when Redis is not
// configured.
type MemoryPendingStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	data map[string]pendingEntry
}

func NewMemoryPendingStore(ttl time.Duration) *MemoryPendingStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryPendingStore{ttl: ttl, data: map[string]pendingEntry{}}
}

func (s *MemoryPendingStore) Put(_ context.Context, userID, link string) error {
	s.mu.Lock()
	s.data[userID] = pendingEntry{link: link, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryPendingStore) Consume(_ context.Context, userID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.data[userID]
	if !ok {
		return "", false, nil
	}
	delete(s.data, userID)
	if time.Now().After(entry.expiresAt) {
		return "", false, nil
	}
	return entry.link, true, nil
}

func (s *MemoryPendingStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.data, userID)
	s.mu.Unlock()
	return nil
}
