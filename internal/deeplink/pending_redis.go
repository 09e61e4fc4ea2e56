package deeplink

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPendingStore keeps pending deep links in Redis so consumption
// stays exactly-once across gateway instances.
type RedisPendingStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisPendingStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisPendingStore {
	if prefix == "" {
		prefix = "pending_deeplink"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisPendingStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisPendingStore) Put(ctx context.Context, userID, link string) error {
	if s.client == nil {
		return fmt.Errorf("deeplink: redis client not configured")
	}
	return s.client.Set(ctx, s.key(userID), link, s.ttl).Err()
}

func (s *RedisPendingStore) Consume(ctx context.Context, userID string) (string, bool, error) {
	if s.client == nil {
		return "", false, fmt.Errorf("deeplink: redis client not configured")
	}
	link, err := s.client.GetDel(ctx, s.key(userID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return link, true, nil
}

func (s *RedisPendingStore) Clear(ctx context.Context, userID string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Del(ctx, s.key(userID)).Err()
}

func (s *RedisPendingStore) key(userID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, userID)
}
