package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/escuelalink/parent-gateway/internal/permission"

	"github.com/redis/go-redis/v9"
)

type RedisSnapshotStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisSnapshotStore(client redis.UniversalClient, prefix string) *RedisSnapshotStore {
	if prefix == "" {
		prefix = "perm_snapshot"
	}
	return &RedisSnapshotStore{client: client, prefix: prefix}
}

func (s *RedisSnapshotStore) Get(ctx context.Context, userID string) ([]permission.Grant, bool, error) {
	if s.client == nil {
		return nil, false, nil
	}
	payload, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var grants []permission.Grant
	if err := json.Unmarshal(payload, &grants); err != nil {
		return nil, false, err
	}
	return grants, true, nil
}

func (s *RedisSnapshotStore) Set(ctx context.Context, userID string, grants []permission.Grant, ttl time.Duration) error {
	if s.client == nil || ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(grants)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(userID), payload, ttl).Err()
}

func (s *RedisSnapshotStore) InvalidateUser(ctx context.Context, userID string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Del(ctx, s.key(userID)).Err()
}

func (s *RedisSnapshotStore) key(userID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, hashToken(userID))
}

func hashToken(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}
