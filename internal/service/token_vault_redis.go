package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/escuelalink/parent-gateway/internal/directus"

	"github.com/redis/go-redis/v9"
)

type RedisTokenVault struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisTokenVault(client redis.UniversalClient, prefix string) *RedisTokenVault {
	if prefix == "" {
		prefix = "token_vault"
	}
	return &RedisTokenVault{client: client, prefix: prefix}
}

func (v *RedisTokenVault) Put(ctx context.Context, userID string, tokens *directus.Tokens, ttl time.Duration) error {
	if v.client == nil || ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	return v.client.Set(ctx, v.key(userID), payload, ttl).Err()
}

func (v *RedisTokenVault) Get(ctx context.Context, userID string) (*directus.Tokens, bool, error) {
	if v.client == nil {
		return nil, false, nil
	}
	payload, err := v.client.Get(ctx, v.key(userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var tokens directus.Tokens
	if err := json.Unmarshal(payload, &tokens); err != nil {
		return nil, false, err
	}
	return &tokens, true, nil
}

func (v *RedisTokenVault) Delete(ctx context.Context, userID string) error {
	if v.client == nil {
		return nil
	}
	return v.client.Del(ctx, v.key(userID)).Err()
}

func (v *RedisTokenVault) key(userID string) string {
	return fmt.Sprintf("%s:%s", v.prefix, hashToken(userID))
}
