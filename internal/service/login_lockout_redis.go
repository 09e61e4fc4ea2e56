package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisLockoutBumpScript = redis.NewScript(`
local now_ms = tonumber(ARGV[1])
local max_attempts = tonumber(ARGV[2])
local lockout_ms = tonumber(ARGV[3])
local window_ms = tonumber(ARGV[4])

local key = KEYS[1]
local fail_count = tonumber(redis.call("HGET", key, "fail_count") or "0")
local last_failure_ms = tonumber(redis.call("HGET", key, "last_failure_ms") or "0")
local locked_until_ms = tonumber(redis.call("HGET", key, "locked_until_ms") or "0")

if locked_until_ms > 0 then
  if now_ms < locked_until_ms then
    return locked_until_ms - now_ms
  end
  fail_count = 0
  locked_until_ms = 0
end

if last_failure_ms > 0 and (now_ms - last_failure_ms) > window_ms then
  fail_count = 0
end

fail_count = fail_count + 1
local remaining = 0
if fail_count >= max_attempts then
  locked_until_ms = now_ms + lockout_ms
  remaining = lockout_ms
end

redis.call("HSET", key, "fail_count", tostring(fail_count), "last_failure_ms", tostring(now_ms), "locked_until_ms", tostring(locked_until_ms))
redis.call("PEXPIRE", key, window_ms + lockout_ms + 60000)
return remaining
`)

type RedisLoginLockout struct {
	client redis.UniversalClient
	prefix string
	policy LockoutPolicy
}

func NewRedisLoginLockout(client redis.UniversalClient, prefix string, policy LockoutPolicy) *RedisLoginLockout {
	if prefix == "" {
		prefix = "login_lockout"
	}
	return &RedisLoginLockout{
		client: client,
		prefix: prefix,
		policy: normalizeLockoutPolicy(policy),
	}
}

func (g *RedisLoginLockout) Check(ctx context.Context, identity, ip string) (time.Duration, error) {
	now := time.Now().UTC()
	idRemaining, err := g.remainingForKey(ctx, g.stateKey("id", normalizeLockIdentity(identity)), now)
	if err != nil {
		return 0, err
	}
	ipRemaining, err := g.remainingForKey(ctx, g.stateKey("ip", normalizeLockIP(ip)), now)
	if err != nil {
		return 0, err
	}
	return max(idRemaining, ipRemaining), nil
}

func (g *RedisLoginLockout) RegisterFailure(ctx context.Context, identity, ip string) (time.Duration, error) {
	nowMS := time.Now().UTC().UnixMilli()
	idRemaining, err := g.bumpKey(ctx, g.stateKey("id", normalizeLockIdentity(identity)), nowMS)
	if err != nil {
		return 0, err
	}
	ipRemaining, err := g.bumpKey(ctx, g.stateKey("ip", normalizeLockIP(ip)), nowMS)
	if err != nil {
		return 0, err
	}
	return max(idRemaining, ipRemaining), nil
}

func (g *RedisLoginLockout) Reset(ctx context.Context, identity, ip string) error {
	_, err := g.client.Del(
		ctx,
		g.stateKey("id", normalizeLockIdentity(identity)),
		g.stateKey("ip", normalizeLockIP(ip)),
	).Result()
	return err
}

func (g *RedisLoginLockout) bumpKey(ctx context.Context, key string, nowMS int64) (time.Duration, error) {
	result, err := redisLockoutBumpScript.Run(
		ctx,
		g.client,
		[]string{key},
		nowMS,
		g.policy.MaxAttempts,
		g.policy.LockoutDuration.Milliseconds(),
		g.policy.FailureWindow.Milliseconds(),
	).Result()
	if err != nil {
		return 0, err
	}
	remainingMS, err := parseLockoutRedisInt64(result)
	if err != nil {
		return 0, err
	}
	return time.Duration(max(remainingMS, int64(0))) * time.Millisecond, nil
}

func (g *RedisLoginLockout) remainingForKey(ctx context.Context, key string, now time.Time) (time.Duration, error) {
	raw, err := g.client.HGet(ctx, key, "locked_until_ms").Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var lockedUntilMS int64
	if _, err := fmt.Sscanf(raw, "%d", &lockedUntilMS); err != nil {
		return 0, err
	}
	nowMS := now.UnixMilli()
	if lockedUntilMS <= nowMS {
		return 0, nil
	}
	return time.Duration(lockedUntilMS-nowMS) * time.Millisecond, nil
}

func (g *RedisLoginLockout) stateKey(dim, value string) string {
	return fmt.Sprintf("%s:%s:%s", g.prefix, dim, hashToken(value))
}

func parseLockoutRedisInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("redis response overflows int64")
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected redis response type %T", v)
	}
}
