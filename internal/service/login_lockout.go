package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type LockoutPolicy struct {
	MaxAttempts     int
	LockoutDuration time.Duration
	FailureWindow   time.Duration
}

// LoginLockout enforces the fixed-threshold lockout: once MaxAttempts
// consecutive failures accumulate, the account is locked for the full
// LockoutDuration. The failure counter is cleared only by a
// successful login (Reset) or by the window expiring on its own;
// attempts made while locked neither extend nor restart the lock.
type LoginLockout interface {
	Check(ctx context.Context, identity, ip string) (time.Duration, error)
	RegisterFailure(ctx context.Context, identity, ip string) (time.Duration, error)
	Reset(ctx context.Context, identity, ip string) error
}

type NoopLoginLockout struct{}

func NewNoopLoginLockout() *NoopLoginLockout { return &NoopLoginLockout{} }

func (g *NoopLoginLockout) Check(context.Context, string, string) (time.Duration, error) {
	return 0, nil
}

func (g *NoopLoginLockout) RegisterFailure(context.Context, string, string) (time.Duration, error) {
	return 0, nil
}

func (g *NoopLoginLockout) Reset(context.Context, string, string) error { return nil }

type lockoutEntry struct {
	FailCount     int
	LastFailureAt time.Time
	LockedUntil   time.Time
}

type InMemoryLoginLockout struct {
	mu     sync.Mutex
	policy LockoutPolicy
	data   map[string]lockoutEntry
}

func NewInMemoryLoginLockout(policy LockoutPolicy) *InMemoryLoginLockout {
	return &InMemoryLoginLockout{
		policy: normalizeLockoutPolicy(policy),
		data:   make(map[string]lockoutEntry),
	}
}

func (g *InMemoryLoginLockout) Check(_ context.Context, identity, ip string) (time.Duration, error) {
	now := time.Now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()

	idRemaining := g.remainingLocked(now, g.stateKey("id", normalizeLockIdentity(identity)))
	ipRemaining := g.remainingLocked(now, g.stateKey("ip", normalizeLockIP(ip)))
	return max(idRemaining, ipRemaining), nil
}

func (g *InMemoryLoginLockout) RegisterFailure(_ context.Context, identity, ip string) (time.Duration, error) {
	now := time.Now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()

	idRemaining := g.bumpLocked(now, g.stateKey("id", normalizeLockIdentity(identity)))
	ipRemaining := g.bumpLocked(now, g.stateKey("ip", normalizeLockIP(ip)))
	return max(idRemaining, ipRemaining), nil
}

func (g *InMemoryLoginLockout) Reset(_ context.Context, identity, ip string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.data, g.stateKey("id", normalizeLockIdentity(identity)))
	delete(g.data, g.stateKey("ip", normalizeLockIP(ip)))
	return nil
}

func (g *InMemoryLoginLockout) bumpLocked(now time.Time, key string) time.Duration {
	entry := g.data[key]
	if !entry.LockedUntil.IsZero() {
		if now.Before(entry.LockedUntil) {
			// Failures during an active lock do not extend it.
			return entry.LockedUntil.Sub(now)
		}
		entry = lockoutEntry{}
	}
	if !entry.LastFailureAt.IsZero() && now.Sub(entry.LastFailureAt) > g.policy.FailureWindow {
		entry.FailCount = 0
	}
	entry.FailCount++
	entry.LastFailureAt = now
	if entry.FailCount >= g.policy.MaxAttempts {
		entry.LockedUntil = now.Add(g.policy.LockoutDuration)
		g.data[key] = entry
		return g.policy.LockoutDuration
	}
	g.data[key] = entry
	return 0
}

func (g *InMemoryLoginLockout) remainingLocked(now time.Time, key string) time.Duration {
	entry, ok := g.data[key]
	if !ok {
		return 0
	}
	if !entry.LockedUntil.IsZero() {
		if now.Before(entry.LockedUntil) {
			return entry.LockedUntil.Sub(now)
		}
		delete(g.data, key)
		return 0
	}
	if now.Sub(entry.LastFailureAt) > g.policy.FailureWindow {
		delete(g.data, key)
	}
	return 0
}

func (g *InMemoryLoginLockout) stateKey(dim, value string) string {
	return fmt.Sprintf("login:%s:%s", dim, value)
}

func normalizeLockIdentity(identity string) string {
	v := strings.TrimSpace(strings.ToLower(identity))
	if v == "" {
		return "anonymous"
	}
	return v
}

func normalizeLockIP(ip string) string {
	v := strings.TrimSpace(strings.ToLower(ip))
	if v == "" {
		return "unknown"
	}
	return v
}

func normalizeLockoutPolicy(policy LockoutPolicy) LockoutPolicy {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 5
	}
	if policy.LockoutDuration <= 0 {
		policy.LockoutDuration = 15 * time.Minute
	}
	if policy.FailureWindow < policy.LockoutDuration {
		policy.FailureWindow = policy.LockoutDuration
	}
	return policy
}
