package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestInMemoryLoginLockoutThreshold(t *testing.T) {
	guard := NewInMemoryLoginLockout(LockoutPolicy{
		MaxAttempts:     5,
		LockoutDuration: time.Minute,
		FailureWindow:   time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		remaining, err := guard.RegisterFailure(ctx, "a@example.com", "10.0.0.1")
		if err != nil {
			t.Fatalf("register failure #%d: %v", i+1, err)
		}
		if remaining != 0 {
			t.Fatalf("attempt %d must not lock, got %v", i+1, remaining)
		}
	}
	remaining, err := guard.RegisterFailure(ctx, "a@example.com", "10.0.0.1")
	if err != nil {
		t.Fatalf("register failure #5: %v", err)
	}
	if remaining != time.Minute {
		t.Fatalf("5th failure must lock for the full duration, got %v", remaining)
	}
	if retry, _ := guard.Check(ctx, "a@example.com", "10.0.0.1"); retry <= 0 {
		t.Fatal("expected active lock after threshold")
	}
}

func TestInMemoryLoginLockoutFailuresDoNotExtendLock(t *testing.T) {
	guard := NewInMemoryLoginLockout(LockoutPolicy{
		MaxAttempts:     2,
		LockoutDuration: time.Minute,
		FailureWindow:   time.Minute,
	})
	ctx := context.Background()
	_, _ = guard.RegisterFailure(ctx, "b@example.com", "10.0.0.2")
	_, _ = guard.RegisterFailure(ctx, "b@example.com", "10.0.0.2")

	before, _ := guard.Check(ctx, "b@example.com", "10.0.0.2")
	after, err := guard.RegisterFailure(ctx, "b@example.com", "10.0.0.2")
	if err != nil {
		t.Fatalf("register during lock: %v", err)
	}
	if after > before {
		t.Fatalf("failure during lock must not extend it: before=%v after=%v", before, after)
	}
}

func TestInMemoryLoginLockoutResetClearsCounter(t *testing.T) {
	guard := NewInMemoryLoginLockout(LockoutPolicy{
		MaxAttempts:     3,
		LockoutDuration: time.Minute,
		FailureWindow:   time.Minute,
	})
	ctx := context.Background()
	_, _ = guard.RegisterFailure(ctx, "c@example.com", "10.0.0.3")
	_, _ = guard.RegisterFailure(ctx, "c@example.com", "10.0.0.3")
	if err := guard.Reset(ctx, "c@example.com", "10.0.0.3"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	// After a successful login, the count starts over.
	for i := 0; i < 2; i++ {
		if remaining, _ := guard.RegisterFailure(ctx, "c@example.com", "10.0.0.3"); remaining != 0 {
			t.Fatalf("attempt %d after reset must not lock, got %v", i+1, remaining)
		}
	}
}

func TestInMemoryLoginLockoutDimensionIsolation(t *testing.T) {
	guard := NewInMemoryLoginLockout(LockoutPolicy{
		MaxAttempts:     1,
		LockoutDuration: time.Minute,
		FailureWindow:   time.Minute,
	})
	ctx := context.Background()
	_, _ = guard.RegisterFailure(ctx, "d@example.com", "10.0.0.4")

	if retry, _ := guard.Check(ctx, "d@example.com", "10.0.0.9"); retry <= 0 {
		t.Fatal("expected identity dimension to lock")
	}
	if retry, _ := guard.Check(ctx, "z@example.com", "10.0.0.4"); retry <= 0 {
		t.Fatal("expected ip dimension to lock")
	}
	if retry, _ := guard.Check(ctx, "z@example.com", "10.0.0.9"); retry != 0 {
		t.Fatalf("unrelated identity and ip must be unaffected, got %v", retry)
	}
}

func TestRedisLoginLockout(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	guard := NewRedisLoginLockout(client, "test_lockout", LockoutPolicy{
		MaxAttempts:     3,
		LockoutDuration: time.Minute,
		FailureWindow:   time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		remaining, err := guard.RegisterFailure(ctx, "e@example.com", "10.0.0.5")
		if err != nil {
			t.Fatalf("register failure #%d: %v", i+1, err)
		}
		if remaining != 0 {
			t.Fatalf("attempt %d must not lock, got %v", i+1, remaining)
		}
	}
	remaining, err := guard.RegisterFailure(ctx, "e@example.com", "10.0.0.5")
	if err != nil {
		t.Fatalf("register failure #3: %v", err)
	}
	if remaining != time.Minute {
		t.Fatalf("3rd failure must lock for the full duration, got %v", remaining)
	}
	if retry, err := guard.Check(ctx, "e@example.com", "10.0.0.5"); err != nil || retry <= 0 {
		t.Fatalf("expected active lock, got retry=%v err=%v", retry, err)
	}

	if err := guard.Reset(ctx, "e@example.com", "10.0.0.5"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if retry, _ := guard.Check(ctx, "e@example.com", "10.0.0.5"); retry != 0 {
		t.Fatalf("expected lock cleared after reset, got %v", retry)
	}
}

func TestRedisLoginLockoutNaturalExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	guard := NewRedisLoginLockout(client, "test_lockout", LockoutPolicy{
		MaxAttempts:     1,
		LockoutDuration: 50 * time.Millisecond,
		FailureWindow:   50 * time.Millisecond,
	})
	ctx := context.Background()

	if remaining, _ := guard.RegisterFailure(ctx, "f@example.com", "10.0.0.6"); remaining <= 0 {
		t.Fatal("expected immediate lock at threshold 1")
	}
	time.Sleep(60 * time.Millisecond)
	if retry, _ := guard.Check(ctx, "f@example.com", "10.0.0.6"); retry != 0 {
		t.Fatalf("expected lock to expire on its own, got %v", retry)
	}
	// The counter restarted, so the next failure locks again from one.
	if remaining, _ := guard.RegisterFailure(ctx, "f@example.com", "10.0.0.6"); remaining <= 0 {
		t.Fatal("expected fresh lock after expiry")
	}
}
