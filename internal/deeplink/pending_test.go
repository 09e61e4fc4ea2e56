package deeplink

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryPendingStoreConsumeOnce(t *testing.T) {
	store := NewMemoryPendingStore(time.Minute)
	ctx := context.Background()

	if _, ok, err := store.Consume(ctx, "u1"); err != nil || ok {
		t.Fatalf("empty store consume: ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, "u1", "/novedades/1"); err != nil {
		t.Fatalf("put: %v", err)
	}
	link, ok, err := store.Consume(ctx, "u1")
	if err != nil || !ok || link != "/novedades/1" {
		t.Fatalf("consume: link=%q ok=%v err=%v", link, ok, err)
	}
	if _, ok, _ := store.Consume(ctx, "u1"); ok {
		t.Fatal("second consume must find nothing")
	}
}

func TestMemoryPendingStoreExpiry(t *testing.T) {
	store := NewMemoryPendingStore(time.Millisecond)
	ctx := context.Background()
	if err := store.Put(ctx, "u1", "/agenda"); err != nil {
		t.Fatalf("put: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := store.Consume(ctx, "u1"); ok {
		t.Fatal("expired link must not be returned")
	}
}

func TestRedisPendingStoreConsumeOnce(t *testing.T) {
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisPendingStore(client, "", time.Minute)
	ctx := context.Background()

	if err := store.Put(ctx, "u2", "/mensajes/7"); err != nil {
		t.Fatalf("put: %v", err)
	}
	link, ok, err := store.Consume(ctx, "u2")
	if err != nil || !ok || link != "/mensajes/7" {
		t.Fatalf("consume: link=%q ok=%v err=%v", link, ok, err)
	}
	if _, ok, _ := store.Consume(ctx, "u2"); ok {
		t.Fatal("redis consume must be exactly-once")
	}
}

func TestRedisPendingStoreClear(t *testing.T) {
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisPendingStore(client, "pfx", time.Minute)
	ctx := context.Background()
	if err := store.Put(ctx, "u3", "/alumnos"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Clear(ctx, "u3"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.Consume(ctx, "u3"); ok {
		t.Fatal("cleared link must not be consumable")
	}
}
