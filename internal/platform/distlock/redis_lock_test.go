package distlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func setupRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("redis not available:", err)
	}
	client.FlushDB(ctx)

	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLock_AcquireAndRelease(t *testing.T) {
	client := setupRedisClient(t)
	manager := NewManager(client)
	ctx := context.Background()

	lock, err := manager.Acquire(ctx, "jobs:matchmaking", 5*time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if _, err = manager.Acquire(ctx, "jobs:matchmaking", 5*time.Second); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("expected ErrNotAcquired for held lock, got %v", err)
	}

	if err = lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	again, err := manager.Acquire(ctx, "jobs:matchmaking", 5*time.Second)
	if err != nil {
		t.Fatalf("re-acquire after release: %v", err)
	}
	if err = again.Release(ctx); err != nil {
		t.Fatalf("release re-acquired lock: %v", err)
	}
}

func TestLock_ReleaseAfterTakeover(t *testing.T) {
	client := setupRedisClient(t)
	manager := NewManager(client)
	ctx := context.Background()

	lock, err := manager.Acquire(ctx, "jobs:sweep", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Simulate another holder overwriting an expired lease.
	if err = client.Set(ctx, "jobs:sweep", "other-holder", time.Minute).Err(); err != nil {
		t.Fatalf("overwrite lock key: %v", err)
	}

	if err = lock.Release(ctx); !errors.Is(err, ErrNotHeld) {
		t.Fatalf("expected ErrNotHeld after takeover, got %v", err)
	}
	if got := client.Get(ctx, "jobs:sweep").Val(); got != "other-holder" {
		t.Fatalf("release must not delete another holder's lock, key value=%q", got)
	}
}

func TestLock_Extend(t *testing.T) {
	client := setupRedisClient(t)
	manager := NewManager(client)
	ctx := context.Background()

	lock, err := manager.Acquire(ctx, "jobs:reset", 2*time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer lock.Release(ctx)

	if err = lock.Extend(ctx, 30*time.Second); err != nil {
		t.Fatalf("extend: %v", err)
	}

	ttl := client.TTL(ctx, "jobs:reset").Val()
	if ttl <= 2*time.Second {
		t.Fatalf("expected extended TTL, got %s", ttl)
	}
}
