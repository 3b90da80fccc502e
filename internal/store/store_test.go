package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)

	csv := []byte("a,b\n1,2\n")
	if err := s.Put(ctx, "run-1", csv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	csv[0] = 'x'

	got, err := s.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "a,b\n1,2\n" {
		t.Errorf("stored data should be copied, got %q", got)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.Put(ctx, "", csv); err == nil {
		t.Error("expected error for empty run ID")
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	_ = s.Put(ctx, "run-1", []byte("x"))

	clock = clock.Add(30 * time.Second)
	if _, err := s.Get(ctx, "run-1"); err != nil {
		t.Fatalf("entry should still be live: %v", err)
	}

	clock = clock.Add(31 * time.Second)
	if _, err := s.Get(ctx, "run-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected expired entry, got %v", err)
	}
	if len(s.entries) != 0 {
		t.Errorf("expired entry should be removed, have %d", len(s.entries))
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("Skipping Redis store test - REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not reachable: %v", err)
	}

	logger := zerolog.Nop()
	s := NewRedisStore(client, 10*time.Second, &logger)

	runID := uuid.NewString()
	if err := s.Put(ctx, runID, []byte("a\n1\n")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Del(ctx, resultKey(runID))

	got, err := s.Get(ctx, runID)
	if err != nil || string(got) != "a\n1\n" {
		t.Errorf("got %q, %v", got, err)
	}

	ttl, err := client.TTL(ctx, resultKey(runID)).Result()
	if err != nil || ttl <= 0 || ttl > 10*time.Second {
		t.Errorf("unexpected TTL %v, %v", ttl, err)
	}

	if _, err := s.Get(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
