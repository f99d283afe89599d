package store

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"clinic-server-go/internal/platform/storage"
)

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := NewRedis(Config{
		Redis: &RedisConfig{
			Addr: mr.Addr(),
		},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	times, err := store.ReadTimes(ctx, 9, "providers")
	if err != nil {
		t.Fatalf("ReadTimes error: %v", err)
	}
	if times.LastLogoutAt != storage.LogoutSentinel {
		t.Fatalf("expected logout sentinel, got %q", times.LastLogoutAt)
	}

	if err := store.UpsertTimes(ctx, 9, "providers", "2026-03-01T12:00:00Z", ""); err != nil {
		t.Fatalf("UpsertTimes error: %v", err)
	}
	if err := store.UpsertTimes(ctx, 9, "providers", "", "2026-03-01T13:00:00Z"); err != nil {
		t.Fatalf("UpsertTimes error: %v", err)
	}

	times, err = store.ReadTimes(ctx, 9, "providers")
	if err != nil {
		t.Fatalf("ReadTimes error: %v", err)
	}
	if times.LastLoginAt != "2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected login time: %q", times.LastLoginAt)
	}
	if times.LastLogoutAt != "2026-03-01T13:00:00Z" {
		t.Fatalf("unexpected logout time: %q", times.LastLogoutAt)
	}
}

func TestRedisStoreRequiresAddr(t *testing.T) {
	if _, err := NewRedis(Config{Redis: &RedisConfig{}}); err == nil {
		t.Fatal("expected error when address is missing")
	}
	if _, err := NewRedis(Config{}); err == nil {
		t.Fatal("expected error when redis config is missing")
	}
}
