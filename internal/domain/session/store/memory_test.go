package store

import (
	"context"
	"testing"

	"clinic-server-go/internal/platform/storage"
)

func TestMemoryStoreUpsertAndRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	// Never-seen account reports the sentinel.
	times, err := store.ReadTimes(ctx, 1, "users")
	if err != nil {
		t.Fatalf("ReadTimes returned error: %v", err)
	}
	if times.LastLogoutAt != storage.LogoutSentinel {
		t.Fatalf("expected logout sentinel, got %q", times.LastLogoutAt)
	}

	if err := store.UpsertTimes(ctx, 1, "users", "2026-03-01T12:00:00Z", ""); err != nil {
		t.Fatalf("UpsertTimes returned error: %v", err)
	}
	times, err = store.ReadTimes(ctx, 1, "users")
	if err != nil {
		t.Fatalf("ReadTimes returned error: %v", err)
	}
	if times.LastLoginAt != "2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected login time: %q", times.LastLoginAt)
	}
	// Login-only write leaves the logout marker at the sentinel.
	if times.LastLogoutAt != storage.LogoutSentinel {
		t.Fatalf("expected logout sentinel, got %q", times.LastLogoutAt)
	}

	if err := store.UpsertTimes(ctx, 1, "users", "", "2026-03-01T13:00:00Z"); err != nil {
		t.Fatalf("UpsertTimes returned error: %v", err)
	}
	times, _ = store.ReadTimes(ctx, 1, "users")
	if times.LastLogoutAt != "2026-03-01T13:00:00Z" {
		t.Fatalf("unexpected logout time: %q", times.LastLogoutAt)
	}
	if times.LastLoginAt != "2026-03-01T12:00:00Z" {
		t.Fatalf("logout-only write clobbered login time: %q", times.LastLoginAt)
	}
}

func TestMemoryStoreScopesByGroup(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if err := store.UpsertTimes(ctx, 1, "users", "login-u", ""); err != nil {
		t.Fatalf("UpsertTimes returned error: %v", err)
	}
	if err := store.UpsertTimes(ctx, 1, "providers", "login-p", ""); err != nil {
		t.Fatalf("UpsertTimes returned error: %v", err)
	}

	u, _ := store.ReadTimes(ctx, 1, "users")
	p, _ := store.ReadTimes(ctx, 1, "providers")
	if u.LastLoginAt != "login-u" || p.LastLoginAt != "login-p" {
		t.Fatalf("groups must not share state: users=%q providers=%q", u.LastLoginAt, p.LastLoginAt)
	}
}
