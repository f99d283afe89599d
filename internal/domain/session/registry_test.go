package session

import (
	"context"
	"testing"
	"time"

	"clinic-server-go/internal/domain/model"
	"clinic-server-go/internal/domain/session/store"
	"clinic-server-go/internal/platform/errors"
	"clinic-server-go/internal/platform/logging"
	"clinic-server-go/internal/platform/storage"
)

type fakeAccounts struct {
	credentials map[string]storage.Credential
}

func (f *fakeAccounts) CredentialByUsername(_ context.Context, group, username string) (storage.Credential, error) {
	if cred, ok := f.credentials[group+"/"+username]; ok {
		return cred, nil
	}
	return storage.Credential{}, errors.New(errors.KindNotFound, "account.credential", "no such account")
}

func (f *fakeAccounts) IsActive(_ context.Context, clientID uint, group string) (bool, error) {
	for _, cred := range f.credentials {
		if cred.ID == clientID {
			return cred.Active, nil
		}
	}
	return false, errors.New(errors.KindNotFound, "account.is_active", "no such account")
}

type fakeDecoder struct {
	clientID uint
	group    string
	err      error
}

func (f *fakeDecoder) DecodeIdentity(string) (uint, string, error) {
	return f.clientID, f.group, f.err
}

func plainVerify(password, hash string) bool {
	return password == hash
}

func testRegistry(t *testing.T) (*Registry, *fakeAccounts) {
	t.Helper()
	accounts := &fakeAccounts{
		credentials: map[string]storage.Credential{
			"users/alice":   {ID: 7, PasswordHash: "s3cret", Active: true},
			"users/mallory": {ID: 8, PasswordHash: "pw", Active: false},
		},
	}
	registry, err := NewRegistry(Options{
		Accounts: accounts,
		Store:    store.NewMemory(),
		Verify:   plainVerify,
		Logger:   logging.NewDiscard(),
		CacheTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}
	return registry, accounts
}

func TestLoginReturnsPreviousLogoutMarker(t *testing.T) {
	ctx := context.Background()
	registry, _ := testRegistry(t)

	identity, err := registry.Login(ctx, model.Credentials{Username: "alice", Password: "s3cret"}, "users", "10.0.0.1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if identity.ClientID != 7 || identity.Group != "users" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	// Never logged out yet: the stable sentinel rides into the token.
	if identity.LastLogoutAt != storage.LogoutSentinel {
		t.Fatalf("expected logout sentinel, got %q", identity.LastLogoutAt)
	}
	if identity.LastLoginAt == "" {
		t.Fatal("expected login time to be recorded")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	registry, _ := testRegistry(t)

	_, err := registry.Login(ctx, model.Credentials{Username: "alice", Password: "wrong"}, "users", "")
	if err == nil {
		t.Fatal("expected login to fail for bad password")
	}
	if !errors.IsKind(err, errors.KindSession) {
		t.Fatalf("expected session error, got: %v", err)
	}

	// Unknown accounts fail with the same generic message.
	_, err = registry.Login(ctx, model.Credentials{Username: "nobody", Password: "x"}, "users", "")
	if err == nil {
		t.Fatal("expected login to fail for unknown account")
	}
	if !errors.IsKind(err, errors.KindSession) {
		t.Fatalf("expected session error, got: %v", err)
	}
}

func TestLoginRejectsSuspendedAccount(t *testing.T) {
	ctx := context.Background()
	registry, _ := testRegistry(t)

	if _, err := registry.Login(ctx, model.Credentials{Username: "mallory", Password: "pw"}, "users", ""); err == nil {
		t.Fatal("expected login to fail for suspended account")
	}
}

func TestLogoutAdvancesMarker(t *testing.T) {
	ctx := context.Background()
	registry, _ := testRegistry(t)

	before, err := registry.LastLogoutTime(ctx, 7, "users")
	if err != nil {
		t.Fatalf("LastLogoutTime returned error: %v", err)
	}
	if before != storage.LogoutSentinel {
		t.Fatalf("expected sentinel before first logout, got %q", before)
	}

	decoder := &fakeDecoder{clientID: 7, group: "users"}
	if err := registry.Logout(ctx, decoder, "some-token"); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}

	after, err := registry.LastLogoutTime(ctx, 7, "users")
	if err != nil {
		t.Fatalf("LastLogoutTime returned error: %v", err)
	}
	if after == before {
		t.Fatal("expected logout to advance the marker")
	}
}

func TestLogoutClearsCachedSession(t *testing.T) {
	ctx := context.Background()
	registry, _ := testRegistry(t)

	registry.CacheSession(model.ClientIdentity{
		ClientID:       7,
		Group:          "users",
		TokenExpiresAt: time.Now().Add(time.Hour),
	})
	if _, ok := registry.CachedSession(7, "users"); !ok {
		t.Fatal("expected cached session")
	}

	decoder := &fakeDecoder{clientID: 7, group: "users"}
	if err := registry.Logout(ctx, decoder, "tok"); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if _, ok := registry.CachedSession(7, "users"); ok {
		t.Fatal("expected session cache entry to be removed on logout")
	}
}

func TestCacheSessionIgnoresExpiredTokens(t *testing.T) {
	registry, _ := testRegistry(t)

	registry.CacheSession(model.ClientIdentity{
		ClientID:       7,
		Group:          "users",
		TokenExpiresAt: time.Now().Add(-time.Minute),
	})
	if _, ok := registry.CachedSession(7, "users"); ok {
		t.Fatal("expected expired token to be uncacheable")
	}
}

func TestRemoveSession(t *testing.T) {
	registry, _ := testRegistry(t)

	registry.CacheSession(model.ClientIdentity{
		ClientID:       7,
		Group:          "users",
		TokenExpiresAt: time.Now().Add(time.Hour),
	})
	registry.RemoveSession(7, "users")
	if _, ok := registry.CachedSession(7, "users"); ok {
		t.Fatal("expected session to be removed")
	}
}
