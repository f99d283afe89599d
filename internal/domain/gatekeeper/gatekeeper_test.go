package gatekeeper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"clinic-server-go/internal/domain/eventbus"
	"clinic-server-go/internal/domain/model"
	"clinic-server-go/internal/domain/permission"
	"clinic-server-go/internal/domain/session"
	"clinic-server-go/internal/domain/throttle"
	"clinic-server-go/internal/platform/errors"
	"clinic-server-go/internal/platform/logging"
	"clinic-server-go/internal/platform/storage"
)

type fakeTokens struct {
	// identities maps a signed token string to the identity it authenticates.
	identities  map[string]model.ClientIdentity
	validateErr error
}

func (f *fakeTokens) Issue(identity model.ClientIdentity) (string, error) {
	signed := fmt.Sprintf("tok-%d-%s", identity.ClientID, identity.Group)
	identity.Token = signed
	f.identities[signed] = identity
	return signed, nil
}

func (f *fakeTokens) Validate(_ context.Context, tokenString, expectedGroup string) (model.Requester, model.ClientIdentity, error) {
	if f.validateErr != nil {
		return model.Requester{}, model.ClientIdentity{}, f.validateErr
	}
	identity, ok := f.identities[tokenString]
	if !ok || identity.Group != expectedGroup {
		return model.Requester{}, model.ClientIdentity{},
			errors.New(errors.KindAuth, "token.validate", "token is not valid")
	}
	return model.Requester{ID: identity.ClientID, Group: identity.Group}, identity, nil
}

func (f *fakeTokens) DecodeIdentity(tokenString string) (uint, string, error) {
	identity, ok := f.identities[tokenString]
	if !ok {
		return 0, "", errors.New(errors.KindAuth, "token.decode", "token is not valid")
	}
	return identity.ClientID, identity.Group, nil
}

func (f *fakeTokens) Validity() time.Duration { return time.Hour }

type fakeSessions struct {
	accounts  map[string]model.ClientIdentity
	cache     map[string]model.ClientIdentity
	loginErr  error
	loggedOut []string
}

func sessionKey(clientID uint, group string) string {
	return fmt.Sprintf("%s:%d", group, clientID)
}

func (f *fakeSessions) Login(_ context.Context, creds model.Credentials, group, ip string) (model.ClientIdentity, error) {
	if f.loginErr != nil {
		return model.ClientIdentity{}, f.loginErr
	}
	identity, ok := f.accounts[creds.Username]
	if !ok {
		return model.ClientIdentity{}, errors.New(errors.KindSession, "session.login",
			"invalid username or password")
	}
	identity.Group = group
	identity.IP = ip
	return identity, nil
}

func (f *fakeSessions) Logout(_ context.Context, decoder session.TokenDecoder, tokenString string) error {
	clientID, group, err := decoder.DecodeIdentity(tokenString)
	if err != nil {
		return err
	}
	f.loggedOut = append(f.loggedOut, sessionKey(clientID, group))
	delete(f.cache, sessionKey(clientID, group))
	return nil
}

func (f *fakeSessions) CacheSession(identity model.ClientIdentity) {
	f.cache[sessionKey(identity.ClientID, identity.Group)] = identity
}

func (f *fakeSessions) CachedSession(clientID uint, group string) (model.ClientIdentity, bool) {
	identity, ok := f.cache[sessionKey(clientID, group)]
	return identity, ok
}

func (f *fakeSessions) RemoveSession(clientID uint, group string) {
	delete(f.cache, sessionKey(clientID, group))
}

type fakeThrottler struct {
	status throttle.Status
}

func (f *fakeThrottler) Classify(throttle.RequestRecord) throttle.Status {
	return f.status
}

type fakeSnapshots struct{}

func (fakeSnapshots) ServiceSnapshot(context.Context, uint) (storage.PermissionSnapshot, error) {
	return storage.PermissionSnapshot{ServiceID: 1, OwnerID: 1, AdminID: 1, Active: true}, nil
}

func (f fakeSnapshots) CaseSnapshot(ctx context.Context, _ uint) (storage.PermissionSnapshot, error) {
	return f.ServiceSnapshot(ctx, 1)
}

func (f fakeSnapshots) AppointmentSnapshot(ctx context.Context, _ uint) (storage.PermissionSnapshot, error) {
	return f.ServiceSnapshot(ctx, 1)
}

type fixture struct {
	gk       *Gatekeeper
	tokens   *fakeTokens
	sessions *fakeSessions
	throttle *fakeThrottler
	bus      *eventbus.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens := &fakeTokens{identities: map[string]model.ClientIdentity{}}
	sessions := &fakeSessions{
		accounts: map[string]model.ClientIdentity{
			"alice": {Username: "alice", ClientID: 1, Active: true, LastLogoutAt: storage.LogoutSentinel},
		},
		cache: map[string]model.ClientIdentity{},
	}
	throttler := &fakeThrottler{status: throttle.StatusAllowed}
	bus := eventbus.NewBus(1)
	t.Cleanup(bus.Stop)

	gk, err := New(Options{
		Throttler: throttler,
		Tokens:    tokens,
		Sessions:  sessions,
		Evaluator: permission.NewEvaluator(fakeSnapshots{}, logging.NewDiscard()),
		Bus:       bus,
		Logger:    logging.NewDiscard(),
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return &fixture{gk: gk, tokens: tokens, sessions: sessions, throttle: throttler, bus: bus}
}

func awaitEvent[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("expected event was never published")
		panic("unreachable")
	}
}

func TestLoginIssuesTokenAndPrimesCache(t *testing.T) {
	f := newFixture(t)
	logins := make(chan eventbus.AuthEventData, 1)
	if err := f.bus.Subscribe(eventbus.EventLogin, func(data eventbus.AuthEventData) {
		logins <- data
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	result, err := f.gk.Login(context.Background(), model.Credentials{Username: "alice", Password: "pw"}, "users", "10.0.0.5")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Token == "" || result.ClientID != 1 || result.Group != "users" {
		t.Fatalf("unexpected login result: %+v", result)
	}

	cached, ok := f.sessions.CachedSession(1, "users")
	if !ok {
		t.Fatal("login must prime the session cache")
	}
	if cached.Token != result.Token {
		t.Fatal("cached entry must carry the issued token")
	}
	if cached.TokenExpiresAt.IsZero() {
		t.Fatal("cached entry must carry the token expiry")
	}

	event := awaitEvent(t, logins)
	if event.ClientID != 1 || event.IP != "10.0.0.5" {
		t.Fatalf("unexpected audit event: %+v", event)
	}
}

func TestLoginFailurePublishesNothing(t *testing.T) {
	f := newFixture(t)
	logins := make(chan eventbus.AuthEventData, 1)
	if err := f.bus.Subscribe(eventbus.EventLogin, func(data eventbus.AuthEventData) {
		logins <- data
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	_, err := f.gk.Login(context.Background(), model.Credentials{Username: "mallory"}, "users", "10.0.0.5")
	if err == nil {
		t.Fatal("expected login to fail")
	}
	select {
	case <-logins:
		t.Fatal("failed login must not publish an audit event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestIsAuthenticationValidFastPath(t *testing.T) {
	f := newFixture(t)

	result, err := f.gk.Login(context.Background(), model.Credentials{Username: "alice"}, "users", "10.0.0.5")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Break full validation to prove the cached entry alone answers.
	f.tokens.validateErr = errors.New(errors.KindAuth, "token.validate", "token is not valid")

	identity, ok := f.gk.IsAuthenticationValid(context.Background(), result.Token, "users")
	if !ok {
		t.Fatal("cached session should authenticate without full validation")
	}
	if identity.ClientID != 1 {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestIsAuthenticationValidFallsBackAndReprimes(t *testing.T) {
	f := newFixture(t)

	result, err := f.gk.Login(context.Background(), model.Credentials{Username: "alice"}, "users", "10.0.0.5")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	f.sessions.RemoveSession(1, "users")

	identity, ok := f.gk.IsAuthenticationValid(context.Background(), result.Token, "users")
	if !ok {
		t.Fatal("full validation should accept the live token")
	}
	if identity.ClientID != 1 {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if _, ok := f.sessions.CachedSession(1, "users"); !ok {
		t.Fatal("successful validation must re-establish the cache entry")
	}
}

func TestIsAuthenticationValidRejectsGarbage(t *testing.T) {
	f := newFixture(t)

	if _, ok := f.gk.IsAuthenticationValid(context.Background(), "not-a-token", "users"); ok {
		t.Fatal("garbage token must be rejected")
	}
}

func TestIsAuthenticationValidGroupMismatch(t *testing.T) {
	f := newFixture(t)

	result, err := f.gk.Login(context.Background(), model.Credentials{Username: "alice"}, "users", "10.0.0.5")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, ok := f.gk.IsAuthenticationValid(context.Background(), result.Token, "providers"); ok {
		t.Fatal("token must not authenticate a different group")
	}
}

func TestLogoutClearsSessionAndPublishes(t *testing.T) {
	f := newFixture(t)
	logouts := make(chan eventbus.AuthEventData, 1)
	if err := f.bus.Subscribe(eventbus.EventLogout, func(data eventbus.AuthEventData) {
		logouts <- data
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	result, err := f.gk.Login(context.Background(), model.Credentials{Username: "alice"}, "users", "10.0.0.5")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := f.gk.Logout(context.Background(), result.Token, "10.0.0.5"); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if len(f.sessions.loggedOut) != 1 || f.sessions.loggedOut[0] != "users:1" {
		t.Fatalf("unexpected logout recording: %v", f.sessions.loggedOut)
	}
	if _, ok := f.sessions.CachedSession(1, "users"); ok {
		t.Fatal("logout must drop the cached session")
	}

	event := awaitEvent(t, logouts)
	if event.ClientID != 1 || event.Group != "users" {
		t.Fatalf("unexpected audit event: %+v", event)
	}
}

func TestIsDosAttackPublishesPenaltyEvents(t *testing.T) {
	f := newFixture(t)
	banned := make(chan eventbus.ThrottleEventData, 1)
	limited := make(chan eventbus.ThrottleEventData, 1)
	if err := f.bus.Subscribe(eventbus.EventBanned, func(data eventbus.ThrottleEventData) {
		banned <- data
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := f.bus.Subscribe(eventbus.EventRateLimited, func(data eventbus.ThrottleEventData) {
		limited <- data
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	record := throttle.RequestRecord{IP: "10.0.0.9", Method: "GET", Path: "/"}

	f.throttle.status = throttle.StatusBanned
	if status := f.gk.IsDosAttack(record); status != throttle.StatusBanned {
		t.Fatalf("unexpected status: %v", status)
	}
	if event := awaitEvent(t, banned); event.IP != "10.0.0.9" {
		t.Fatalf("unexpected ban event: %+v", event)
	}

	f.throttle.status = throttle.StatusRateLimited
	f.gk.IsDosAttack(record)
	if event := awaitEvent(t, limited); event.Status != "ratelimited" {
		t.Fatalf("unexpected rate limit event: %+v", event)
	}

	f.throttle.status = throttle.StatusAllowed
	f.gk.IsDosAttack(record)
	select {
	case <-banned:
		t.Fatal("allowed traffic must not publish a penalty event")
	case <-limited:
		t.Fatal("allowed traffic must not publish a penalty event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPermissionDelegation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ownerReq := model.Requester{ID: 1, Group: permission.GroupProviders}
	strangerReq := model.Requester{ID: 9, Group: "users"}

	if ok, _ := f.gk.CanUpdate(ctx, ownerReq, permission.CategoryService, 1); !ok {
		t.Fatal("owner should pass the delegated check")
	}
	if ok, denial := f.gk.CanDelete(ctx, strangerReq, permission.CategoryService, 1); ok {
		t.Fatal("stranger must be rejected")
	} else if !denial.Denied() {
		t.Fatal("rejection must carry a structured denial")
	}
}

func TestNewValidatesDependencies(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected construction to fail without collaborators")
	}
}
