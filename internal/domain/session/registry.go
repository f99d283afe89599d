package session

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"

	"clinic-server-go/internal/domain/model"
	"clinic-server-go/internal/domain/session/store"
	"clinic-server-go/internal/platform/errors"
	"clinic-server-go/internal/platform/storage"
)

// AccountReader is the account half of the database collaborator the
// registry consumes.
type AccountReader interface {
	CredentialByUsername(ctx context.Context, group, username string) (storage.Credential, error)
	IsActive(ctx context.Context, clientID uint, group string) (bool, error)
}

// TokenDecoder recovers the client id and group from a presented token for
// logout, without re-running the business claim checks.
type TokenDecoder interface {
	DecodeIdentity(tokenString string) (clientID uint, group string, err error)
}

// VerifyFunc checks a cleartext password against a stored hash. The hashing
// algorithm itself is an opaque capability.
type VerifyFunc func(password, hash string) bool

// BcryptVerify is the production password verifier.
func BcryptVerify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Options encapsulates the dependencies required to construct a Registry.
type Options struct {
	Accounts AccountReader
	Store    store.Store
	Verify   VerifyFunc
	Logger   model.Logger
	// CacheTTL bounds fast-path session cache entries; typically the token
	// lifetime.
	CacheTTL        time.Duration
	CleanupInterval time.Duration
}

// Registry tracks login/logout timestamps per account and keeps a fast-path
// in-memory membership cache so repeat requests skip the database plus full
// token re-verification.
type Registry struct {
	accounts AccountReader
	store    store.Store
	verify   VerifyFunc
	logger   model.Logger
	cache    *gocache.Cache
}

// NewRegistry wires a Registry using the supplied options.
func NewRegistry(opts Options) (*Registry, error) {
	if opts.Accounts == nil {
		return nil, fmt.Errorf("session registry requires an account reader")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("session registry requires a timestamp store")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("session registry requires a logger")
	}
	if opts.Verify == nil {
		opts.Verify = BcryptVerify
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	cleanup := opts.CleanupInterval
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &Registry{
		accounts: opts.Accounts,
		store:    opts.Store,
		verify:   opts.Verify,
		logger:   opts.Logger,
		cache:    gocache.New(cacheTTL, cleanup),
	}, nil
}

func cacheKey(clientID uint, group string) string {
	return fmt.Sprintf("%s:%d", group, clientID)
}

// Login verifies credentials, records "now" as the last login, and returns
// the identity carrying the *previous* last-logout marker so the token
// issued for this session embeds it.
func (r *Registry) Login(ctx context.Context, creds model.Credentials, group, ip string) (model.ClientIdentity, error) {
	credential, err := r.accounts.CredentialByUsername(ctx, group, creds.Username)
	if err != nil {
		if errors.IsKind(err, errors.KindNotFound) {
			r.logger.Debug("login rejected for unknown account %q in %q", creds.Username, group)
			return model.ClientIdentity{}, errors.New(errors.KindSession, "session.login",
				"invalid username or password")
		}
		return model.ClientIdentity{}, err
	}
	if !r.verify(creds.Password, credential.PasswordHash) {
		r.logger.Debug("login rejected for %q in %q: bad password", creds.Username, group)
		return model.ClientIdentity{}, errors.New(errors.KindSession, "session.login",
			"invalid username or password")
	}
	if !credential.Active {
		return model.ClientIdentity{}, errors.New(errors.KindSession, "session.login",
			"account is not active")
	}

	times, err := r.store.ReadTimes(ctx, credential.ID, group)
	if err != nil {
		return model.ClientIdentity{}, err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := r.store.UpsertTimes(ctx, credential.ID, group, now, ""); err != nil {
		return model.ClientIdentity{}, err
	}

	r.logger.Info("login: client %d in %q from %s", credential.ID, group, ip)
	return model.ClientIdentity{
		Username:     creds.Username,
		Group:        group,
		ClientID:     credential.ID,
		LastLogoutAt: times.LastLogoutAt,
		LastLoginAt:  now,
		Active:       true,
		IP:           ip,
	}, nil
}

// Logout advances the last-logout marker to "now". That single write
// invalidates every token issued before it, because their embedded llodt
// values no longer match.
func (r *Registry) Logout(ctx context.Context, decoder TokenDecoder, tokenString string) error {
	clientID, group, err := decoder.DecodeIdentity(tokenString)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := r.store.UpsertTimes(ctx, clientID, group, "", now); err != nil {
		return err
	}
	r.RemoveSession(clientID, group)
	r.logger.Info("logout: client %d in %q", clientID, group)
	return nil
}

// IsActive reports the account's suspension flag.
func (r *Registry) IsActive(ctx context.Context, clientID uint, group string) (bool, error) {
	return r.accounts.IsActive(ctx, clientID, group)
}

// LastLogoutTime reads the live revocation marker.
func (r *Registry) LastLogoutTime(ctx context.Context, clientID uint, group string) (string, error) {
	times, err := r.store.ReadTimes(ctx, clientID, group)
	if err != nil {
		return "", err
	}
	return times.LastLogoutAt, nil
}

// CacheSession records a validated session for the fast path.
func (r *Registry) CacheSession(identity model.ClientIdentity) {
	ttl := gocache.DefaultExpiration
	if !identity.TokenExpiresAt.IsZero() {
		remaining := time.Until(identity.TokenExpiresAt)
		if remaining <= 0 {
			return
		}
		ttl = remaining
	}
	r.cache.Set(cacheKey(identity.ClientID, identity.Group), identity, ttl)
}

// CachedSession returns the fast-path entry, if any. A hit whose token
// differs from the presented one is a miss.
func (r *Registry) CachedSession(clientID uint, group string) (model.ClientIdentity, bool) {
	value, ok := r.cache.Get(cacheKey(clientID, group))
	if !ok {
		return model.ClientIdentity{}, false
	}
	identity, ok := value.(model.ClientIdentity)
	return identity, ok
}

// RemoveSession drops the fast-path entry, e.g. on suspension or deletion.
func (r *Registry) RemoveSession(clientID uint, group string) {
	r.cache.Delete(cacheKey(clientID, group))
}

// Close releases the underlying timestamp store.
func (r *Registry) Close(ctx context.Context) error {
	return r.store.Close(ctx)
}
