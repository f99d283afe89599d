package gatekeeper

import (
	"context"
	"fmt"
	"time"

	"clinic-server-go/internal/domain/eventbus"
	"clinic-server-go/internal/domain/model"
	"clinic-server-go/internal/domain/permission"
	"clinic-server-go/internal/domain/session"
	"clinic-server-go/internal/domain/throttle"
)

// TokenService is the token collaborator surface the gatekeeper consumes.
type TokenService interface {
	Issue(identity model.ClientIdentity) (string, error)
	Validate(ctx context.Context, tokenString, expectedGroup string) (model.Requester, model.ClientIdentity, error)
	DecodeIdentity(tokenString string) (clientID uint, group string, err error)
	Validity() time.Duration
}

// SessionRegistry is the session collaborator surface the gatekeeper consumes.
type SessionRegistry interface {
	Login(ctx context.Context, creds model.Credentials, group, ip string) (model.ClientIdentity, error)
	Logout(ctx context.Context, decoder session.TokenDecoder, tokenString string) error
	CacheSession(identity model.ClientIdentity)
	CachedSession(clientID uint, group string) (model.ClientIdentity, bool)
	RemoveSession(clientID uint, group string)
}

// Throttler classifies incoming traffic.
type Throttler interface {
	Classify(record throttle.RequestRecord) throttle.Status
}

// Options encapsulates the dependencies required to construct a Gatekeeper.
type Options struct {
	Throttler Throttler
	Tokens    TokenService
	Sessions  SessionRegistry
	Evaluator *permission.Evaluator
	Bus       *eventbus.Bus
	Logger    model.Logger
}

// Gatekeeper composes the throttler, token service, session registry and
// permission evaluator behind one surface. It is the only object the
// transport layer calls.
type Gatekeeper struct {
	throttler Throttler
	tokens    TokenService
	sessions  SessionRegistry
	evaluator *permission.Evaluator
	bus       *eventbus.Bus
	logger    model.Logger
}

// New wires a Gatekeeper. Every collaborator is required.
func New(opts Options) (*Gatekeeper, error) {
	if opts.Throttler == nil {
		return nil, fmt.Errorf("gatekeeper requires a throttler")
	}
	if opts.Tokens == nil {
		return nil, fmt.Errorf("gatekeeper requires a token service")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("gatekeeper requires a session registry")
	}
	if opts.Evaluator == nil {
		return nil, fmt.Errorf("gatekeeper requires a permission evaluator")
	}
	if opts.Bus == nil {
		return nil, fmt.Errorf("gatekeeper requires an event bus")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("gatekeeper requires a logger")
	}
	return &Gatekeeper{
		throttler: opts.Throttler,
		tokens:    opts.Tokens,
		sessions:  opts.Sessions,
		evaluator: opts.Evaluator,
		bus:       opts.Bus,
		logger:    opts.Logger,
	}, nil
}

// LoginResult is the successful login payload handed back to the transport.
type LoginResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	ClientID uint   `json:"client_id"`
	Group    string `json:"group"`
	IP       string `json:"ip"`
}

// Login verifies credentials, issues a session token embedding the previous
// last-logout marker, primes the fast-path cache and emits an audit event.
func (g *Gatekeeper) Login(ctx context.Context, creds model.Credentials, group, ip string) (LoginResult, error) {
	identity, err := g.sessions.Login(ctx, creds, group, ip)
	if err != nil {
		return LoginResult{}, err
	}
	identity.TokenExpiresAt = time.Now().Add(g.tokens.Validity())

	signed, err := g.tokens.Issue(identity)
	if err != nil {
		return LoginResult{}, err
	}
	identity.Token = signed
	g.sessions.CacheSession(identity)

	g.bus.Publish(eventbus.EventLogin, eventbus.AuthEventData{
		ClientID: identity.ClientID,
		Group:    identity.Group,
		Username: identity.Username,
		IP:       ip,
		At:       time.Now(),
	})
	return LoginResult{
		Token:    signed,
		Username: identity.Username,
		ClientID: identity.ClientID,
		Group:    identity.Group,
		IP:       ip,
	}, nil
}

// Logout advances the account's last-logout marker, which revokes every token
// issued before it, and drops the fast-path cache entry.
func (g *Gatekeeper) Logout(ctx context.Context, tokenString, ip string) error {
	if err := g.sessions.Logout(ctx, g.tokens, tokenString); err != nil {
		return err
	}
	if clientID, group, err := g.tokens.DecodeIdentity(tokenString); err == nil {
		g.bus.Publish(eventbus.EventLogout, eventbus.AuthEventData{
			ClientID: clientID,
			Group:    group,
			IP:       ip,
			At:       time.Now(),
		})
	}
	return nil
}

// IsAuthenticationValid answers whether the presented token authenticates a
// live session in the group. A cache hit whose stored token matches the
// presented one skips the full validation; otherwise the token is fully
// verified and, on success, the cache entry is re-established.
func (g *Gatekeeper) IsAuthenticationValid(ctx context.Context, tokenString, group string) (model.ClientIdentity, bool) {
	if clientID, tokenGroup, err := g.tokens.DecodeIdentity(tokenString); err == nil && tokenGroup == group {
		if cached, ok := g.sessions.CachedSession(clientID, group); ok && cached.Token == tokenString {
			return cached, true
		}
	}

	_, identity, err := g.tokens.Validate(ctx, tokenString, group)
	if err != nil {
		g.logger.Debug("authentication rejected: %v", err)
		return model.ClientIdentity{}, false
	}
	g.sessions.CacheSession(identity)
	return identity, true
}

// RemoveSession drops the fast-path cache entry for the account.
func (g *Gatekeeper) RemoveSession(clientID uint, group string) {
	g.sessions.RemoveSession(clientID, group)
}

// IsDosAttack classifies the request against the throttler and emits an
// audit event when the source lands in a penalty list.
func (g *Gatekeeper) IsDosAttack(record throttle.RequestRecord) throttle.Status {
	status := g.throttler.Classify(record)
	switch status {
	case throttle.StatusBanned:
		g.bus.Publish(eventbus.EventBanned, eventbus.ThrottleEventData{
			IP: record.IP, Status: status.String(), At: time.Now(),
		})
	case throttle.StatusRateLimited:
		g.bus.Publish(eventbus.EventRateLimited, eventbus.ThrottleEventData{
			IP: record.IP, Status: status.String(), At: time.Now(),
		})
	}
	return status
}

// CanCreate delegates to the permission evaluator.
func (g *Gatekeeper) CanCreate(ctx context.Context, requester model.Requester, category permission.Category, payload permission.NewEntity) (bool, permission.Denial) {
	return g.evaluator.CanCreate(ctx, requester, category, payload)
}

// CanRead delegates to the permission evaluator.
func (g *Gatekeeper) CanRead(ctx context.Context, requester model.Requester, category permission.Category, entityID uint) (bool, permission.Denial) {
	return g.evaluator.CanRead(ctx, requester, category, entityID)
}

// CanUpdate delegates to the permission evaluator.
func (g *Gatekeeper) CanUpdate(ctx context.Context, requester model.Requester, category permission.Category, entityID uint) (bool, permission.Denial) {
	return g.evaluator.CanUpdate(ctx, requester, category, entityID)
}

// CanDelete delegates to the permission evaluator.
func (g *Gatekeeper) CanDelete(ctx context.Context, requester model.Requester, category permission.Category, entityID uint) (bool, permission.Denial) {
	return g.evaluator.CanDelete(ctx, requester, category, entityID)
}

// CanToggleActive delegates to the permission evaluator.
func (g *Gatekeeper) CanToggleActive(ctx context.Context, requester model.Requester, category permission.Category, entityID uint) (bool, permission.Denial) {
	return g.evaluator.CanToggleActive(ctx, requester, category, entityID)
}

// CanGetServices delegates to the permission evaluator.
func (g *Gatekeeper) CanGetServices(ctx context.Context, requester model.Requester, category permission.Category, entityID uint) (bool, permission.Denial) {
	return g.evaluator.CanGetServices(ctx, requester, category, entityID)
}

// CanManageStaff delegates to the permission evaluator.
func (g *Gatekeeper) CanManageStaff(ctx context.Context, requester model.Requester, category permission.Category, entityID uint) (bool, permission.Denial) {
	return g.evaluator.CanManageStaff(ctx, requester, category, entityID)
}
