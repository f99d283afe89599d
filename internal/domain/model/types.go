package model

import "time"

// ClientIdentity captures the authenticated principal behind a token. It is
// created at login, refreshed on each successful validation and invalidated
// by logout (timestamp advance) or suspension.
type ClientIdentity struct {
	Token         string    `json:"token,omitempty"`
	Username      string    `json:"username"`
	Group         string    `json:"group"`
	ClientID      uint      `json:"client_id"`
	LastLogoutAt  string    `json:"last_logout_at,omitempty"`
	LastLoginAt   string    `json:"last_login_at,omitempty"`
	Active        bool      `json:"active"`
	TokenExpiresAt time.Time `json:"token_expires_at,omitempty"`
	IP            string    `json:"ip,omitempty"`
}

// Credentials is the transient login material. Never persisted.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Requester is the validated (id, group) pair asserted by a token, consumed
// by the permission evaluator.
type Requester struct {
	ID    uint   `json:"id"`
	Group string `json:"group"`
}

// Logger provides the minimal logging contract required by the domain layer.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}
