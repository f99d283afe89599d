package token

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"clinic-server-go/internal/domain/model"
	"clinic-server-go/internal/platform/errors"
)

// SessionReader is the one Session Registry dependency the token service
// has: the live last-logout marker and the suspension flag.
type SessionReader interface {
	LastLogoutTime(ctx context.Context, clientID uint, group string) (string, error)
	IsActive(ctx context.Context, clientID uint, group string) (bool, error)
}

// Config carries the signing parameters.
type Config struct {
	Secret   string
	Issuer   string
	Type     string
	Validity time.Duration
}

// Service issues and validates signed session tokens. It is stateless aside
// from the session registry reads it performs.
type Service struct {
	secret    []byte
	issuer    string
	tokenType string
	validity  time.Duration
	sessions  SessionReader
	logger    model.Logger
}

// NewService wires a token service.
func NewService(cfg Config, sessions SessionReader, logger model.Logger) (*Service, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("token service requires a signing secret")
	}
	if sessions == nil {
		return nil, fmt.Errorf("token service requires a session reader")
	}
	if logger == nil {
		return nil, fmt.Errorf("token service requires a logger")
	}
	if cfg.Validity <= 0 {
		cfg.Validity = time.Hour
	}
	if cfg.Type == "" {
		cfg.Type = "JWT"
	}
	return &Service{
		secret:    []byte(cfg.Secret),
		issuer:    cfg.Issuer,
		tokenType: cfg.Type,
		validity:  cfg.Validity,
		sessions:  sessions,
		logger:    logger,
	}, nil
}

// Validity exposes the configured token lifetime.
func (s *Service) Validity() time.Duration {
	return s.validity
}

// Issue signs a token for the identity, embedding the group and the
// last-logout marker current at issuance time.
func (s *Service) Issue(identity model.ClientIdentity) (string, error) {
	now := time.Now()
	claims := &Claims{
		Group: identity.Group,
		Llodt: identity.LastLogoutAt,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   identity.Username,
			ID:        strconv.FormatUint(uint64(identity.ClientID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.validity)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tok.Header["typ"] = s.tokenType
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(errors.KindAuth, "token.issue", "failed to sign token", err)
	}
	return signed, nil
}

// Decode checks the signature and expiry and returns the claim set. It skips
// the revocation and suspension checks, which is all logout needs to recover
// the client id and group.
func (s *Service) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindAuth, "token.decode", "token is not valid", err)
	}
	if !tok.Valid {
		return nil, errors.New(errors.KindAuth, "token.decode", "token is not valid")
	}
	return claims, nil
}

// DecodeIdentity recovers the client id and group from a presented token,
// checking only signature and expiry. It satisfies the decoder the session
// registry consumes for logout.
func (s *Service) DecodeIdentity(tokenString string) (uint, string, error) {
	claims, err := s.Decode(tokenString)
	if err != nil {
		return 0, "", err
	}
	clientID, err := claims.ClientID()
	if err != nil {
		return 0, "", errors.Wrap(errors.KindAuth, "token.decode", "token is not valid", err)
	}
	return clientID, claims.Group, nil
}

// Validate fully verifies a token for the expected group: signature, claim
// set, the live last-logout marker and the account's active flag. A token
// whose embedded llodt differs from the current value predates a logout and
// is rejected; this is the sole revocation mechanism.
func (s *Service) Validate(ctx context.Context, tokenString, expectedGroup string) (model.Requester, model.ClientIdentity, error) {
	claims, err := s.Decode(tokenString)
	if err != nil {
		return model.Requester{}, model.ClientIdentity{}, err
	}

	if err := verifyClaims(claims, Expectation{
		Issuer: s.issuer,
		Group:  expectedGroup,
		Now:    time.Now(),
	}); err != nil {
		s.logger.Debug("token claim verification failed: %v", err)
		return model.Requester{}, model.ClientIdentity{},
			errors.Wrap(errors.KindAuth, "token.validate", "token is not valid", err)
	}

	clientID, err := claims.ClientID()
	if err != nil {
		return model.Requester{}, model.ClientIdentity{},
			errors.Wrap(errors.KindAuth, "token.validate", "token is not valid", err)
	}

	currentLlodt, err := s.sessions.LastLogoutTime(ctx, clientID, claims.Group)
	if err != nil {
		return model.Requester{}, model.ClientIdentity{}, err
	}
	if currentLlodt != claims.Llodt {
		s.logger.Debug("token for client %d predates a logout", clientID)
		return model.Requester{}, model.ClientIdentity{},
			errors.New(errors.KindAuth, "token.validate", "token is not valid")
	}

	active, err := s.sessions.IsActive(ctx, clientID, claims.Group)
	if err != nil {
		return model.Requester{}, model.ClientIdentity{}, err
	}
	if !active {
		s.logger.Debug("token for suspended client %d rejected", clientID)
		return model.Requester{}, model.ClientIdentity{},
			errors.New(errors.KindAuth, "token.validate", "account is not active")
	}

	identity := model.ClientIdentity{
		Token:          tokenString,
		Username:       claims.Subject,
		Group:          claims.Group,
		ClientID:       clientID,
		LastLogoutAt:   claims.Llodt,
		Active:         true,
		TokenExpiresAt: claims.ExpiresAt.Time,
	}
	requester := model.Requester{ID: clientID, Group: claims.Group}
	return requester, identity, nil
}
