package token

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed claim set carried by a session token. Beyond the
// registered fields it embeds the tenant group and llodt, the last-logout
// marker that makes tokens revocable without a blacklist.
type Claims struct {
	Group string `json:"group"`
	Llodt string `json:"llodt"`
	jwt.RegisteredClaims
}

// ClientID parses the numeric id stored in the registered ID claim.
func (c *Claims) ClientID() (uint, error) {
	id, err := strconv.ParseUint(c.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("token carries a malformed client id: %w", err)
	}
	return uint(id), nil
}

// Expectation is what a verifier demands of a decoded claim set.
type Expectation struct {
	Issuer string
	Group  string
	Now    time.Time
}

// verifyClaims re-derives the expected claims from the decoded payload and
// checks them, independent of any signing library. Each failure carries a
// distinct message; callers flatten them to a uniform unauthorized result.
func verifyClaims(claims *Claims, want Expectation) error {
	if claims.Issuer != want.Issuer {
		return fmt.Errorf("token issuer %q does not match %q", claims.Issuer, want.Issuer)
	}
	if claims.Group != want.Group {
		return fmt.Errorf("token group %q does not match %q", claims.Group, want.Group)
	}
	if claims.Subject == "" {
		return fmt.Errorf("token is missing a subject")
	}
	if _, err := claims.ClientID(); err != nil {
		return err
	}
	if claims.ExpiresAt == nil {
		return fmt.Errorf("token is missing an expiry")
	}
	if !want.Now.Before(claims.ExpiresAt.Time) {
		return fmt.Errorf("token expired at %s", claims.ExpiresAt.Time.Format(time.RFC3339))
	}
	return nil
}
