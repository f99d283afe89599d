package httptransport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"clinic-server-go/internal/domain/model"
	"clinic-server-go/internal/domain/throttle"
)

// Classifier is the throttling slice of the gatekeeper the middleware needs.
type Classifier interface {
	IsDosAttack(record throttle.RequestRecord) throttle.Status
}

// Authenticator is the authentication slice of the gatekeeper.
type Authenticator interface {
	IsAuthenticationValid(ctx context.Context, tokenString, group string) (model.ClientIdentity, bool)
}

const (
	// HeaderRequestID carries the per-request correlation id.
	HeaderRequestID = "X-Request-Id"
	// HeaderClientGroup names the tenant namespace the caller authenticates in.
	HeaderClientGroup = "Client-Group"

	// ContextIdentity is the gin context key for the authenticated identity.
	ContextIdentity = "identity"

	// maxFingerprintBody bounds how much of the body feeds the fingerprint.
	maxFingerprintBody = 64 << 10
)

// RequestIDMiddleware assigns a correlation id to each request, honoring one
// supplied by the caller.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Set(HeaderRequestID, id)
		c.Next()
	}
}

// ThrottleMiddleware classifies every request before any handler runs.
// Penalty statuses map to distinct HTTP codes so clients can tell "try
// later" from "you are blocked".
func ThrottleMiddleware(gk Classifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch gk.IsDosAttack(recordFromRequest(c)) {
		case throttle.StatusAllowed, throttle.StatusWhitelisted:
			c.Next()
		case throttle.StatusRateLimited:
			AbortError(c, http.StatusTooManyRequests, "too many requests, try again later")
		case throttle.StatusBanned:
			AbortError(c, http.StatusLocked, "source is temporarily banned")
		case throttle.StatusBlacklisted:
			AbortError(c, http.StatusForbidden, "forbidden")
		default:
			AbortError(c, http.StatusInternalServerError, "internal error")
		}
	}
}

// recordFromRequest snapshots the parts of the request the fingerprint is
// computed from. The body is re-wrapped so handlers can still read it.
func recordFromRequest(c *gin.Context) throttle.RequestRecord {
	headers := make(map[string]string, len(c.Request.Header))
	for key, values := range c.Request.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	var body []byte
	if c.Request.Body != nil {
		body, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxFingerprintBody))
		c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), c.Request.Body))
	}

	return throttle.RequestRecord{
		IP:      c.ClientIP(),
		Method:  c.Request.Method,
		Path:    c.Request.URL.Path,
		Headers: headers,
		Body:    body,
	}
}

// AuthMiddleware authenticates the bearer token for the group named in the
// Client-Group header and stores the identity in the request context.
// Failures are deliberately generic.
func AuthMiddleware(gk Authenticator, defaultGroup string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			AbortError(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		group := c.GetHeader(HeaderClientGroup)
		if group == "" {
			group = defaultGroup
		}

		identity, ok := gk.IsAuthenticationValid(c.Request.Context(), tokenString, group)
		if !ok {
			AbortError(c, http.StatusUnauthorized, "token is not valid")
			return
		}
		c.Set(ContextIdentity, identity)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
