package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/couple-checkin/internal/auth"
)

// Context keys populated by Auth.
const (
	ctxKeyUserID    = "userID"    // account id (token subject)
	ctxKeyProfileID = "profileID" // profile id (pid claim)
)

// TokenParser verifies a bearer token. *auth.Issuer satisfies it.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// Auth requires a valid "Authorization: Bearer <jwt>" header. On success the
// account id is stored under "userID" and the profile id under "profileID";
// otherwise the request is aborted with 401.
func Auth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(raw, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		claims, err := tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		c.Set(ctxKeyUserID, claims.Subject)
		c.Set(ctxKeyProfileID, claims.ProfileID)
		withLogFields(c, claims.Subject, claims.ProfileID)
		c.Next()
	}
}

// ProfileID returns the authenticated profile id, or "" when Auth did not run.
func ProfileID(c *gin.Context) string {
	v, _ := c.Get(ctxKeyProfileID)
	return asString(v)
}

// UserID returns the authenticated account id, or "".
func UserID(c *gin.Context) string {
	v, _ := c.Get(ctxKeyUserID)
	return asString(v)
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": RequestIDFrom(c),
		"code":       "unauthorized",
		"message":    msg,
	})
}
