// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for unsafe HTTP methods (e.g., POST).
// It validates an Idempotency-Key request header, looks up a previously
// completed request for the same (profile, scope, key), and annotates the
// request context so downstream handlers can read the key (GetIdempotencyKey),
// the scope (GetIdempotencyScope) and the stored outcome (GetReplay).
// Replays also bypass rate limiting.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the canonical request header that clients use to
// convey an idempotency key for unsafe operations (e.g., POST).
//
// The value is expected to be stable for a given semantic operation so that
// retries (network, client, or server initiated) can be safely deduplicated.
const HeaderIdempotencyKey = "Idempotency-Key"

// Context keys used internally to stash idempotency state.
// These keys are intentionally unexported and referenced via accessor helpers.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemScope  = "idem.scope"
	ctxKeyIdemReplay = "idem.replay" // Replay: stored outcome of a prior request
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

// GetIdempotencyKey returns the validated idempotency key stored in the Gin
// context by IdempotencyValidator. The second return value indicates presence.
//
// Handlers should prefer this function over reading the header directly.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// GetIdempotencyScope returns the scope the key was validated under.
func GetIdempotencyScope(c *gin.Context) string {
	v, _ := c.Get(ctxKeyIdemScope)
	return asString(v)
}

// Replay is the stored outcome of a completed request: the id of the
// resource it created and the status it was answered with.
type Replay struct {
	ResourceID string
	Status     int
}

// GetReplay returns the stored outcome when this request repeats a completed
// one. Handlers answer with the stored resource instead of redoing the work.
func GetReplay(c *gin.Context) (Replay, bool) {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return Replay{}, false
	}
	r, ok := v.(Replay)
	return r, ok
}

// IsReplay reports whether GetReplay would return a stored outcome.
func IsReplay(c *gin.Context) bool {
	_, ok := GetReplay(c)
	return ok
}

// IdempotencyOptions configures header validation behavior for
// IdempotencyValidator. TTL enforcement belongs to the lookup.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. If nil, a conservative RFC7230-like
	// token pattern is used: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
	// Scope names the operation a key belongs to. Defaults to the matched
	// route (c.FullPath()).
	Scope func(*gin.Context) string
}

// IdempotencyLookup returns the stored outcome for (userID, scope, key) when
// one exists and is still valid at now. Errors are treated as a miss.
type IdempotencyLookup func(ctx context.Context, userID, scope, key string, now time.Time) (Replay, bool, error)

// IdempotencyValidator validates the Idempotency-Key header (if present),
// stashes it with its scope, and consults lookup for a prior completed
// request by the authenticated profile.
//
// Behavior:
//   - Safe methods and requests without the header pass through untouched.
//   - If the header fails validation: responds 400 with a compact error body.
//   - If lookup finds a stored outcome: stashes it for GetReplay and marks
//     the request for rate-limit bypass.
//
// Install it after Auth so the profile id is known.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}
	scopeOf := opts.Scope
	if scopeOf == nil {
		scopeOf = func(c *gin.Context) string { return c.FullPath() }
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			rid, _ := c.Get(requestIDKey)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": asString(rid),
				"code":       "bad_request",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		scope := scopeOf(c)
		c.Set(ctxKeyIdemKey, key)
		c.Set(ctxKeyIdemScope, scope)

		if uid := userIDFromCtx(c); lookup != nil && uid != "" {
			now := time.Now().UTC()
			if r, ok, err := lookup(c.Request.Context(), uid, scope, key, now); err == nil && ok {
				c.Set(ctxKeyIdemReplay, r)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}

// userIDFromCtx returns the identity keys are scoped to: the authenticated
// profile, else the account, else "".
func userIDFromCtx(c *gin.Context) string {
	if id := ProfileID(c); id != "" {
		return id
	}
	return UserID(c)
}
