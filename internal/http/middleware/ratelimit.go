// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with
// per-identity buckets and opportunistic garbage collection. Each route can
// charge a different number of tokens, so the voice adapters (which call a
// paid upstream) drain a bucket faster than plain reads.
//
// The limiter is process-local. It is edge-level abuse and cost control, not
// an authorization mechanism.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc selects the identity used to key a rate-limit bucket, e.g.
// "user:<id>" or "ip:<addr>".
type keyFunc func(*gin.Context) string

// KeyByUserOrIP returns a keyFunc that prefers the authenticated account (from
// the Gin context under "userID", set by Auth) and falls back to the client IP
// address. Install the limiter after Auth on protected routes so partners
// behind one NAT do not share a bucket.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if s := UserID(c); s != "" {
			return "user:" + s
		}
		return "ip:" + c.ClientIP()
	}
}

// bucket holds one limiter and the last time it was used.
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements a per-key token-bucket rate limiter. Idle buckets are
// evicted after a TTL during lookups. It is safe for concurrent use.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	keyFn   keyFunc
	mu      sync.Mutex
	buckets map[string]*bucket

	ttl      time.Duration
	cleanupN uint64
	now      func() time.Time
}

// NewRateLimiter constructs a RateLimiter with the given tokens-per-second
// and burst size, keyed by keyFn. Burst values <= 0 are coerced to 1.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		buckets: make(map[string]*bucket),
		ttl:     10 * time.Minute,
		now:     time.Now,
	}
}

// getVisitor returns (and touches) the limiter for key, creating it if absent.
// Every 5000 lookups idle buckets are evicted first, so a stale bucket is
// dropped even when it is the one being fetched.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.cleanupN = 0
	}

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay of a completed request. Replays do not consume tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler charges one token per request.
func (rl *RateLimiter) Handler() gin.HandlerFunc { return rl.HandlerCost(1) }

// HandlerCost returns a Gin middleware that charges cost tokens per request.
// Costs above the burst are capped at the burst so the route stays reachable.
//
// A rejected request gets 429 with Retry-After set to the whole seconds until
// enough tokens are available:
//
//	{"request_id": "<uuid>", "code": "too_many_requests", "message": "rate limit exceeded"}
func (rl *RateLimiter) HandlerCost(cost int) gin.HandlerFunc {
	if cost < 1 {
		cost = 1
	}
	if cost > rl.burst {
		cost = rl.burst
	}
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		lim := rl.getVisitor(rl.keyFn(c))
		now := rl.now()
		if lim.AllowN(now, cost) {
			c.Next()
			return
		}

		c.Header("Retry-After", strconv.Itoa(retryAfter(lim, now, cost)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}

// retryAfter returns the whole seconds (at least 1) until lim can grant cost
// tokens at now, without consuming them.
func retryAfter(lim *rate.Limiter, now time.Time, cost int) int {
	r := lim.ReserveN(now, cost)
	if !r.OK() {
		return 1
	}
	d := r.DelayFrom(now)
	r.CancelAt(now)
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
