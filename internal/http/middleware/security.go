// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders, a hardening middleware for the JSON API.
// It supports HSTS (when traffic is HTTPS end-to-end), two cache modes for
// private data, and browser feature policies.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CacheMode selects the Cache-Control policy for API responses.
type CacheMode int

const (
	// CacheDefault sets no cache headers.
	CacheDefault CacheMode = iota
	// CacheNoStore forbids caching (Cache-Control: no-store plus legacy
	// Pragma/Expires).
	CacheNoStore
	// CacheRevalidate lets the browser keep a private copy but revalidate it
	// on every use, which is what the ETag-backed list endpoints want.
	CacheRevalidate
)

// SecurityOptions configures SecurityHeaders.
//
// EnableHSTS emits Strict-Transport-Security for HTTPS requests only. Enable
// it only when traffic is HTTPS end-to-end (including proxy to app).
// HSTSMaxAge defaults to 180 days.
//
// EnablePolicy sends Permissions-Policy and X-Permitted-Cross-Domain-Policies.
// AllowMicrophone relaxes the policy to microphone=(self) for clients that
// record voice notes on the API origin.
type SecurityOptions struct {
	EnableHSTS      bool
	HSTSMaxAge      time.Duration
	Cache           CacheMode
	EnablePolicy    bool
	AllowMicrophone bool
}

// SecurityHeaders returns a Gin middleware that adds security headers:
//
//	X-Content-Type-Options: nosniff
//	X-Frame-Options: DENY
//	Referrer-Policy: no-referrer
//
// plus the optional policy, cache and HSTS headers configured in opt. When
// X-Request-ID is already set, it is exposed to browsers through
// Access-Control-Expose-Headers.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	mic := "microphone=()"
	if opt.AllowMicrophone {
		mic = "microphone=(self)"
	}
	policy := "geolocation=(), " + mic + ", camera=(), payment=()"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", policy)
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		switch opt.Cache {
		case CacheNoStore:
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		case CacheRevalidate:
			h.Set("Cache-Control", "private, no-cache")
			h.Add("Vary", "Authorization")
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if h.Get(requestIDHeader) != "" {
			exposeHeader(h, requestIDHeader)
		}

		c.Next()
	}
}

// exposeHeader appends name to Access-Control-Expose-Headers once.
func exposeHeader(h http.Header, name string) {
	const hdr = "Access-Control-Expose-Headers"
	cur := h.Get(hdr)
	switch {
	case cur == "":
		h.Set(hdr, name)
	case !strings.Contains(cur, name):
		h.Set(hdr, cur+", "+name)
	}
}

// isHTTPS reports whether the request used HTTPS directly or behind a proxy
// that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
