// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds request correlation and the request-scoped logger:
//
//   - RequestID() propagates a well-formed X-Request-ID or mints a UUID.
//   - Recovery() turns panics into the JSON error envelope and logs the stack
//     with the request's logger.
//   - LoggerFrom() returns the request-scoped zerolog.Logger installed by
//     RedactingLogger and enriched by Auth; services read the same logger
//     with zerolog.Ctx(ctx).
//
// Order: RequestID, RedactingLogger, Recovery, then everything else.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// requestIDHeader is the HTTP header used to propagate the correlation ID.
	requestIDHeader = "X-Request-ID"
	// loggerKey is the Gin context key of the request-scoped logger.
	loggerKey = "logger"
	// maxRequestIDLength bounds a client supplied correlation ID.
	maxRequestIDLength = 128
)

// RequestID attaches a correlation identifier to every request.
//
// A client supplied X-Request-ID is reused when it is at most 128 bytes of
// [A-Za-z0-9._:-]; anything else is replaced by a fresh UUID so that log
// lines cannot be forged through the header. The ID is echoed in the
// response header and stored under "requestID".
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		case b == '-', b == '_', b == '.', b == ':':
		default:
			return false
		}
	}
	return true
}

// RequestIDFrom returns the correlation ID set by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	v, _ := c.Get(requestIDKey)
	return asString(v)
}

// setLogger installs l as the request-scoped logger for handlers (LoggerFrom)
// and services (zerolog.Ctx).
func setLogger(c *gin.Context, l zerolog.Logger) {
	c.Set(loggerKey, &l)
	c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
}

// withLogFields adds the authenticated identity to the request-scoped logger.
func withLogFields(c *gin.Context, userID, profileID string) {
	setLogger(c, LoggerFrom(c).With().
		Str("user_id", userID).
		Str("profile_id", profileID).
		Logger())
}

// Recovery intercepts panics and answers with the standard JSON 500 body
//
//	{ "request_id": "...", "code": "internal_error", "message": "internal server error" }
//
// unless the handler already started writing, in which case only the status
// is set.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid := RequestIDFrom(c)
				LoggerFrom(c).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", rid).
					Str("route", c.FullPath()).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.Header("Content-Type", "application/json")
					c.Header(requestIDHeader, rid)
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"request_id": rid,
						"code":       "internal_error",
						"message":    "internal server error",
					})
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger, or the global logger
// when RedactingLogger did not run.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate cuts s to max bytes and appends an ellipsis. max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
