// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger. It scrubs what
// this API carries before anything reaches the log:
//
//   - bearer JWTs anywhere in headers or the query string
//   - invitation tokens in unmatched /invitations/<token> paths
//   - emails, phone numbers and UUIDs in the query string and header values
//   - the password, audio and token fields of JSON bodies logged on 4xx
//
// Authorization, Cookie and Set-Cookie are always masked; more headers can
// be added through RedactOptions.MaskHeaders.
//
// Usage:
//
//	r.Use(middleware.RequestID())
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders:    []string{middleware.HeaderIdempotencyKey},
//	    LogBodyOnError: true,
//	}))
package middleware

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
	// maxBodyLogLength caps the request body prefix kept for 4xx logs.
	maxBodyLogLength = 4096
)

// RedactOptions configures RedactingLogger.
//
// MaskHeaders lists extra header names whose values are replaced with
// "[REDACTED]" (case-insensitive). LogBodyOnError keeps the first 4 KiB of
// JSON request bodies and logs them, scrubbed, when the response is a 4xx.
type RedactOptions struct {
	MaskHeaders    []string
	LogBodyOnError bool
}

var (
	// Three base64url segments, the first starting with a JSON header.
	jwtRE = regexp.MustCompile(`\beyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`)

	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so hex runs of a UUID never match.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)

	inviteRE = regexp.MustCompile(`(/invitations/)[^/?]+`)

	// The closing quote is optional because the kept body may be cut short.
	secretFieldRE = regexp.MustCompile(`"(password|audio|token)"(\s*:\s*)"[^"]*"?`)
)

// redact scrubs identifiers from a query string or header value. JWTs go
// first, then UUIDs before phone numbers, which is the loosest pattern.
func redact(s string) string {
	if s == "" {
		return s
	}
	s = jwtRE.ReplaceAllString(s, "[REDACTED:jwt]")
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// redactPath hides invitation tokens in a raw URL path.
func redactPath(p string) string {
	return inviteRE.ReplaceAllString(p, "${1}[REDACTED:token]")
}

// redactBody scrubs secret JSON fields, then the usual identifiers.
func redactBody(b []byte) string {
	s := secretFieldRE.ReplaceAllString(string(b), `"$1"$2"[REDACTED]"`)
	return redact(s)
}

// RedactingLogger installs the request-scoped logger and emits one access
// log line per request at info, warn (4xx) or error (5xx). The path is the
// route pattern when matched, so path parameters never appear.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = redactPath(c.Request.URL.Path)
		}
		safeQuery := truncate(redact(c.Request.URL.RawQuery), maxQueryLogLength)

		rid := RequestIDFrom(c)
		if rid == "" {
			rid = c.GetHeader(requestIDHeader)
		}
		setLogger(c, log.With().Str("request_id", rid).Logger())

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redact(strings.Join(vv, ", "))
		}

		var body []byte
		if opts.LogBodyOnError {
			body = peekJSONBody(c)
		}

		c.Next()

		status := c.Writer.Status()
		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = rid
		}

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
			if len(body) > 0 {
				ev = ev.Str("body", redactBody(body))
			}
		}

		ev.
			Str("request_id", reqID).
			Str("profile_id", ProfileID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}

// peekJSONBody reads up to maxBodyLogLength bytes of a JSON request body and
// puts them back in front of the unread rest.
func peekJSONBody(c *gin.Context) []byte {
	if c.Request.Body == nil || !strings.Contains(c.ContentType(), "json") {
		return nil
	}
	buf := make([]byte, maxBodyLogLength)
	n, _ := io.ReadFull(c.Request.Body, buf)
	buf = buf[:n]
	c.Request.Body = readCloser{
		Reader: io.MultiReader(bytes.NewReader(buf), c.Request.Body),
		Closer: c.Request.Body,
	}
	return buf
}

type readCloser struct {
	io.Reader
	io.Closer
}
