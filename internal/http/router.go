// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/couple-checkin/internal/ai"
	"github.com/tbourn/couple-checkin/internal/auth"
	"github.com/tbourn/couple-checkin/internal/config"
	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/internal/events"
	"github.com/tbourn/couple-checkin/internal/http/handlers"
	"github.com/tbourn/couple-checkin/internal/http/middleware"
	"github.com/tbourn/couple-checkin/internal/notify"
	"github.com/tbourn/couple-checkin/internal/repo"
	"github.com/tbourn/couple-checkin/internal/services"
	"github.com/tbourn/couple-checkin/internal/storage"
)

const (
	defaultBodyLimit    = 1 << 20
	transcribeBodyLimit = 8 << 20

	// voiceCost is the rate-limit charge of one call to a paid upstream.
	voiceCost = 5
)

// Adapters are the infrastructure pieces built by the caller. Events, Audio
// and Mailer are optional.
type Adapters struct {
	DB     *gorm.DB
	Tokens *auth.Issuer
	Events events.Publisher
	Audio  storage.AudioStore
	Mailer notify.Mailer
	Quotes *services.QuoteService
}

// idempotencyStore persists Idempotency-Key outcomes in the database.
type idempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// Lookup implements middleware.IdempotencyLookup.
func (s idempotencyStore) Lookup(ctx context.Context, userID, scope, key string, now time.Time) (middleware.Replay, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, userID, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return middleware.Replay{}, false, nil
	}
	if err != nil {
		return middleware.Replay{}, false, err
	}
	return middleware.Replay{ResourceID: rec.ResourceID, Status: rec.Status}, true, nil
}

// Remember implements handlers.IdempotencyRecorder. A duplicate means a
// concurrent retry stored its outcome first.
func (s idempotencyStore) Remember(ctx context.Context, userID, scope, key, resourceID string, status int) error {
	_, err := repo.CreateIdempotency(ctx, s.db, userID, scope, key, resourceID, status, time.Now().UTC(), s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// NewDeps builds the application services over a.
func NewDeps(a Adapters, cfg config.Config) handlers.Deps {
	pub := a.Events
	if pub == nil {
		pub = events.Noop{}
	}
	mailer := a.Mailer
	if mailer == nil {
		mailer = notify.LogMailer{Logger: log.Logger}
	}
	quotes := a.Quotes
	if quotes == nil {
		quotes = &services.QuoteService{DB: a.DB}
	}

	d := handlers.Deps{
		Profiles:    &services.ProfileService{DB: a.DB, Tokens: a.Tokens, DefaultLocale: cfg.DefaultLocale},
		Couples:     &services.CoupleService{DB: a.DB},
		Pairing:     &services.PairingService{DB: a.DB, Origin: cfg.AppOrigin, TTL: cfg.InviteTTL},
		Dimensions:  &services.DimensionService{DB: a.DB},
		Entries:     &services.EntryService{DB: a.DB, Events: pub},
		OliveBranch: &services.OliveBranchService{DB: a.DB, Events: pub, Audio: a.Audio},
		Reminders:   &services.ReminderService{DB: a.DB, Mailer: mailer},
		Quotes:      quotes,
		Idempotency: idempotencyStore{db: a.DB, ttl: cfg.IdempotencyTTL},
	}

	// Voice adapters stay nil (503) without credentials.
	if cfg.AI.APIKey != "" {
		chat := ai.NewClient(ai.Options{
			BaseURL: cfg.AI.BaseURL,
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout,
		})
		d.Metrics = &ai.MetricsParser{Completer: chat, Model: cfg.AI.Model}
	}
	if cfg.AI.STTKey != "" {
		stt := ai.NewClient(ai.Options{
			BaseURL: cfg.AI.STTURL,
			APIKey:  cfg.AI.STTKey,
			Model:   cfg.AI.STTModel,
			Timeout: cfg.AI.Timeout,
		})
		d.Transcriber = &ai.Transcriber{Client: stt, Archive: a.Audio}
	}
	return d
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), CORS and security
// headers, health and metrics endpoints, and then mounts the versioned API
// under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter (larger for transcription)
//  6. Metrics
//  7. CORS and Security headers
//  8. Compression
//
// Per group:
//   - public: rate limiter keyed by client IP
//   - authenticated: Auth, then idempotency (before the limiter so replays
//     bypass it), then the limiter keyed by account
func RegisterRoutes(r *gin.Engine, a Adapters, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath // e.g. "/api/v1"

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders:    []string{middleware.HeaderIdempotencyKey},
		LogBodyOnError: true,
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Body size limits
	r.Use(limitBody(defaultBodyLimit, map[string]int64{
		apiBase + "/voice/transcribe": transcribeBodyLimit,
	}))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{
		"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization",
		"If-None-Match", middleware.HeaderIdempotencyKey,
	}
	exposeHeaders := []string{
		"X-Request-ID", "Content-Length", "ETag", "Retry-After", handlers.HeaderIdempotencyReplayed,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		Cache:           middleware.CacheRevalidate,
		EnablePolicy:    true,
		AllowMicrophone: true,
	}))

	// 8) Compress JSON responses; the Prometheus handler negotiates its own.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/adapters
	h := handlers.New(NewDeps(a, cfg))
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())

	api := groupWithPrefix(r, apiBase)

	// Public API
	public := api.Group("", rl.Handler())
	{
		public.POST("/auth/signup", h.Signup)
		public.POST("/auth/login", h.Login)
		public.GET("/invitations/:token", h.PreviewInvitation)
	}

	// Authenticated API
	scopes := map[string]string{
		apiBase + "/entries":        domain.ScopeEntries,
		apiBase + "/olive-branches": domain.ScopeOliveBranches,
	}
	authed := api.Group("",
		middleware.Auth(a.Tokens),
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{
			MaxLen: 200,
			Scope: func(c *gin.Context) string {
				if s, ok := scopes[c.FullPath()]; ok {
					return s
				}
				return c.FullPath()
			},
		}, idempotencyStore{db: a.DB, ttl: cfg.IdempotencyTTL}.Lookup),
	)

	std := authed.Group("", rl.Handler())
	{
		// Profile
		std.GET("/profile", h.GetProfile)
		std.PATCH("/profile", h.UpdateProfile)

		// Couple and pairing
		std.GET("/couple", h.GetCouple)
		std.DELETE("/couple", h.DeleteCouple)
		std.POST("/invitations", h.CreateInvitation)
		std.POST("/invitations/:token/redeem", h.RedeemInvitation)

		// Journal
		std.GET("/dimensions", h.ListDimensions)
		std.POST("/dimensions", h.CreateDimension)
		std.POST("/entries", h.CreateEntry)
		std.GET("/entries", h.ListEntries)
		std.GET("/entries/today", h.TodayEntry)
		std.GET("/entries/trend", h.EntryTrend)

		// Messaging
		std.POST("/olive-branches", h.SendOliveBranch)
		std.GET("/olive-branches", h.ListOliveBranches)
		std.POST("/reminders", h.SendReminder)
		std.GET("/quotes/random", h.RandomQuote)
		std.GET("/quotes/suggest", h.SuggestQuotes)
	}

	voice := authed.Group("/voice", rl.HandlerCost(voiceCost))
	{
		voice.POST("/metrics", h.VoiceMetrics)
		voice.POST("/transcribe", h.Transcribe)
	}
}

// limitBody returns a Gin middleware that caps the request body size to
// maxBytes using http.MaxBytesReader, or to the override registered for the
// matched route. Requests exceeding the cap will cause downstream body reads
// to error.
func limitBody(maxBytes int64, overrides map[string]int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		n := maxBytes
		if v, ok := overrides[c.FullPath()]; ok {
			n = v
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
