// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database connection, auth tokens, pairing
// invitations, AI adapters, messaging, object storage, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "couple-checkin")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AuthConfig defines bearer token and password settings.
type AuthConfig struct {
	JWTSecret string        // JWT_SECRET (HMAC key)
	TokenTTL  time.Duration // TOKEN_TTL
}

// AIConfig points at an OpenAI-compatible gateway used by the voice adapters.
type AIConfig struct {
	BaseURL  string        // AI_BASE_URL, e.g. https://api.openai.com/v1
	APIKey   string        // AI_API_KEY
	Model    string        // AI_MODEL (chat completions)
	STTURL   string        // STT_BASE_URL (defaults to AI_BASE_URL)
	STTKey   string        // STT_API_KEY (defaults to AI_API_KEY)
	STTModel string        // STT_MODEL
	Timeout  time.Duration // AI_TIMEOUT
}

// NATSConfig configures the optional event bus.
type NATSConfig struct {
	URL           string // NATS_URL; empty disables publishing
	SubjectPrefix string // NATS_SUBJECT_PREFIX
}

// S3Config configures the optional voice clip archive.
type S3Config struct {
	Endpoint       string        // S3_ENDPOINT; empty disables the archive
	Region         string        // S3_REGION
	Bucket         string        // S3_BUCKET
	AccessKey      string        // S3_ACCESS_KEY
	SecretKey      string        // S3_SECRET_KEY
	ForcePathStyle bool          // S3_FORCE_PATH_STYLE
	PresignTTL     time.Duration // S3_PRESIGN_TTL
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	LogFile     string // optional rotating log file
	APIBasePath string // base path for API routes

	// Database
	DBDriver    string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // Postgres DSN

	// App
	AppOrigin     string        // used to build invitation links
	InviteTTL     time.Duration // invitation lifetime
	DefaultLocale string        // fallback locale for user-facing messages

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	Auth AuthConfig
	AI   AIConfig
	NATS NATSConfig
	S3   S3Config

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	aiBase := strings.TrimRight(getenv("AI_BASE_URL", "https://api.openai.com/v1"), "/")
	aiKey := getenv("AI_API_KEY", "")

	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		LogFile:     getenv("LOG_FILE", ""),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Database
		DBDriver:    strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:      getenv("DB_PATH", "checkin.db"),
		DatabaseURL: getenv("DATABASE_URL", ""),

		// App
		AppOrigin:     strings.TrimRight(getenv("APP_ORIGIN", "http://localhost:5173"), "/"),
		InviteTTL:     getdur("INVITE_TTL", 7*24*time.Hour),
		DefaultLocale: strings.ToLower(getenv("DEFAULT_LOCALE", "en")),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Auth: AuthConfig{
			JWTSecret: getenv("JWT_SECRET", ""),
			TokenTTL:  getdur("TOKEN_TTL", 7*24*time.Hour),
		},

		AI: AIConfig{
			BaseURL:  aiBase,
			APIKey:   aiKey,
			Model:    getenv("AI_MODEL", "gpt-4o-mini"),
			STTURL:   strings.TrimRight(getenv("STT_BASE_URL", aiBase), "/"),
			STTKey:   getenv("STT_API_KEY", aiKey),
			STTModel: getenv("STT_MODEL", "whisper-1"),
			Timeout:  getdur("AI_TIMEOUT", 30*time.Second),
		},

		NATS: NATSConfig{
			URL:           getenv("NATS_URL", ""),
			SubjectPrefix: getenv("NATS_SUBJECT_PREFIX", "checkin"),
		},

		S3: S3Config{
			Endpoint:       getenv("S3_ENDPOINT", ""),
			Region:         getenv("S3_REGION", "us-east-1"),
			Bucket:         getenv("S3_BUCKET", "olive-branch-audio"),
			AccessKey:      getenv("S3_ACCESS_KEY", ""),
			SecretKey:      getenv("S3_SECRET_KEY", ""),
			ForcePathStyle: getbool("S3_FORCE_PATH_STYLE", true),
			PresignTTL:     getdur("S3_PRESIGN_TTL", 15*time.Minute),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "couple-checkin"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DBDriver == "postgresql" || cfg.DBDriver == "pg" {
		cfg.DBDriver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if len(cfg.Auth.JWTSecret) < 32 {
		return cfg, errors.New("JWT_SECRET must be at least 32 bytes")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return cfg, errors.New("TOKEN_TTL must be > 0")
	}
	if cfg.InviteTTL <= 0 {
		return cfg, errors.New("INVITE_TTL must be > 0")
	}
	if cfg.AI.Timeout <= 0 {
		return cfg, errors.New("AI_TIMEOUT must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.S3.Endpoint != "" && (cfg.S3.AccessKey == "" || cfg.S3.SecretKey == "") {
		return cfg, errors.New("S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_ENDPOINT is set")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
