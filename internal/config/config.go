// Package config provides the studio server configuration loaded from
// environment variables (optionally seeded from a .env file) with defaults and
// validation. It centralizes server timeouts, logging, database and object
// storage locations, authentication leases, OAuth providers, rate limiting,
// and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
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
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AuthConfig controls credential leases and account verification.
type AuthConfig struct {
	JWTSecret           string        // AUTH_JWT_SECRET
	TokenTTL            time.Duration // AUTH_TOKEN_TTL
	RequireVerification bool          // AUTH_REQUIRE_VERIFICATION
	SiteURL             string        // AUTH_SITE_URL, post-signup/OAuth redirect target
}

// OAuthProvider is a single third-party sign-in provider.
type OAuthProvider struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// StorageConfig describes the attachments bucket.
type StorageConfig struct {
	Root          string // STORAGE_ROOT, filesystem directory backing the bucket
	Bucket        string // STORAGE_BUCKET
	PublicBaseURL string // STORAGE_PUBLIC_BASE_URL, prefix of public object URLs
	MaxUpload     int64  // STORAGE_MAX_UPLOAD_BYTES
}

// Config holds all configuration values for the studio server.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test
	PublicURL         string // PUBLIC_URL, origin clients and OAuth providers reach the server at

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string

	// App
	DBPath string

	Auth    AuthConfig
	OAuth   []OAuthProvider
	Storage StorageConfig

	// Rate limiting
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration

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

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	port := getenv("PORT", "8080")
	cfg := Config{
		Port:              port,
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		PublicURL:         strings.TrimRight(getenv("PUBLIC_URL", "http://localhost:"+port), "/"),

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DBPath: getenv("DB_PATH", "studio.db"),

		Auth: AuthConfig{
			JWTSecret:           getenv("AUTH_JWT_SECRET", ""),
			TokenTTL:            getdur("AUTH_TOKEN_TTL", time.Hour),
			RequireVerification: getbool("AUTH_REQUIRE_VERIFICATION", true),
			SiteURL:             strings.TrimRight(getenv("AUTH_SITE_URL", "http://localhost:"+port), "/"),
		},
		OAuth: loadOAuthProviders(),

		Storage: StorageConfig{
			Root:          getenv("STORAGE_ROOT", "data/storage"),
			Bucket:        getenv("STORAGE_BUCKET", "attachments"),
			PublicBaseURL: strings.TrimRight(getenv("STORAGE_PUBLIC_BASE_URL", "http://localhost:"+port+"/files"), "/"),
			MaxUpload:     int64(getint("STORAGE_MAX_UPLOAD_BYTES", 10<<20)),
		},

		RateRPS:   getfloat("RATE_RPS", 10.0),
		RateBurst: getint("RATE_BURST", 20),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "prompt-studio"),
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

	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (cfg Config) Validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if len(cfg.Auth.JWTSecret) < 16 {
		return errors.New("AUTH_JWT_SECRET must be at least 16 characters")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return errors.New("AUTH_TOKEN_TTL must be > 0")
	}
	if strings.TrimSpace(cfg.Storage.Root) == "" {
		return errors.New("STORAGE_ROOT must not be empty")
	}
	if cfg.Storage.MaxUpload <= 0 {
		return errors.New("STORAGE_MAX_UPLOAD_BYTES must be > 0")
	}
	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	for _, p := range cfg.OAuth {
		if p.ClientID == "" || p.AuthURL == "" || p.TokenURL == "" {
			return errors.New("OAuth provider " + p.Name + " needs CLIENT_ID, AUTH_URL and TOKEN_URL")
		}
	}
	return nil
}

// loadOAuthProviders reads OAUTH_PROVIDERS (e.g. "google,github") and the
// per-provider OAUTH_<NAME>_* variables. Google endpoints are defaulted.
func loadOAuthProviders() []OAuthProvider {
	names := splitCSV(getenv("OAUTH_PROVIDERS", ""))
	out := make([]OAuthProvider, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(n)
		pfx := "OAUTH_" + strings.ToUpper(n) + "_"
		p := OAuthProvider{
			Name:         n,
			ClientID:     getenv(pfx+"CLIENT_ID", ""),
			ClientSecret: getenv(pfx+"CLIENT_SECRET", ""),
			AuthURL:      getenv(pfx+"AUTH_URL", ""),
			TokenURL:     getenv(pfx+"TOKEN_URL", ""),
			UserInfoURL:  getenv(pfx+"USERINFO_URL", ""),
			Scopes:       splitCSV(getenv(pfx+"SCOPES", "")),
		}
		if n == "google" {
			if p.AuthURL == "" {
				p.AuthURL = "https://accounts.google.com/o/oauth2/auth"
			}
			if p.TokenURL == "" {
				p.TokenURL = "https://oauth2.googleapis.com/token"
			}
			if p.UserInfoURL == "" {
				p.UserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
			}
			if len(p.Scopes) == 0 {
				p.Scopes = []string{"openid", "email", "profile"}
			}
		}
		out = append(out, p)
	}
	return out
}

// ---- helpers ----

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
