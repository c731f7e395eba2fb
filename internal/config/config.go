// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the settings for
// the check-in API client, the response cache, the badge API, the
// eligibility window and the optional login server.
//
// Credentials are deliberately not validated here: a run reports missing
// credentials itself (see UntappdConfig.Complete and CredlyConfig.Complete)
// so that the process can exit with a status line instead of a crash.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/checkin-badges/internal/domain"
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

// UntappdConfig holds the check-in API client settings.
type UntappdConfig struct {
	ClientID     string  // UNTAPPD_CLIENT_ID
	ClientSecret string  // UNTAPPD_CLIENT_SECRET
	BaseURL      string  // UNTAPPD_BASE_URL
	OAuthBaseURL string  // UNTAPPD_OAUTH_BASE_URL
	RedirectURL  string  // UNTAPPD_REDIRECT_URL (login callback)
	CheckinLimit int     // UNTAPPD_CHECKIN_LIMIT, records per user request
	RatePerHour  float64 // UNTAPPD_RATE_PER_HOUR, 0 disables throttling
}

// Complete reports whether both client credentials are present.
func (u UntappdConfig) Complete() bool {
	return strings.TrimSpace(u.ClientID) != "" && strings.TrimSpace(u.ClientSecret) != ""
}

// CacheConfig selects and tunes the upstream response cache.
type CacheConfig struct {
	Dir     string        // CACHE_DIR, root directory (disk and bolt backends)
	Backend string        // CACHE_BACKEND: disk|sqlite|bolt|memory|none
	MaxAge  time.Duration // DEFAULT_CACHE_AGE
}

// CredlyConfig holds the badge API settings.
type CredlyConfig struct {
	BaseURL     string // CREDLY_BASE_URL
	APIKey      string // CREDLY_API_KEY
	APISecret   string // CREDLY_API_SECRET
	Username    string // CREDLY_USERNAME
	Password    string // CREDLY_PASSWORD
	BadgeID     int    // CREDLY_BADGE_ID
	Description string // BADGE_DESCRIPTION
}

// Complete reports whether every credential needed to award badges is set.
func (c CredlyConfig) Complete() bool {
	for _, v := range []string{c.APIKey, c.APISecret, c.Username, c.Password} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// UserEntry is a configured check-in user. Email is the badge recipient and
// may be empty when it is expected to come from a linked account.
type UserEntry struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
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

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // console logs instead of JSON
	LogRedact      bool   // scrub query and headers in access logs
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBPath string // SQLite path for accounts and the award log

	// Rate limiting (login server)
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig

	// Award run
	Untappd     UntappdConfig
	Cache       CacheConfig
	Credly      CredlyConfig
	Window      domain.EligibilityWindow
	Users       []UserEntry
	UseAccounts bool   // USE_ACCOUNTS, also evaluate linked accounts
	EventFile   string // EVENT_FILE, optional YAML profile
}

// Defaults for the Mozlando "Beers and Ears" badge at Epcot.
var (
	defaultWindowStart = time.Date(2015, 12, 7, 0, 0, 0, 0, time.UTC)
	defaultWindowEnd   = time.Date(2015, 12, 11, 23, 59, 59, 999999000, time.UTC)
)

const (
	defaultMinLatitude   = 28.367444
	defaultMaxLatitude   = 28.375647
	defaultMinLongitude  = -81.553245
	defaultMaxLongitude  = -81.545134
	defaultRequiredCount = 12
	defaultBadgeID       = 61615
	defaultCacheAge      = 7 * 24 * time.Hour
)

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// merges the optional event profile, normalizes values, and validates the
// result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		LogRedact:      getbool("LOG_REDACT", true),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DBPath: getenv("DB_PATH", "badges.db"),

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "checkin-badges"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},

		Untappd: UntappdConfig{
			ClientID:     getenv("UNTAPPD_CLIENT_ID", ""),
			ClientSecret: getenv("UNTAPPD_CLIENT_SECRET", ""),
			BaseURL:      strings.TrimRight(getenv("UNTAPPD_BASE_URL", "https://api.untappd.com/v4"), "/"),
			OAuthBaseURL: strings.TrimRight(getenv("UNTAPPD_OAUTH_BASE_URL", "https://untappd.com/oauth"), "/"),
			RedirectURL:  getenv("UNTAPPD_REDIRECT_URL", "http://localhost:8080/accounts/untappd/login/callback"),
			CheckinLimit: getint("UNTAPPD_CHECKIN_LIMIT", 50),
			RatePerHour:  getfloat("UNTAPPD_RATE_PER_HOUR", 100),
		},

		Cache: CacheConfig{
			Dir:     getenv("CACHE_DIR", "cache"),
			Backend: strings.ToLower(getenv("CACHE_BACKEND", "disk")),
			MaxAge:  getage("DEFAULT_CACHE_AGE", defaultCacheAge),
		},

		Credly: CredlyConfig{
			BaseURL:     strings.TrimRight(getenv("CREDLY_BASE_URL", "https://api.credly.com/v1.1"), "/"),
			APIKey:      getenv("CREDLY_API_KEY", ""),
			APISecret:   getenv("CREDLY_API_SECRET", ""),
			Username:    getenv("CREDLY_USERNAME", ""),
			Password:    getenv("CREDLY_PASSWORD", ""),
			BadgeID:     getint("CREDLY_BADGE_ID", defaultBadgeID),
			Description: getenv("BADGE_DESCRIPTION", ""),
		},

		Window: domain.EligibilityWindow{
			Start:         gettime("WINDOW_START", defaultWindowStart),
			End:           gettime("WINDOW_END", defaultWindowEnd),
			MinLatitude:   getfloat("MIN_LATITUDE", defaultMinLatitude),
			MaxLatitude:   getfloat("MAX_LATITUDE", defaultMaxLatitude),
			MinLongitude:  getfloat("MIN_LONGITUDE", defaultMinLongitude),
			MaxLongitude:  getfloat("MAX_LONGITUDE", defaultMaxLongitude),
			RequiredCount: getint("REQUIRED_COUNT", defaultRequiredCount),
		},
		Users:       parseUsers(getenv("UNTAPPD_USERS", "")),
		UseAccounts: getbool("USE_ACCOUNTS", true),
		EventFile:   getenv("EVENT_FILE", ""),
	}

	if cfg.EventFile != "" {
		ev, err := LoadEvent(cfg.EventFile)
		if err != nil {
			return cfg, err
		}
		cfg.ApplyEvent(ev)
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

// Validate checks value ranges. It does not require credentials.
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
	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	if cfg.Untappd.CheckinLimit < 1 {
		return errors.New("UNTAPPD_CHECKIN_LIMIT must be >= 1")
	}
	if cfg.Untappd.RatePerHour < 0 {
		return errors.New("UNTAPPD_RATE_PER_HOUR must be >= 0")
	}
	switch cfg.Cache.Backend {
	case "disk", "sqlite", "bolt", "memory", "none":
	default:
		return errors.New("CACHE_BACKEND must be one of: disk, sqlite, bolt, memory, none")
	}
	if cfg.Cache.MaxAge < 0 {
		return errors.New("DEFAULT_CACHE_AGE must be >= 0")
	}
	if (cfg.Cache.Backend == "disk" || cfg.Cache.Backend == "bolt") && strings.TrimSpace(cfg.Cache.Dir) == "" {
		return errors.New("CACHE_DIR must not be empty")
	}
	if cfg.Credly.BadgeID <= 0 {
		return errors.New("CREDLY_BADGE_ID must be > 0")
	}
	w := cfg.Window
	if !w.Start.Before(w.End) {
		return errors.New("WINDOW_START must be before WINDOW_END")
	}
	if w.MinLatitude > w.MaxLatitude {
		return errors.New("MIN_LATITUDE must be <= MAX_LATITUDE")
	}
	if w.MinLongitude > w.MaxLongitude {
		return errors.New("MIN_LONGITUDE must be <= MAX_LONGITUDE")
	}
	if w.RequiredCount < 1 {
		return errors.New("REQUIRED_COUNT must be >= 1")
	}
	return nil
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
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
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

// getage accepts either a plain number of seconds or a Go duration string.
func getage(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		v = strings.TrimSpace(v)
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// gettime parses an RFC3339 timestamp (fractional seconds allowed).
func gettime(k string, def time.Time) time.Time {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v)); err == nil {
			return t
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

// parseUsers reads "name" or "name=email" entries from a CSV list.
func parseUsers(s string) []UserEntry {
	var out []UserEntry
	for _, item := range splitCSV(s) {
		name, email, _ := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, UserEntry{Username: name, Email: strings.TrimSpace(email)})
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

// String renders the run-relevant settings with secrets masked.
func (cfg Config) String() string {
	return fmt.Sprintf("untappd=%s cache=%s(%s) credly=%s badge=%d window=[%s,%s] users=%d",
		cfg.Untappd.BaseURL, cfg.Cache.Backend, cfg.Cache.MaxAge,
		cfg.Credly.BaseURL, cfg.Credly.BadgeID,
		cfg.Window.Start.Format(time.RFC3339), cfg.Window.End.Format(time.RFC3339),
		len(cfg.Users))
}
