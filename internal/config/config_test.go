package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load defaults ---

func TestLoad_Defaults_MozlandoWindow(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	w := cfg.Window
	if !w.Start.Equal(time.Date(2015, 12, 7, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("window start = %v", w.Start)
	}
	if !w.End.Equal(time.Date(2015, 12, 11, 23, 59, 59, 999999000, time.UTC)) {
		t.Fatalf("window end = %v", w.End)
	}
	if w.MinLatitude != 28.367444 || w.MaxLatitude != 28.375647 ||
		w.MinLongitude != -81.553245 || w.MaxLongitude != -81.545134 {
		t.Fatalf("geofence unexpected: %+v", w)
	}
	if w.RequiredCount != 12 {
		t.Fatalf("required count = %d; want 12", w.RequiredCount)
	}
	if cfg.Cache.MaxAge != 7*24*time.Hour || cfg.Cache.Backend != "disk" || cfg.Cache.Dir != "cache" {
		t.Fatalf("cache defaults unexpected: %+v", cfg.Cache)
	}
	if cfg.Credly.BadgeID != 61615 || cfg.Untappd.CheckinLimit != 50 {
		t.Fatalf("api defaults unexpected: credly=%+v untappd=%+v", cfg.Credly, cfg.Untappd)
	}
	if !cfg.UseAccounts {
		t.Fatalf("USE_ACCOUNTS should default to true")
	}
	if !cfg.LogRedact {
		t.Fatalf("LOG_REDACT should default to true")
	}
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_Overrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("GIN_MODE", "weird")    // normalizes to "release"
	t.Setenv("LOG_LEVEL", "warning") // normalizes to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("API_BASE_PATH", "api/v2/")

	t.Setenv("UNTAPPD_CLIENT_ID", "cid")
	t.Setenv("UNTAPPD_CLIENT_SECRET", "csecret")
	t.Setenv("UNTAPPD_BASE_URL", "http://untappd.local/v4/")
	t.Setenv("UNTAPPD_CHECKIN_LIMIT", "25")
	t.Setenv("UNTAPPD_RATE_PER_HOUR", "0")

	t.Setenv("CACHE_BACKEND", "BOLT")
	t.Setenv("CACHE_DIR", "/tmp/c")
	t.Setenv("DEFAULT_CACHE_AGE", "3600") // plain seconds

	t.Setenv("CREDLY_API_KEY", "k")
	t.Setenv("CREDLY_API_SECRET", "s")
	t.Setenv("CREDLY_USERNAME", "u")
	t.Setenv("CREDLY_PASSWORD", "p")
	t.Setenv("CREDLY_BADGE_ID", "61628")

	t.Setenv("WINDOW_START", "2015-11-03T00:00:00Z")
	t.Setenv("WINDOW_END", "2015-11-06T23:59:59.999999Z")
	t.Setenv("MIN_LATITUDE", "45.521143")
	t.Setenv("MAX_LATITUDE", "45.526412")
	t.Setenv("MIN_LONGITUDE", "-122.684202")
	t.Setenv("MAX_LONGITUDE", "-122.671810")
	t.Setenv("REQUIRED_COUNT", "2")

	t.Setenv("UNTAPPD_USERS", " alice=alice@example.com , bob ,, =nobody@example.com ")
	t.Setenv("USE_ACCOUNTS", "off")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" || cfg.GinMode != "release" || cfg.LogLevel != "warn" || !cfg.LogPretty || cfg.APIBasePath != "/api/v2" {
		t.Fatalf("server/logging unexpected: %+v", cfg)
	}
	if !cfg.Untappd.Complete() || cfg.Untappd.BaseURL != "http://untappd.local/v4" ||
		cfg.Untappd.CheckinLimit != 25 || cfg.Untappd.RatePerHour != 0 {
		t.Fatalf("untappd unexpected: %+v", cfg.Untappd)
	}
	if cfg.Cache.Backend != "bolt" || cfg.Cache.Dir != "/tmp/c" || cfg.Cache.MaxAge != time.Hour {
		t.Fatalf("cache unexpected: %+v", cfg.Cache)
	}
	if !cfg.Credly.Complete() || cfg.Credly.BadgeID != 61628 {
		t.Fatalf("credly unexpected: %+v", cfg.Credly)
	}
	if cfg.Window.RequiredCount != 2 || cfg.Window.MinLongitude != -122.684202 ||
		!cfg.Window.Start.Equal(time.Date(2015, 11, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("window unexpected: %+v", cfg.Window)
	}
	wantUsers := []UserEntry{{Username: "alice", Email: "alice@example.com"}, {Username: "bob"}}
	if !reflect.DeepEqual(cfg.Users, wantUsers) {
		t.Fatalf("users = %#v; want %#v", cfg.Users, wantUsers)
	}
	if cfg.UseAccounts {
		t.Fatalf("USE_ACCOUNTS=off should disable accounts")
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_MissingCredentialsIsNotAnError(t *testing.T) {
	t.Setenv("UNTAPPD_CLIENT_ID", "")
	t.Setenv("CREDLY_PASSWORD", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("missing credentials must not fail Load: %v", err)
	}
	if cfg.Untappd.Complete() || cfg.Credly.Complete() {
		t.Fatalf("credentials should be reported incomplete")
	}
}

func TestLoad_CacheAgeDurationString(t *testing.T) {
	t.Setenv("DEFAULT_CACHE_AGE", "90m")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Cache.MaxAge != 90*time.Minute {
		t.Fatalf("cache age = %v; want 90m", cfg.Cache.MaxAge)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"invalid LOG_LEVEL", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"empty PORT", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"non-positive timeouts", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"max header bytes", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"empty DB_PATH", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"rate rps negative", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"rate burst", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"hsts", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"otel ratio", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
		{"checkin limit", map[string]string{"UNTAPPD_CHECKIN_LIMIT": "0"}, "UNTAPPD_CHECKIN_LIMIT"},
		{"untappd rate", map[string]string{"UNTAPPD_RATE_PER_HOUR": "-5"}, "UNTAPPD_RATE_PER_HOUR"},
		{"cache backend", map[string]string{"CACHE_BACKEND": "redis"}, "CACHE_BACKEND"},
		{"cache age", map[string]string{"DEFAULT_CACHE_AGE": "-10"}, "DEFAULT_CACHE_AGE"},
		{"cache dir", map[string]string{"CACHE_DIR": "  "}, "CACHE_DIR"},
		{"badge id", map[string]string{"CREDLY_BADGE_ID": "0"}, "CREDLY_BADGE_ID"},
		{"window order", map[string]string{"WINDOW_START": "2016-01-01T00:00:00Z"}, "WINDOW_START"},
		{"latitude order", map[string]string{"MIN_LATITUDE": "30"}, "MIN_LATITUDE"},
		{"longitude order", map[string]string{"MIN_LONGITUDE": "-80"}, "MIN_LONGITUDE"},
		{"required count", map[string]string{"REQUIRED_COUNT": "0"}, "REQUIRED_COUNT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected %s validation error, got: %v", tc.want, err)
			}
		})
	}
}

// --- event profile ---

func TestLoad_EventFileOverridesWindowAndAppendsUsers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tulsa.yaml")
	body := `
name: cherry-street
badge_id: 61628
description: "Cherry Street crawl"
window:
  start: 2015-11-23T00:00:00Z
  end: "2015-11-27T23:59:59.999999Z"
  min_latitude: 36.136844
  max_latitude: 36.143845
  min_longitude: -95.97546
  max_longitude: -95.940098
  required_count: 2
users:
  - username: groovecoder
    email: groovecoder@example.com
  - username: "  "
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	t.Setenv("EVENT_FILE", path)
	t.Setenv("UNTAPPD_USERS", "alice=alice@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Credly.BadgeID != 61628 || cfg.Credly.Description != "Cherry Street crawl" {
		t.Fatalf("badge settings unexpected: %+v", cfg.Credly)
	}
	w := cfg.Window
	if w.RequiredCount != 2 || w.MinLatitude != 36.136844 || w.MaxLongitude != -95.940098 {
		t.Fatalf("window unexpected: %+v", w)
	}
	if !w.End.Equal(time.Date(2015, 11, 27, 23, 59, 59, 999999000, time.UTC)) {
		t.Fatalf("window end = %v", w.End)
	}
	want := []UserEntry{
		{Username: "alice", Email: "alice@example.com"},
		{Username: "groovecoder", Email: "groovecoder@example.com"},
	}
	if !reflect.DeepEqual(cfg.Users, want) {
		t.Fatalf("users = %#v; want %#v", cfg.Users, want)
	}
}

func TestLoadEvent_Errors(t *testing.T) {
	if _, err := LoadEvent(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("window: [unclosed"), 0o600)
	if _, err := LoadEvent(bad); err == nil {
		t.Fatalf("expected parse error")
	}

	badTime := filepath.Join(dir, "badtime.yaml")
	_ = os.WriteFile(badTime, []byte("window:\n  start: yesterday\n"), 0o600)
	if _, err := LoadEvent(badTime); err == nil || !strings.Contains(err.Error(), "window.start") {
		t.Fatalf("expected window.start error, got %v", err)
	}
}

// --- helpers ---

func TestHelpers_getage(t *testing.T) {
	t.Setenv("AGE_SECS", "604800")
	if getage("AGE_SECS", 0) != 7*24*time.Hour {
		t.Fatalf("getage seconds parse failed")
	}
	t.Setenv("AGE_DUR", "2h")
	if getage("AGE_DUR", 0) != 2*time.Hour {
		t.Fatalf("getage duration parse failed")
	}
	t.Setenv("AGE_BAD", "soon")
	if getage("AGE_BAD", time.Minute) != time.Minute {
		t.Fatalf("getage default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on"} {
		t.Setenv("B_T", v)
		if !getbool("B_T", false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	for _, v := range []string{"0", "false", " no ", "N", "off"} {
		t.Setenv("B_F", v)
		if getbool("B_F", true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	t.Setenv("B_JUNK", "maybe")
	if !getbool("B_JUNK", true) {
		t.Fatalf("getbool should fall back to default on junk")
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":         "/",
		"  ":       "/",
		"api":      "/api",
		"/api/":    "/api",
		"/api/v1/": "/api/v1",
		"/":        "/",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestString_MasksSecrets(t *testing.T) {
	t.Setenv("UNTAPPD_CLIENT_SECRET", "very-secret")
	t.Setenv("CREDLY_PASSWORD", "hunter2")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	s := cfg.String()
	if strings.Contains(s, "very-secret") || strings.Contains(s, "hunter2") {
		t.Fatalf("String() leaked a secret: %s", s)
	}
}

func containsErr(err error, sub string) bool {
	return err != nil && strings.Contains(err.Error(), sub)
}
