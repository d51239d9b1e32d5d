// Package config loads application settings from the environment.
//
// Every key has a default. A key that is set but cannot be parsed is an
// error rather than a silent fallback, and Load reports all bad keys at
// once so a misconfigured deployment fails with the full list.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Deployment modes accepted in APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string // empty allows every origin
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// AppEnv selects error rendering: development is verbose, production
	// terse.
	AppEnv string

	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string

	DBPath string

	// Janitor
	JanitorInterval time.Duration
	PurgeAfter      time.Duration // retention for soft-deleted rows

	// Rate limiting
	RateRPS   float64
	RateBurst int

	CORS     CORSConfig
	Security SecurityConfig

	// DrainTimeout bounds graceful shutdown.
	DrainTimeout time.Duration
}

// Verbose reports whether error responses should carry diagnostics.
func (c Config) Verbose() bool { return c.AppEnv == EnvDevelopment }

// MustLoad is Load that panics on error.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads, normalizes and validates the configuration.
func Load() (Config, error) {
	var l loader
	cfg := Config{
		Port:              l.str("PORT", "8080"),
		ReadTimeout:       l.dur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: l.dur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      l.dur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       l.dur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    l.int("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(l.str("GIN_MODE", "release")),
		AppEnv:            normalizeEnv(l.str("APP_ENV", EnvProduction)),

		LogLevel:       normalizeLevel(l.str("LOG_LEVEL", "info")),
		LogPretty:      l.bool("LOG_PRETTY", false),
		SwaggerEnabled: l.bool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(l.str("API_BASE_PATH", "/api/v1")),

		DBPath: l.str("DB_PATH", "app.db"),

		JanitorInterval: l.dur("JANITOR_INTERVAL", time.Hour),
		PurgeAfter:      l.dur("PURGE_AFTER", 30*24*time.Hour),

		RateRPS:   l.float("RATE_RPS", 5),
		RateBurst: l.int("RATE_BURST", 10),

		CORS: CORSConfig{AllowedOrigins: splitCSV(l.str("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{
			EnableHSTS: l.bool("ENABLE_HSTS", false),
			HSTSMaxAge: l.dur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		DrainTimeout: l.dur("DRAIN_TIMEOUT", 10*time.Second),
	}

	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	return cfg, errors.Join(append(l.errs, cfg.validate()...)...)
}

func (c Config) validate() []error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		check(false, "LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	switch c.AppEnv {
	case EnvDevelopment, EnvProduction:
	default:
		check(false, "APP_ENV must be one of: development, production")
	}
	check(strings.TrimSpace(c.Port) != "", "PORT must not be empty")
	check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	check(strings.TrimSpace(c.DBPath) != "", "DB_PATH must not be empty")
	check(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(c.JanitorInterval > 0 && c.PurgeAfter > 0, "JANITOR_INTERVAL and PURGE_AFTER must be > 0")
	check(c.DrainTimeout > 0, "DRAIN_TIMEOUT must be > 0")
	return errs
}

// loader reads typed environment values and remembers parse failures.
type loader struct {
	errs []error
}

// lookup returns the trimmed value of k; unset and blank are the same.
func (l *loader) lookup(k string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(k))
	return v, v != ""
}

func (l *loader) fail(k, v, want string) {
	l.errs = append(l.errs, fmt.Errorf("%s=%q: want %s", k, v, want))
}

func (l *loader) str(k, def string) string {
	if v, ok := l.lookup(k); ok {
		return v
	}
	return def
}

func (l *loader) int(k string, def int) int {
	v, ok := l.lookup(k)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		l.fail(k, v, "an integer")
		return def
	}
	return i
}

func (l *loader) float(k string, def float64) float64 {
	v, ok := l.lookup(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.fail(k, v, "a number")
		return def
	}
	return f
}

func (l *loader) bool(k string, def bool) bool {
	v, ok := l.lookup(k)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	l.fail(k, v, "a boolean")
	return def
}

func (l *loader) dur(k string, def time.Duration) time.Duration {
	v, ok := l.lookup(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.fail(k, v, "a duration like 30s or 5m")
		return def
	}
	return d
}

func normalizeEnv(v string) string {
	switch v = strings.ToLower(v); v {
	case "dev", "develop":
		return EnvDevelopment
	case "prod":
		return EnvProduction
	}
	return v
}

func normalizeLevel(v string) string {
	if v = strings.ToLower(v); v == "warning" {
		return "warn"
	}
	return v
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath ensures a leading '/' and strips trailing ones; blank
// means root.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
