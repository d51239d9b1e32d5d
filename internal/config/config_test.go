package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keys lists every variable Load reads; clearEnv blanks them for a test.
var keys = []string{
	"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT",
	"MAX_HEADER_BYTES", "GIN_MODE", "APP_ENV", "LOG_LEVEL", "LOG_PRETTY",
	"SWAGGER_ENABLED", "API_BASE_PATH", "DB_PATH", "JANITOR_INTERVAL", "PURGE_AFTER",
	"RATE_RPS", "RATE_BURST", "CORS_ALLOWED_ORIGINS", "ENABLE_HSTS", "HSTS_MAX_AGE",
	"DRAIN_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "release", cfg.GinMode)
	assert.Equal(t, EnvProduction, cfg.AppEnv)
	assert.False(t, cfg.Verbose())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "/api/v1", cfg.APIBasePath)
	assert.Equal(t, "app.db", cfg.DBPath)
	assert.Equal(t, 5.0, cfg.RateRPS)
	assert.Equal(t, 10, cfg.RateBurst)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 180*24*time.Hour, cfg.Security.HSTSMaxAge)
	assert.Equal(t, 10*time.Second, cfg.DrainTimeout)
}

func TestLoad_OverridesAndNormalization(t *testing.T) {
	clearEnv(t)
	for k, v := range map[string]string{
		"PORT":                 "8088",
		"READ_TIMEOUT":         "2s",
		"READ_HEADER_TIMEOUT":  "1s",
		"WRITE_TIMEOUT":        "3s",
		"IDLE_TIMEOUT":         "4s",
		"MAX_HEADER_BYTES":     "8192",
		"GIN_MODE":             "weird",
		"APP_ENV":              " Dev ",
		"LOG_LEVEL":            "WARNING",
		"LOG_PRETTY":           "yes",
		"SWAGGER_ENABLED":      "on",
		"API_BASE_PATH":        "api/v2/",
		"DB_PATH":              "db.sqlite",
		"JANITOR_INTERVAL":     "15m",
		"PURGE_AFTER":          "72h",
		"RATE_RPS":             "0.5",
		"RATE_BURST":           "3",
		"CORS_ALLOWED_ORIGINS": " https://a.com , , http://b ",
		"ENABLE_HSTS":          "TRUE",
		"HSTS_MAX_AGE":         "24h",
		"DRAIN_TIMEOUT":        "3s",
	} {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Config{
		Port:              "8088",
		ReadTimeout:       2 * time.Second,
		ReadHeaderTimeout: time.Second,
		WriteTimeout:      3 * time.Second,
		IdleTimeout:       4 * time.Second,
		MaxHeaderBytes:    8192,
		GinMode:           "release",
		AppEnv:            EnvDevelopment,
		LogLevel:          "warn",
		LogPretty:         true,
		SwaggerEnabled:    true,
		APIBasePath:       "/api/v2",
		DBPath:            "db.sqlite",
		JanitorInterval:   15 * time.Minute,
		PurgeAfter:        72 * time.Hour,
		RateRPS:           0.5,
		RateBurst:         3,
		CORS:              CORSConfig{AllowedOrigins: []string{"https://a.com", "http://b"}},
		Security:          SecurityConfig{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour},
		DrainTimeout:      3 * time.Second,
	}, cfg)
	assert.True(t, cfg.Verbose())
}

func TestLoad_Rejects(t *testing.T) {
	cases := []struct {
		key, val string
		want     string
	}{
		{"LOG_LEVEL", "verbose", "LOG_LEVEL must be one of"},
		{"APP_ENV", "staging", "APP_ENV must be one of"},
		{"PORT", "   ", ""}, // blank is unset, so the default applies
		{"READ_TIMEOUT", "0s", "timeouts must be positive"},
		{"MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES must be > 0"},
		{"RATE_RPS", "-1", "RATE_RPS must be >= 0"},
		{"RATE_BURST", "0", "RATE_BURST must be >= 1"},
		{"HSTS_MAX_AGE", "-1s", "HSTS_MAX_AGE must be >= 0"},
		{"JANITOR_INTERVAL", "0s", "JANITOR_INTERVAL"},
		{"DRAIN_TIMEOUT", "-1s", "DRAIN_TIMEOUT must be > 0"},

		// Malformed values fail instead of falling back.
		{"RATE_RPS", "x", `RATE_RPS="x": want a number`},
		{"RATE_BURST", "nope", `RATE_BURST="nope": want an integer`},
		{"LOG_PRETTY", "maybe", `LOG_PRETTY="maybe": want a boolean`},
		{"DRAIN_TIMEOUT", "soon", `DRAIN_TIMEOUT="soon": want a duration`},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.val, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.val)

			_, err := Load()
			if tc.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	clearEnv(t)
	t.Setenv("RATE_BURST", "many")
	t.Setenv("APP_ENV", "qa")
	t.Setenv("DRAIN_TIMEOUT", "0s")

	_, err := Load()
	require.Error(t, err)
	for _, want := range []string{"RATE_BURST=", "APP_ENV", "DRAIN_TIMEOUT"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestMustLoad(t *testing.T) {
	clearEnv(t)
	assert.NotPanics(t, func() { _ = MustLoad() })

	t.Setenv("LOG_LEVEL", "verbose")
	assert.Panics(t, func() { _ = MustLoad() })
}

func TestLoaderBool(t *testing.T) {
	var l loader
	for _, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on"} {
		t.Setenv("B", v)
		assert.True(t, l.bool("B", false), v)
	}
	for _, v := range []string{"0", "false", "FALSE", " no ", "N", "off"} {
		t.Setenv("B", v)
		assert.False(t, l.bool("B", true), v)
	}
	t.Setenv("B", "")
	assert.True(t, l.bool("B", true))
	assert.Empty(t, l.errs)
}

func TestSplitCSV(t *testing.T) {
	assert.Nil(t, splitCSV(""))
	assert.Nil(t, splitCSV(" , ,"))
	assert.Equal(t, []string{"a", "b", "c"}, splitCSV(" a, ,b ,  c  ,"))
}

func TestNormalizers(t *testing.T) {
	for in, want := range map[string]string{"": "/", " / ": "/", "v1": "/v1", "/v1/": "/v1", "//a/b//": "/a/b"} {
		assert.Equal(t, want, normalizeBasePath(in), in)
	}
	for in, want := range map[string]string{"DEV": EnvDevelopment, "develop": EnvDevelopment, "prod": EnvProduction, "Staging": "staging"} {
		assert.Equal(t, want, normalizeEnv(in), in)
	}
	assert.Equal(t, "warn", normalizeLevel("Warning"))
	assert.Equal(t, "debug", normalizeLevel("DEBUG"))
}

func TestMain(m *testing.M) {
	for _, k := range keys {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}
