package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func securityRecorder(opt SecurityOptions, prep func(*http.Request), pre ...gin.HandlerFunc) http.Header {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(pre...)
	r.Use(SecurityHeaders(opt))
	r.GET("/api/v1/widgets", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/widgets", nil)
	if prep != nil {
		prep(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_Options(t *testing.T) {
	overTLS := func(r *http.Request) { r.TLS = &tls.ConnectionState{} }
	proxied := func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "HTTPS") }

	tests := []struct {
		name string
		opt  SecurityOptions
		prep func(*http.Request)
		want map[string]string // "" means absent
	}{
		{
			name: "baseline only",
			want: map[string]string{
				"X-Content-Type-Options":    "nosniff",
				"X-Frame-Options":           "DENY",
				"Referrer-Policy":           "no-referrer",
				"Permissions-Policy":        "",
				"Cache-Control":             "",
				"Strict-Transport-Security": "",
			},
		},
		{
			name: "browser policy and no-store",
			opt:  SecurityOptions{BrowserPolicy: true, NoStore: true},
			want: map[string]string{
				"X-Permitted-Cross-Domain-Policies": "none",
				"Cache-Control":                     "no-store",
				"Pragma":                            "no-cache",
				"Expires":                           "0",
			},
		},
		{
			name: "hsts over tls",
			opt:  SecurityOptions{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour},
			prep: overTLS,
			want: map[string]string{"Strict-Transport-Security": "max-age=86400; includeSubDomains; preload"},
		},
		{
			name: "hsts behind proxy uses default age",
			opt:  SecurityOptions{EnableHSTS: true},
			prep: proxied,
			want: map[string]string{"Strict-Transport-Security": "max-age=15552000; includeSubDomains; preload"},
		},
		{
			name: "hsts never on plain http",
			opt:  SecurityOptions{EnableHSTS: true},
			want: map[string]string{"Strict-Transport-Security": ""},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := securityRecorder(tc.opt, tc.prep)
			for k, v := range tc.want {
				assert.Equal(t, v, h.Get(k), k)
			}
		})
	}
}

func TestSecurityHeaders_ExposesRequestID(t *testing.T) {
	withRID := func(expose string) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Header("X-Request-ID", "rid-7")
			if expose != "" {
				c.Header("Access-Control-Expose-Headers", expose)
			}
			c.Next()
		}
	}

	h := securityRecorder(SecurityOptions{}, nil, withRID(""))
	assert.Equal(t, "X-Request-ID", h.Get("Access-Control-Expose-Headers"))

	h = securityRecorder(SecurityOptions{}, nil, withRID("ETag"))
	assert.Equal(t, "ETag, X-Request-ID", h.Get("Access-Control-Expose-Headers"))

	h = securityRecorder(SecurityOptions{}, nil, withRID("x-request-id, ETag"))
	assert.Equal(t, "x-request-id, ETag", h.Get("Access-Control-Expose-Headers"))

	h = securityRecorder(SecurityOptions{}, nil)
	assert.Empty(t, h.Get("Access-Control-Expose-Headers"))
}
