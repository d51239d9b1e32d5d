// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// SecurityHeaders hardens JSON responses. The header table is built once
// from SecurityOptions; per request only HSTS (HTTPS only) and the
// X-Request-ID expose entry depend on the request. Headers are written
// before the chain runs, so responses rendered by ErrorHandler carry them
// too.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultHSTSMaxAge is used when HSTS is enabled without a lifetime.
const DefaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions selects the optional security headers.
type SecurityOptions struct {
	// EnableHSTS emits Strict-Transport-Security on HTTPS requests only.
	// Enable it only when traffic is HTTPS between proxy and app as well.
	EnableHSTS bool
	HSTSMaxAge time.Duration // DefaultHSTSMaxAge when <= 0

	// NoStore marks every response uncacheable. Leave off for routes that
	// rely on ETag revalidation.
	NoStore bool

	// BrowserPolicy adds Permissions-Policy and
	// X-Permitted-Cross-Domain-Policies.
	BrowserPolicy bool
}

type header struct{ name, value string }

// headers returns the static part of the header set.
func (o SecurityOptions) headers() []header {
	hs := []header{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
	}
	if o.BrowserPolicy {
		hs = append(hs,
			header{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
			header{"X-Permitted-Cross-Domain-Policies", "none"},
		)
	}
	if o.NoStore {
		hs = append(hs,
			header{"Cache-Control", "no-store"},
			header{"Pragma", "no-cache"},
			header{"Expires", "0"},
		)
	}
	return hs
}

func (o SecurityOptions) hstsValue() string {
	age := o.HSTSMaxAge
	if age <= 0 {
		age = DefaultHSTSMaxAge
	}
	return "max-age=" + strconv.FormatInt(int64(age/time.Second), 10) + "; includeSubDomains; preload"
}

// SecurityHeaders returns a Gin middleware that writes the configured
// security headers and exposes X-Request-ID to browser clients.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	static := opt.headers()
	hsts := opt.hstsValue()

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range static {
			h.Set(kv.name, kv.value)
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if h.Get(requestIDHeader) != "" {
			exposeHeader(h, requestIDHeader)
		}
		c.Next()
	}
}

// exposeHeader adds name to Access-Control-Expose-Headers unless present.
func exposeHeader(h http.Header, name string) {
	const key = "Access-Control-Expose-Headers"
	cur := h.Get(key)
	switch {
	case cur == "":
		h.Set(key, name)
	case !strings.Contains(strings.ToLower(cur), strings.ToLower(name)):
		h.Set(key, cur+", "+name)
	}
}

// isHTTPS reports whether the request arrived over TLS, directly or through
// a proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
