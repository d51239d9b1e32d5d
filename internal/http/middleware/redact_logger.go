// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// RedactingLogger is the production access log. It never logs bodies, and
// it scrubs identifiers out of the query string and request headers before
// anything reaches zerolog:
//
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-API-Key"},
//	}))
//
// Paths are logged as the matched route template (/api/v1/accounts/:id), so
// ids in the path never show up; unmatched paths are scrubbed like queries.
package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// RedactOptions configures RedactingLogger.
type RedactOptions struct {
	// MaskHeaders are replaced by "[REDACTED]" in addition to
	// Authorization, Cookie and Set-Cookie. Case-insensitive.
	MaskHeaders []string
}

// Patterns run in this order: the phone pattern is loose enough to eat the
// digit groups of a UUID, so ids go first.
var redactions = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}

type redactor struct {
	masked map[string]struct{}
}

func newRedactor(opts RedactOptions) redactor {
	r := redactor{masked: map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.masked[h] = struct{}{}
		}
	}
	return r
}

func (redactor) scrub(s string) string {
	for _, rd := range redactions {
		if s == "" {
			break
		}
		s = rd.re.ReplaceAllString(s, rd.repl)
	}
	return s
}

func (r redactor) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.masked[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = r.scrub(strings.Join(vv, ", "))
	}
	return out
}

// RedactingLogger returns a Gin middleware that writes one scrubbed access
// line per request: info for 2xx/3xx, warn for 4xx, error for 5xx.
//
// It also attaches the request-scoped logger read by LoggerFrom. That
// logger carries only the request id, the method and the route.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	rd := newRedactor(opts)

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = rd.scrub(c.Request.URL.Path)
		}
		l := attachLogger(c, path)

		// Snapshot before handlers run.
		query := rd.scrub(c.Request.URL.RawQuery)
		hdrs := rd.headers(c.Request.Header)

		c.Next()

		status := c.Writer.Status()
		l.WithLevel(levelFor(status)).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", hdrs).
			Msg("http_request")
	}
}
