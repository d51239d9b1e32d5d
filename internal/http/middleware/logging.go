// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// Request correlation, access logging and panic recovery:
//
//   - RequestID assigns every request a correlation id (X-Request-ID).
//   - Logger is the development access log: everything about the request,
//     including the query and the collected errors.
//   - RedactingLogger (redact_logger.go) is the production access log.
//   - Recovery hands panics from unwrapped middleware to ErrorHandler.
//   - LoggerFrom returns the request-scoped logger either access logger
//     attached, for use in handlers:
//     middleware.LoggerFrom(c).Info().Str("widget_id", id).Msg("restocked")
//
// Recommended order: RequestID, access logger, Metrics, ErrorHandler,
// Recovery, then everything else.
package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-widget-api/internal/apperr"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"

	maxRequestIDLength = 128
	maxQueryLogLength  = 2048
)

// RequestID reuses a well-formed inbound X-Request-ID or generates a UUIDv4.
// The id is stored in the context and echoed in the response header.
//
// Inbound ids end up in logs and error bodies, so anything longer than 128
// bytes or outside [A-Za-z0-9._:-] is replaced.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch b := s[i]; {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		case b == '-', b == '_', b == '.', b == ':':
		default:
			return false
		}
	}
	return true
}

// requestID returns the correlation id, falling back to the raw header
// when RequestID is not installed.
func requestID(c *gin.Context) string {
	if rid := c.GetString(requestIDKey); rid != "" {
		return rid
	}
	if rid := c.Writer.Header().Get(requestIDHeader); rid != "" {
		return rid
	}
	return c.GetHeader(requestIDHeader)
}

// attachLogger stores the request-scoped logger read by LoggerFrom.
func attachLogger(c *gin.Context, path string) *zerolog.Logger {
	l := log.With().
		Str("request_id", requestID(c)).
		Str("method", c.Request.Method).
		Str("path", path).
		Logger()
	c.Set(loggerKey, &l)
	return &l
}

func levelFor(status int) zerolog.Level {
	switch {
	case status >= 500:
		return zerolog.ErrorLevel
	case status >= 400:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger writes one access line per request at info (2xx/3xx), warn (4xx)
// or error (5xx). Unmatched paths are logged raw, and the query and any
// errors collected on the context are included. Use it in development only;
// production uses RedactingLogger.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		l := attachLogger(c, path)

		c.Next()

		status := c.Writer.Status()
		ev := l.WithLevel(levelFor(status)).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("query", truncate(c.Request.URL.RawQuery, maxQueryLogLength)).
			Int64("bytes_in", c.Request.ContentLength). // -1 when unknown
			Int("status", status).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start))
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Msg("request")
	}
}

// Recovery turns a panic from middleware not wrapped by handlers.Catch into
// an *apperr.PanicError for ErrorHandler, which must be installed before
// it. If the response is already on the wire the panic is logged here and
// the status forced to 500. http.ErrAbortHandler is re-raised.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if e, ok := rec.(error); ok && errors.Is(e, http.ErrAbortHandler) {
				panic(rec)
			}
			stack := debug.Stack()
			if !c.Writer.Written() {
				_ = c.Error(&apperr.PanicError{Value: rec, Stack: stack})
				c.Abort()
				return
			}

			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", stack).
				Msg("panic recovered")
			c.AbortWithStatus(http.StatusInternalServerError)
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or a logger carrying just
// the request id when no access logger ran. Never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Str("request_id", requestID(c)).Logger()
	return &l
}

// truncate caps s at max bytes plus an ellipsis; max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
