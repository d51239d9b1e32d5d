// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file installs the error dispatcher: the single place where failures
// become HTTP responses. Handlers (through handlers.Catch), Recovery, the
// rate limiter and the fallback routes only record the failure with
// c.Error and abort; ErrorHandler renders it after the chain unwinds.
//
// Rendering depends on the deployment mode:
//
//   - verbose (development): status, message, stack and the raw error;
//   - terse (production): status and message for operational errors, and a
//     fixed generic message with status 500 for everything else.
//
// Non-operational failures are always logged with the original error so
// operators can see what the caller could not.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-widget-api/internal/apperr"
)

// ErrorOptions configures ErrorHandler.
type ErrorOptions struct {
	// Verbose enables diagnostic rendering. Never enable in production.
	Verbose bool
}

// ErrorHandler returns a Gin middleware that dispatches the last error
// recorded on the context into exactly one JSON response.
//
// It runs after the rest of the chain and does nothing when no error was
// recorded. A failure recorded after the response was written is still
// logged and counted, but nothing more is sent. Install it right after the
// access logger and before Recovery.
func ErrorHandler(opts ErrorOptions) gin.HandlerFunc {
	d := apperr.Dispatcher{Verbose: opts.Verbose}

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		written := c.Writer.Written()

		resp := d.Dispatch(c.Errors.Last().Err)
		resp.Body.RequestID = c.Writer.Header().Get(requestIDHeader)

		class := "operational"
		lg := LoggerFrom(c)
		if resp.Unexpected {
			class = "unexpected"
			ev := lg.Error().Err(resp.Raw).Int("status", resp.StatusCode).Bool("written", written)
			if resp.Err.Stack != "" {
				ev = ev.Str("stack", resp.Err.Stack)
			}
			ev.Msg("unexpected error")
		} else {
			lg.Debug().
				Int("status", resp.StatusCode).
				Str("message", resp.Err.Message).
				Bool("written", written).
				Msg("operational error")
		}
		metrics.countError(resp.StatusCode, class)
		if written {
			return
		}

		// Failures must not be revalidated against a success ETag.
		h := c.Writer.Header()
		h.Del("ETag")
		h.Set("Cache-Control", "no-store")
		c.AbortWithStatusJSON(resp.StatusCode, resp.Body)
	}
}
