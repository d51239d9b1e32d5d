// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the error boundary every endpoint goes through. Handlers
// are written as HandlerFunc and return an error instead of writing failure
// responses themselves; Catch adapts them to gin and forwards any failure to
// the error dispatcher installed by middleware.ErrorHandler:
//
//	api.GET("/widgets/:id", handlers.Catch(h.GetWidget))
//
// A handler failure reaches the dispatcher exactly once, whether it was
// returned or raised as a panic while the handler ran.
package handlers

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-widget-api/internal/apperr"
)

// HandlerFunc is a gin handler that reports failure by returning an error.
type HandlerFunc func(c *gin.Context) error

// Catch adapts h to a gin.HandlerFunc. A non-nil error returned by h, or a
// value h panics with, is recorded on the context unmodified (panics are
// wrapped in *apperr.PanicError) and the chain is aborted. Successful calls
// are left alone.
func Catch(h HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := invoke(h, c); err != nil {
			_ = c.Error(err)
			c.Abort()
		}
	}
}

func invoke(h HandlerFunc, c *gin.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			// net/http uses this sentinel to abort a response on purpose.
			if e, ok := rec.(error); ok && errors.Is(e, http.ErrAbortHandler) {
				panic(rec)
			}
			err = &apperr.PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return h(c)
}
