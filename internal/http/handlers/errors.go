// Package handlers – fallback routes.
//
// NotFound and MethodNotAllowed are installed with engine.NoRoute and
// engine.NoMethod, which gin evaluates only after every registered route
// failed to match. Both produce operational errors and hand them to the
// dispatcher like any other handler.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-widget-api/internal/apperr"
)

// NotFound reports that nothing is served at the requested URI.
func NotFound(c *gin.Context) error {
	return apperr.Newf(http.StatusNotFound, "Can't find %s on this server", c.Request.URL.RequestURI())
}

// MethodNotAllowed reports a known path requested with an unsupported method.
func MethodNotAllowed(c *gin.Context) error {
	return apperr.Newf(http.StatusMethodNotAllowed, "%s is not allowed on %s", c.Request.Method, c.Request.URL.Path)
}
