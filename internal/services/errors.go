// Package services defines the business logic for widgets and accounts.
// This file centralizes the operational errors returned by service methods.
//
// Each constructor builds a fresh *apperr.Error so no error value is shared
// between requests. Handlers forward them untouched; the HTTP layer's
// dispatcher owns the rendering.
package services

import (
	"net/http"

	"github.com/tbourn/go-widget-api/internal/apperr"
)

// errWidgetNotFound indicates that the requested widget does not exist or
// has been deleted.
func errWidgetNotFound() *apperr.Error {
	return apperr.New("No widget found with that ID", http.StatusNotFound)
}

// errAccountNotFound indicates that the requested account does not exist.
func errAccountNotFound() *apperr.Error {
	return apperr.New("No account found with that ID", http.StatusNotFound)
}

// errEmptyPatch is returned when an update carries no fields.
func errEmptyPatch() *apperr.Error {
	return apperr.New("No fields to update", http.StatusBadRequest)
}
