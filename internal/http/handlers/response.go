// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the success helpers and request decoding shared by all
// endpoints. Error responses are never written here: handlers return errors
// and the dispatcher renders them (see middleware.ErrorHandler).
//
// Example error response (production):
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "status": "fail",
//	  "message": "No widget found with that ID"
//	}
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-widget-api/internal/apperr"
	"github.com/tbourn/go-widget-api/internal/utils"
)

// ErrorResponse documents the error envelope for OpenAPI.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// "fail" for 4xx, "error" otherwise
	Status string `json:"status" example:"fail"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"No widget found with that ID"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(p utils.Page, total int64) Pagination {
	pages := p.TotalPages(total)
	return Pagination{
		Page:       p.Number,
		PageSize:   p.Size,
		Total:      total,
		TotalPages: pages,
		HasNext:    p.Number < pages,
	}
}

// pageQuery reads the page and page_size query params.
func pageQuery(c *gin.Context) utils.Page {
	return utils.ParsePage(c.Query("page"), c.Query("page_size"))
}

// bindJSON decodes the request body into dst. Decoding problems are caller
// mistakes and come back as operational errors.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}

	var (
		tooLarge *http.MaxBytesError
		syntax   *json.SyntaxError
		typ      *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &tooLarge):
		return apperr.New("Request body too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, io.EOF):
		return apperr.New("Request body must not be empty", http.StatusBadRequest)
	case errors.As(err, &typ):
		return apperr.Newf(http.StatusBadRequest, "Invalid value for %s", typ.Field)
	case errors.As(err, &syntax), errors.Is(err, io.ErrUnexpectedEOF):
		return apperr.New("Invalid JSON body", http.StatusBadRequest)
	}
	if vf := apperr.FromValidator(err); vf != nil {
		return vf
	}
	return apperr.New("Invalid JSON body", http.StatusBadRequest)
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
