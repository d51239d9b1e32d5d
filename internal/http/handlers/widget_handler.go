// Widget HTTP handlers.
//
// This file exposes REST endpoints for widget resources:
//   - POST   /widgets       (create)
//   - GET    /widgets       (list, paginated, ETag support)
//   - GET    /widgets/{id}  (read)
//   - PATCH  /widgets/{id}  (partial update)
//   - DELETE /widgets/{id}  (soft delete)
//
// Handlers are transport-thin: they decode input, call application services,
// and return whatever error the services produce.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-widget-api/internal/domain"
	"github.com/tbourn/go-widget-api/internal/services"
)

//
// Service contracts (context-aware)
//

// WidgetService defines catalog operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type WidgetService interface {
	Create(ctx context.Context, in services.CreateWidgetInput) (*domain.Widget, error)
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Widget, int64, error)
	Get(ctx context.Context, id string) (*domain.Widget, error)
	Update(ctx context.Context, id string, in services.UpdateWidgetInput) (*domain.Widget, error)
	Delete(ctx context.Context, id string) error
}

// AccountService defines account operations consumed by HTTP handlers.
type AccountService interface {
	Register(ctx context.Context, in services.CreateAccountInput) (*domain.Account, error)
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Account, int64, error)
	Get(ctx context.Context, id string) (*domain.Account, error)
}

// StatsFunc reports the widget count and latest update time, used to build
// the list ETag. A nil StatsFunc disables conditional responses.
type StatsFunc func(ctx context.Context) (int64, *time.Time, error)

//
// Handler wiring
//

// Handlers groups HTTP endpoints for widgets and accounts.
type Handlers struct {
	widgets  WidgetService
	accounts AccountService
	stats    StatsFunc
}

// New constructs and returns a Handlers instance bound to the given services.
func New(widgets WidgetService, accounts AccountService, stats StatsFunc) *Handlers {
	return &Handlers{widgets: widgets, accounts: accounts, stats: stats}
}

//
// DTOs
//

// CreateWidgetRequest is the JSON payload for creating a widget.
type CreateWidgetRequest struct {
	Name  string  `json:"name"  example:"Blue Sprocket"`
	Price float64 `json:"price" example:"4.99"`
	Stock int     `json:"stock" example:"12"`
}

// UpdateWidgetRequest is the JSON payload for a partial widget update.
type UpdateWidgetRequest struct {
	Name  *string  `json:"name,omitempty"  example:"Red Sprocket"`
	Price *float64 `json:"price,omitempty" example:"5.49"`
	Stock *int     `json:"stock,omitempty" example:"3"`
}

// ListWidgetsResponse wraps a page of widgets and pagination information.
type ListWidgetsResponse struct {
	Widgets    []domain.Widget `json:"widgets"`
	Pagination Pagination      `json:"pagination"`
}

//
// Handlers
//

// CreateWidget godoc
// @ID          createWidget
// @Summary     Create a widget
// @Tags        Widgets
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.CreateWidgetRequest  true  "Widget payload"
// @Success     201   {object}  domain.Widget
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid input or duplicate name"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /widgets [post]
func (h *Handlers) CreateWidget(c *gin.Context) error {
	var req CreateWidgetRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	w, err := h.widgets.Create(c.Request.Context(), services.CreateWidgetInput{
		Name:  req.Name,
		Price: req.Price,
		Stock: req.Stock,
	})
	if err != nil {
		return err
	}
	ok(c, http.StatusCreated, w)
	return nil
}

// ListWidgets godoc
// @ID          listWidgets
// @Summary     List widgets (paginated)
// @Description Returns a page of widgets. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Widgets
// @Produce     json
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListWidgetsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /widgets [get]
func (h *Handlers) ListWidgets(c *gin.Context) error {
	ctx := c.Request.Context()
	p := pageQuery(c)

	// ETag pre-check (best effort).
	if h.stats != nil {
		if count, maxTS, err := h.stats(ctx); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"widgets:%d:%d:%d:%d"`, count, ts, p.Number, p.Size)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return nil
			}
		}
	}

	items, total, err := h.widgets.ListPage(ctx, p.Number, p.Size)
	if err != nil {
		return err
	}
	ok(c, http.StatusOK, ListWidgetsResponse{
		Widgets:    items,
		Pagination: newPagination(p, total),
	})
	return nil
}

// GetWidget godoc
// @ID          getWidget
// @Summary     Get a widget
// @Tags        Widgets
// @Produce     json
// @Param       id   path      string  true  "Widget ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Widget
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed id"
// @Failure     404  {object}  handlers.ErrorResponse  "Widget not found"
// @Router      /widgets/{id} [get]
func (h *Handlers) GetWidget(c *gin.Context) error {
	w, err := h.widgets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return err
	}
	ok(c, http.StatusOK, w)
	return nil
}

// UpdateWidget godoc
// @ID          updateWidget
// @Summary     Update a widget
// @Tags        Widgets
// @Accept      json
// @Produce     json
// @Param       id    path      string                        true  "Widget ID (UUID)"  format(uuid)
// @Param       body  body      handlers.UpdateWidgetRequest  true  "Fields to change"
// @Success     200   {object}  domain.Widget
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid input or duplicate name"
// @Failure     404   {object}  handlers.ErrorResponse  "Widget not found"
// @Router      /widgets/{id} [patch]
func (h *Handlers) UpdateWidget(c *gin.Context) error {
	var req UpdateWidgetRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	w, err := h.widgets.Update(c.Request.Context(), c.Param("id"), services.UpdateWidgetInput{
		Name:  req.Name,
		Price: req.Price,
		Stock: req.Stock,
	})
	if err != nil {
		return err
	}
	ok(c, http.StatusOK, w)
	return nil
}

// DeleteWidget godoc
// @ID          deleteWidget
// @Summary     Delete a widget
// @Tags        Widgets
// @Param       id   path      string  true  "Widget ID (UUID)"  format(uuid)
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed id"
// @Failure     404  {object}  handlers.ErrorResponse  "Widget not found"
// @Router      /widgets/{id} [delete]
func (h *Handlers) DeleteWidget(c *gin.Context) error {
	if err := h.widgets.Delete(c.Request.Context(), c.Param("id")); err != nil {
		return err
	}
	noContent(c)
	return nil
}
