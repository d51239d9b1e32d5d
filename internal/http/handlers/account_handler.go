// Account HTTP handlers.
//
//   - POST /accounts       (register)
//   - GET  /accounts       (list, paginated)
//   - GET  /accounts/{id}  (read)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-widget-api/internal/domain"
	"github.com/tbourn/go-widget-api/internal/services"
)

// CreateAccountRequest is the JSON payload for registering an account.
type CreateAccountRequest struct {
	Name  string `json:"name"  example:"Ann Example"`
	Email string `json:"email" example:"ann@example.com"`
	Age   int    `json:"age"   example:"34"`
}

// ListAccountsResponse wraps a page of accounts and pagination information.
type ListAccountsResponse struct {
	Accounts   []domain.Account `json:"accounts"`
	Pagination Pagination       `json:"pagination"`
}

// CreateAccount godoc
// @ID          createAccount
// @Summary     Register an account
// @Tags        Accounts
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.CreateAccountRequest  true  "Account payload"
// @Success     201   {object}  domain.Account
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid input or duplicate email"
// @Router      /accounts [post]
func (h *Handlers) CreateAccount(c *gin.Context) error {
	var req CreateAccountRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	a, err := h.accounts.Register(c.Request.Context(), services.CreateAccountInput{
		Name:  req.Name,
		Email: req.Email,
		Age:   req.Age,
	})
	if err != nil {
		return err
	}
	ok(c, http.StatusCreated, a)
	return nil
}

// ListAccounts godoc
// @ID          listAccounts
// @Summary     List accounts (paginated)
// @Tags        Accounts
// @Produce     json
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListAccountsResponse
// @Router      /accounts [get]
func (h *Handlers) ListAccounts(c *gin.Context) error {
	p := pageQuery(c)
	items, total, err := h.accounts.ListPage(c.Request.Context(), p.Number, p.Size)
	if err != nil {
		return err
	}
	ok(c, http.StatusOK, ListAccountsResponse{
		Accounts:   items,
		Pagination: newPagination(p, total),
	})
	return nil
}

// GetAccount godoc
// @ID          getAccount
// @Summary     Get an account
// @Tags        Accounts
// @Produce     json
// @Param       id   path      string  true  "Account ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Account
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed id"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Router      /accounts/{id} [get]
func (h *Handlers) GetAccount(c *gin.Context) error {
	a, err := h.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return err
	}
	ok(c, http.StatusOK, a)
	return nil
}
