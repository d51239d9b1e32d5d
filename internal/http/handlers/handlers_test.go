package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-widget-api/internal/apperr"
	"github.com/tbourn/go-widget-api/internal/domain"
	"github.com/tbourn/go-widget-api/internal/services"
)

type fakeWidgets struct {
	created  services.CreateWidgetInput
	updated  services.UpdateWidgetInput
	items    []domain.Widget
	total    int64
	listHits int
	err      error
}

func (f *fakeWidgets) Create(_ context.Context, in services.CreateWidgetInput) (*domain.Widget, error) {
	f.created = in
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Widget{ID: "w-1", Name: in.Name, Price: in.Price, Stock: in.Stock}, nil
}

func (f *fakeWidgets) ListPage(context.Context, int, int) ([]domain.Widget, int64, error) {
	f.listHits++
	return f.items, f.total, f.err
}

func (f *fakeWidgets) Get(_ context.Context, id string) (*domain.Widget, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Widget{ID: id, Name: "Sprocket", Price: 1}, nil
}

func (f *fakeWidgets) Update(_ context.Context, id string, in services.UpdateWidgetInput) (*domain.Widget, error) {
	f.updated = in
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Widget{ID: id, Name: "Updated", Price: 2}, nil
}

func (f *fakeWidgets) Delete(context.Context, string) error { return f.err }

type fakeAccounts struct {
	got services.CreateAccountInput
	err error
}

func (f *fakeAccounts) Register(_ context.Context, in services.CreateAccountInput) (*domain.Account, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Account{ID: "a-1", Name: in.Name, Email: in.Email, Age: in.Age}, nil
}

func (f *fakeAccounts) ListPage(context.Context, int, int) ([]domain.Account, int64, error) {
	return []domain.Account{{ID: "a-1"}}, 1, f.err
}

func (f *fakeAccounts) Get(_ context.Context, id string) (*domain.Account, error) {
	return &domain.Account{ID: id}, f.err
}

// newTestRouter wires the handlers with a minimal stand-in for the error
// middleware that records the forwarded error into the response.
func newTestRouter(h *Handlers) (*gin.Engine, *[]error) {
	gin.SetMode(gin.TestMode)
	var seen []error
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Next()
		for _, e := range c.Errors {
			seen = append(seen, e.Err)
		}
		if len(c.Errors) > 0 && !c.Writer.Written() {
			resp := apperr.Dispatcher{}.Dispatch(c.Errors.Last().Err)
			c.AbortWithStatusJSON(resp.StatusCode, resp.Body)
		}
	})
	r.POST("/widgets", Catch(h.CreateWidget))
	r.GET("/widgets", Catch(h.ListWidgets))
	r.GET("/widgets/:id", Catch(h.GetWidget))
	r.PATCH("/widgets/:id", Catch(h.UpdateWidget))
	r.DELETE("/widgets/:id", Catch(h.DeleteWidget))
	r.POST("/accounts", Catch(h.CreateAccount))
	r.GET("/accounts", Catch(h.ListAccounts))
	r.GET("/accounts/:id", Catch(h.GetAccount))
	return r, &seen
}

func serve(r http.Handler, method, target, body string, hdr ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateWidget_Created(t *testing.T) {
	fw := &fakeWidgets{}
	r, seen := newTestRouter(New(fw, &fakeAccounts{}, nil))

	w := serve(r, http.MethodPost, "/widgets", `{"name":"Blue","price":4.5,"stock":3}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, *seen)
	assert.Equal(t, services.CreateWidgetInput{Name: "Blue", Price: 4.5, Stock: 3}, fw.created)

	var got domain.Widget
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "w-1", got.ID)
}

func TestCreateWidget_DecodeErrors(t *testing.T) {
	r, _ := newTestRouter(New(&fakeWidgets{}, &fakeAccounts{}, nil))

	cases := []struct {
		name, body, want string
	}{
		{"empty", "", "Request body must not be empty"},
		{"syntax", `{"name":`, "Invalid JSON body"},
		{"type", `{"name":"x","price":"cheap"}`, "Invalid value for price"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/widgets", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"status":"fail","message":"`+tc.want+`"}`, w.Body.String())
		})
	}
}

func TestCreateWidget_ServiceErrorForwardedOnce(t *testing.T) {
	dup := &apperr.DuplicateKeyFailure{Field: "name", Value: "Blue", Code: apperr.DuplicateKeyCode}
	r, seen := newTestRouter(New(&fakeWidgets{err: dup}, &fakeAccounts{}, nil))

	w := serve(r, http.MethodPost, "/widgets", `{"name":"Blue","price":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Duplicate field value: 'Blue'. Please use another value for 'name'.")
	require.Len(t, *seen, 1)
	assert.Same(t, error(dup), (*seen)[0])
}

func TestGetWidget_NotFound(t *testing.T) {
	nf := apperr.New("No widget found with that ID", http.StatusNotFound)
	r, _ := newTestRouter(New(&fakeWidgets{err: nf}, &fakeAccounts{}, nil))

	w := serve(r, http.MethodGet, "/widgets/abc", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"status":"fail","message":"No widget found with that ID"}`, w.Body.String())
}

func TestUpdateWidget_PassesPointers(t *testing.T) {
	fw := &fakeWidgets{}
	r, _ := newTestRouter(New(fw, &fakeAccounts{}, nil))

	w := serve(r, http.MethodPatch, "/widgets/w-1", `{"stock":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, fw.updated.Stock)
	assert.Equal(t, 0, *fw.updated.Stock)
	assert.Nil(t, fw.updated.Name)
	assert.Nil(t, fw.updated.Price)
}

func TestDeleteWidget(t *testing.T) {
	r, _ := newTestRouter(New(&fakeWidgets{}, &fakeAccounts{}, nil))
	w := serve(r, http.MethodDelete, "/widgets/w-1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, w.Body.Len())
}

func TestListWidgets_PaginationAndETag(t *testing.T) {
	fw := &fakeWidgets{items: []domain.Widget{{ID: "w-1"}, {ID: "w-2"}}, total: 5}
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	stats := func(context.Context) (int64, *time.Time, error) { return 5, &ts, nil }
	r, _ := newTestRouter(New(fw, &fakeAccounts{}, stats))

	w := serve(r, http.MethodGet, "/widgets?page=2&page_size=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.True(t, strings.HasPrefix(etag, `W/"widgets:5:`))

	var body ListWidgetsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Widgets, 2)
	assert.Equal(t, Pagination{Page: 2, PageSize: 2, Total: 5, TotalPages: 3, HasNext: true}, body.Pagination)

	w = serve(r, http.MethodGet, "/widgets?page=2&page_size=2", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Equal(t, 1, fw.listHits)
}

func TestListWidgets_ClampsPageSize(t *testing.T) {
	r, _ := newTestRouter(New(&fakeWidgets{}, &fakeAccounts{}, nil))
	w := serve(r, http.MethodGet, "/widgets?page=-3&page_size=1000", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body ListWidgetsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Pagination.Page)
	assert.Equal(t, 100, body.Pagination.PageSize)
}

func TestListWidgets_UnknownFailureIsGeneric(t *testing.T) {
	r, _ := newTestRouter(New(&fakeWidgets{err: errors.New("disk full")}, &fakeAccounts{}, nil))
	w := serve(r, http.MethodGet, "/widgets", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk full")
}

func TestCreateAccount(t *testing.T) {
	fa := &fakeAccounts{}
	r, _ := newTestRouter(New(&fakeWidgets{}, fa, nil))

	w := serve(r, http.MethodPost, "/accounts", `{"name":"Ann","email":"ann@example.com","age":34}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, services.CreateAccountInput{Name: "Ann", Email: "ann@example.com", Age: 34}, fa.got)
}

func TestCreateAccount_ValidationFailure(t *testing.T) {
	vf := &apperr.ValidationFailure{Violations: []apperr.Violation{
		{Field: "Email", Message: "Email must be a valid email"},
		{Field: "Age", Message: "Age must be positive"},
	}}
	r, _ := newTestRouter(New(&fakeWidgets{}, &fakeAccounts{err: vf}, nil))

	w := serve(r, http.MethodPost, "/accounts", `{"name":"Ann","email":"nope","age":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t,
		`{"status":"fail","message":"Invalid input data: Email must be a valid email. Age must be positive"}`,
		w.Body.String())
}

func TestListAndGetAccounts(t *testing.T) {
	r, _ := newTestRouter(New(&fakeWidgets{}, &fakeAccounts{}, nil))

	w := serve(r, http.MethodGet, "/accounts", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body ListAccountsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Accounts, 1)
	assert.Equal(t, int64(1), body.Pagination.Total)

	w = serve(r, http.MethodGet, "/accounts/a-9", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"a-9"`)
}
