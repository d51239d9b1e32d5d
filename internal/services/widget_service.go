// Package services – WidgetService
//
// This file implements the WidgetService, which manages the widget catalog.
// It validates input, normalizes names, and coordinates repository
// operations. Storage failures with a known shape (malformed id, duplicate
// name) pass through untouched as apperr failure variants; a missing widget
// becomes an operational 404.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-widget-api/internal/domain"
	"github.com/tbourn/go-widget-api/internal/repo"
	"github.com/tbourn/go-widget-api/internal/utils"
)

// WidgetRepo defines the repository contract required by WidgetService.
type WidgetRepo interface {
	CreateWidget(ctx context.Context, db *gorm.DB, name string, price float64, stock int) (*domain.Widget, error)
	CountWidgets(ctx context.Context, db *gorm.DB) (int64, error)
	ListWidgetsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Widget, error)
	GetWidget(ctx context.Context, db *gorm.DB, id string) (*domain.Widget, error)
	UpdateWidget(ctx context.Context, db *gorm.DB, id string, fields map[string]any) (*domain.Widget, error)
	DeleteWidget(ctx context.Context, db *gorm.DB, id string) error
}

// CreateWidgetInput is the validated payload for Create.
type CreateWidgetInput struct {
	Name  string  `validate:"required,max=120"`
	Price float64 `validate:"gt=0"`
	Stock int     `validate:"gte=0"`
}

// UpdateWidgetInput is a partial update; nil fields are left untouched.
type UpdateWidgetInput struct {
	Name  *string  `validate:"omitempty,min=1,max=120"`
	Price *float64 `validate:"omitempty,gt=0"`
	Stock *int     `validate:"omitempty,gte=0"`
}

// WidgetService provides catalog operations.
type WidgetService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the widget repository used by this service.
	Repo WidgetRepo
	// DefaultPageSize applies when the caller passes pageSize <= 0.
	DefaultPageSize int
}

// NewWidgetService constructs a WidgetService with the default page size.
func NewWidgetService(db *gorm.DB, r WidgetRepo) *WidgetService {
	return &WidgetService{DB: db, Repo: r, DefaultPageSize: utils.DefaultPageSize}
}

// Create validates in and inserts a new widget.
func (s *WidgetService) Create(ctx context.Context, in CreateWidgetInput) (*domain.Widget, error) {
	in.Name = normalizeName(in.Name)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return s.Repo.CreateWidget(ctx, s.DB, in.Name, in.Price, in.Stock)
}

// ListPage returns a page of widgets and the total count.
func (s *WidgetService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Widget, int64, error) {
	win := utils.Page{Number: page, Size: pageSize}.Normalize(s.DefaultPageSize)

	total, err := s.Repo.CountWidgets(ctx, s.DB)
	if err != nil {
		return nil, 0, fmt.Errorf("count widgets: %w", err)
	}
	if total == 0 {
		return []domain.Widget{}, 0, nil
	}
	items, err := s.Repo.ListWidgetsPage(ctx, s.DB, win.Offset(), win.Size)
	if err != nil {
		return nil, 0, fmt.Errorf("list widgets: %w", err)
	}
	return items, total, nil
}

// Get returns a single widget.
func (s *WidgetService) Get(ctx context.Context, id string) (*domain.Widget, error) {
	w, err := s.Repo.GetWidget(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errWidgetNotFound()
	}
	return w, err
}

// Update applies a partial update and returns the fresh widget.
func (s *WidgetService) Update(ctx context.Context, id string, in UpdateWidgetInput) (*domain.Widget, error) {
	if in.Name != nil {
		n := normalizeName(*in.Name)
		in.Name = &n
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	fields := make(map[string]any, 3)
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Price != nil {
		fields["price"] = *in.Price
	}
	if in.Stock != nil {
		fields["stock"] = *in.Stock
	}
	if len(fields) == 0 {
		return nil, errEmptyPatch()
	}

	w, err := s.Repo.UpdateWidget(ctx, s.DB, id, fields)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errWidgetNotFound()
	}
	return w, err
}

// Delete soft-deletes a widget.
func (s *WidgetService) Delete(ctx context.Context, id string) error {
	err := s.Repo.DeleteWidget(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return errWidgetNotFound()
	}
	return err
}

// normalizeName trims, collapses inner whitespace and applies Unicode NFC so
// visually identical names collide on the unique index.
func normalizeName(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}
