// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Widget model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Error semantics (see errors.go):
//   - Malformed ids return *apperr.CastFailure without touching the DB.
//   - Duplicate names return *apperr.DuplicateKeyFailure.
//   - Missing rows return ErrNotFound.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-widget-api/internal/domain"
)

// CreateWidget inserts a new Widget with a random UUID and UTC timestamp.
func CreateWidget(ctx context.Context, db *gorm.DB, name string, price float64, stock int) (*domain.Widget, error) {
	w := &domain.Widget{
		ID:        uuid.NewString(),
		Name:      name,
		Price:     price,
		Stock:     stock,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(w).Error; err != nil {
		return nil, classify(err, map[string]any{"name": name})
	}
	return w, nil
}

// CountWidgets returns the number of live (not soft-deleted) widgets.
func CountWidgets(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Widget{}).Count(&total).Error
	return total, err
}

// ListWidgetsPage returns a page of widgets ordered by name.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListWidgetsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Widget, error) {
	var out []domain.Widget
	err := db.WithContext(ctx).
		Order("name asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetWidget fetches a widget by id.
func GetWidget(ctx context.Context, db *gorm.DB, id string) (*domain.Widget, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var w domain.Widget
	if err := db.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		return nil, classify(err, nil)
	}
	return &w, nil
}

// UpdateWidget applies the given column updates and returns the fresh row.
// Only keys present in fields are written.
func UpdateWidget(ctx context.Context, db *gorm.DB, id string, fields map[string]any) (*domain.Widget, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var unique map[string]any
	if name, ok := fields["name"]; ok {
		unique = map[string]any{"name": name}
	}

	res := db.WithContext(ctx).Model(&domain.Widget{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, classify(res.Error, unique)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return GetWidget(ctx, db, id)
}

// DeleteWidget soft-deletes a widget.
func DeleteWidget(ctx context.Context, db *gorm.DB, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Widget{})
	if res.Error != nil {
		return classify(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
