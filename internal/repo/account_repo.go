// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Account model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-widget-api/internal/domain"
)

// CreateAccount inserts a new Account. A taken email yields
// *apperr.DuplicateKeyFailure{Field: "email"}.
func CreateAccount(ctx context.Context, db *gorm.DB, name, email string, age int) (*domain.Account, error) {
	a := &domain.Account{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Age:       age,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, classify(err, map[string]any{"email": email})
	}
	return a, nil
}

// CountAccounts returns the number of live accounts.
func CountAccounts(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Account{}).Count(&total).Error
	return total, err
}

// ListAccountsPage returns a page of accounts, newest first.
func ListAccountsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Account, error) {
	var out []domain.Account
	err := db.WithContext(ctx).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetAccount fetches an account by id.
func GetAccount(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var a domain.Account
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, classify(err, nil)
	}
	return &a, nil
}
