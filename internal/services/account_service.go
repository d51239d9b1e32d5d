// Package services – AccountService
//
// AccountService registers and looks up customer accounts. Emails are
// lower-cased before storage so the unique index is case-insensitive in
// practice; a taken email surfaces as *apperr.DuplicateKeyFailure from the
// repository.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-widget-api/internal/domain"
	"github.com/tbourn/go-widget-api/internal/repo"
	"github.com/tbourn/go-widget-api/internal/utils"
)

// AccountRepo defines the repository contract required by AccountService.
type AccountRepo interface {
	CreateAccount(ctx context.Context, db *gorm.DB, name, email string, age int) (*domain.Account, error)
	CountAccounts(ctx context.Context, db *gorm.DB) (int64, error)
	ListAccountsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Account, error)
	GetAccount(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error)
}

// CreateAccountInput is the validated payload for Register.
type CreateAccountInput struct {
	Name  string `validate:"required,max=120"`
	Email string `validate:"required,email,max=254"`
	Age   int    `validate:"gt=0"`
}

// AccountService provides account operations.
type AccountService struct {
	DB              *gorm.DB
	Repo            AccountRepo
	DefaultPageSize int
}

// NewAccountService constructs an AccountService with the default page size.
func NewAccountService(db *gorm.DB, r AccountRepo) *AccountService {
	return &AccountService{DB: db, Repo: r, DefaultPageSize: utils.DefaultPageSize}
}

// Register validates in and creates the account.
func (s *AccountService) Register(ctx context.Context, in CreateAccountInput) (*domain.Account, error) {
	in.Name = normalizeName(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return s.Repo.CreateAccount(ctx, s.DB, in.Name, in.Email, in.Age)
}

// ListPage returns a page of accounts and the total count.
func (s *AccountService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Account, int64, error) {
	win := utils.Page{Number: page, Size: pageSize}.Normalize(s.DefaultPageSize)

	total, err := s.Repo.CountAccounts(ctx, s.DB)
	if err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}
	if total == 0 {
		return []domain.Account{}, 0, nil
	}
	items, err := s.Repo.ListAccountsPage(ctx, s.DB, win.Offset(), win.Size)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	return items, total, nil
}

// Get returns a single account.
func (s *AccountService) Get(ctx context.Context, id string) (*domain.Account, error) {
	a, err := s.Repo.GetAccount(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errAccountNotFound()
	}
	return a, err
}
