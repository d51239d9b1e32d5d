// Package domain defines the persistence models for the widget catalog.
// These types are mapped with GORM and form the core data layer of the API.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Widget is a catalog item. Names are unique among live widgets (a partial
// unique index skips soft-deleted rows), prices are positive and stock never
// goes negative.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name: display name, unique while not deleted (ux_widgets_name).
//   - Price: unit price, > 0 (DB check constraint).
//   - Stock: units on hand, >= 0 (DB check constraint).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker; purged later by the janitor.
type Widget struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name"       gorm:"type:varchar(120);not null;uniqueIndex:ux_widgets_name,where:deleted_at IS NULL"`
	Price     float64        `json:"price"      gorm:"not null;check:price > 0"`
	Stock     int            `json:"stock"      gorm:"not null;default:0;check:stock >= 0"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Widget.
func (Widget) TableName() string { return "widgets" }

// Account is a customer account. Email addresses are unique among live
// accounts.
type Account struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name"       gorm:"type:varchar(120);not null"`
	Email     string         `json:"email"      gorm:"type:varchar(254);not null;uniqueIndex:ux_accounts_email,where:deleted_at IS NULL"`
	Age       int            `json:"age"        gorm:"not null;check:age > 0"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }
