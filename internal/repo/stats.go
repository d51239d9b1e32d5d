package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-widget-api/internal/domain"
)

// WidgetsStats feeds the list ETag: the number of live widgets and the
// newest UpdatedAt among them (nil when there are none).
func WidgetsStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	var count int64
	live := db.WithContext(ctx).Model(&domain.Widget{})
	if err := live.Count(&count).Error; err != nil || count == 0 {
		return 0, nil, err
	}

	// MAX(updated_at) comes back as TEXT from SQLite, so read the newest row.
	var newest domain.Widget
	err := db.WithContext(ctx).Select("updated_at").Order("updated_at DESC").Take(&newest).Error
	if err != nil {
		return 0, nil, err
	}
	return count, &newest.UpdatedAt, nil
}

// PurgeDeleted permanently removes widgets and accounts soft-deleted before
// cutoff and returns the number of rows removed.
func PurgeDeleted(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&domain.Widget{}, &domain.Account{}} {
			res := tx.Unscoped().Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).Delete(model)
			if res.Error != nil {
				return res.Error
			}
			total += res.RowsAffected
		}
		return nil
	})
	return total, err
}
