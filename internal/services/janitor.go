// Package services – Janitor
//
// Janitor periodically hard-deletes rows that were soft-deleted longer ago
// than the retention window. It is meant to run under the process
// supervisor: Run only returns on context cancellation (nil) or on a purge
// failure, which the supervisor treats as fatal.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-widget-api/internal/repo"
)

// Janitor purges soft-deleted rows on a fixed interval.
type Janitor struct {
	DB *gorm.DB
	// Interval between purges.
	Interval time.Duration
	// RetainFor is how long soft-deleted rows are kept.
	RetainFor time.Duration
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Run purges once immediately and then every Interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	if err := j.purge(ctx); err != nil {
		return err
	}

	t := time.NewTicker(j.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := j.purge(ctx); err != nil {
				return err
			}
		}
	}
}

func (j *Janitor) purge(ctx context.Context) error {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	n, err := repo.PurgeDeleted(ctx, j.DB, now().UTC().Add(-j.RetainFor))
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("purge soft-deleted rows: %w", err)
	}
	if n > 0 {
		log.Info().Int64("rows", n).Msg("janitor purged soft-deleted rows")
	}
	return nil
}
