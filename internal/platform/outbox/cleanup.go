package outbox

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const CleanupSchedule = "@daily"

// Cleanup purges processed events older than the retention window.
type Cleanup struct {
	store     Store
	retention time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

func NewCleanup(store Store, retentionDays int, logger zerolog.Logger) *Cleanup {
	return &Cleanup{
		store:     store,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger.With().Str("component", "outbox-cleanup").Logger(),
		now:       time.Now,
	}
}

func (c *Cleanup) Run(ctx context.Context) (int64, error) {
	n, err := c.store.PurgeProcessed(ctx, c.now().Add(-c.retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		c.logger.Info().Int64("deleted", n).Msg("purged processed outbox events")
	}
	return n, nil
}

// Schedule registers the purge on cr. The caller owns Start and Stop.
func (c *Cleanup) Schedule(cr *cron.Cron) error {
	_, err := cr.AddFunc(CleanupSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := c.Run(ctx); err != nil {
			c.logger.Error().Err(err).Msg("outbox cleanup failed")
		}
	})
	return err
}
