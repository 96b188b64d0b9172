package outbox

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultBatchSize    = 100
	DefaultMaxRetries   = 5
)

// Relay polls outbox_events and publishes unprocessed rows in creation order.
// A failed publish increments retry_count; rows at MaxRetries are left for
// an operator.
type Relay struct {
	store     Store
	publisher Publisher
	logger    zerolog.Logger

	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int

	now func() time.Time
}

func NewRelay(store Store, publisher Publisher, logger zerolog.Logger) *Relay {
	return &Relay{
		store:        store,
		publisher:    publisher,
		logger:       logger.With().Str("component", "outbox-relay").Logger(),
		PollInterval: DefaultPollInterval,
		BatchSize:    DefaultBatchSize,
		MaxRetries:   DefaultMaxRetries,
		now:          time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info().Dur("poll_interval", r.PollInterval).Msg("outbox relay started")

	ticker := time.NewTicker(r.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("outbox relay stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.ProcessPending(ctx); err != nil {
				r.logger.Error().Err(err).Msg("process pending outbox events")
			}
		}
	}
}

// ProcessPending publishes one batch and returns how many events were
// published.
func (r *Relay) ProcessPending(ctx context.Context) (int, error) {
	events, err := r.store.FetchPending(ctx, r.MaxRetries, r.BatchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, e := range events {
		if err := r.publisher.Publish(ctx, e); err != nil {
			r.logger.Warn().Err(err).
				Int64("event_id", e.ID).
				Str("event_type", e.EventType).
				Int("retry_count", e.RetryCount+1).
				Msg("outbox publish failed")
			if mErr := r.store.MarkFailed(ctx, e.ID, err.Error()); mErr != nil {
				r.logger.Error().Err(mErr).Int64("event_id", e.ID).Msg("mark outbox event failed")
			}
			continue
		}
		if err := r.store.MarkProcessed(ctx, e.ID, r.now()); err != nil {
			return published, err
		}
		published++
	}

	if published > 0 {
		r.logger.Debug().Int("published", published).Msg("outbox batch published")
	}
	return published, nil
}
