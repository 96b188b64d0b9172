package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sga/sga/internal/platform/db"
)

// Recorder inserts outbox events. Called with a context from db.TxRunner.InTx
// the insert joins that transaction.
type Recorder struct {
	pool db.Querier
}

func NewRecorder(pool db.Querier) *Recorder {
	return &Recorder{pool: pool}
}

func (r *Recorder) Record(ctx context.Context, m Message) error {
	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", m.EventType, err)
	}
	_, err = db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, event_type, payload)
		VALUES ($1, $2, $3, $4)`,
		m.AggregateType, m.AggregateID, m.EventType, payload)
	if err != nil {
		return fmt.Errorf("insert outbox event %s: %w", m.EventType, err)
	}
	return nil
}

// Store is the relay's view of outbox_events.
type Store interface {
	FetchPending(ctx context.Context, maxRetries, limit int) ([]Event, error)
	MarkProcessed(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, msg string) error
	PurgeProcessed(ctx context.Context, before time.Time) (int64, error)
	PendingCount(ctx context.Context) (int, error)
}

type storePG struct {
	pool db.Querier
}

func NewStorePG(pool db.Querier) Store {
	return &storePG{pool: pool}
}

func (s *storePG) FetchPending(ctx context.Context, maxRetries, limit int) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload,
		       created_at, processed_at, error_message, retry_count
		FROM outbox_events
		WHERE processed_at IS NULL AND retry_count < $1
		ORDER BY created_at, id
		LIMIT $2`, maxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload,
			&e.CreatedAt, &e.ProcessedAt, &e.ErrorMessage, &e.RetryCount); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *storePG) MarkProcessed(ctx context.Context, id int64, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE outbox_events SET processed_at = $1, error_message = NULL WHERE id = $2`, at, id)
	return err
}

func (s *storePG) MarkFailed(ctx context.Context, id int64, msg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE outbox_events SET retry_count = retry_count + 1, error_message = $1 WHERE id = $2`, msg, id)
	return err
}

func (s *storePG) PurgeProcessed(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM outbox_events WHERE processed_at IS NOT NULL AND processed_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *storePG) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_events WHERE processed_at IS NULL`).Scan(&n)
	return n, err
}
