// Package outbox implements the transactional outbox: domain writes record an
// event in the same transaction, and a relay publishes it to Kafka later.
package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Event is a row of outbox_events.
type Event struct {
	ID            int64
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	ProcessedAt   *time.Time
	ErrorMessage  *string
	RetryCount    int
}

// Key is the partition key for the event; events of one aggregate stay ordered.
func (e Event) Key() string {
	return e.AggregateType + "-" + e.AggregateID.String()
}

// Message is what a domain service hands to the Recorder.
type Message struct {
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       interface{}
}
