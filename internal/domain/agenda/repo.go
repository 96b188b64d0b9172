package agenda

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error)
}

type EventRepository interface {
	// CreateBatch inserts all events in one round trip.
	CreateBatch(ctx context.Context, events []*ScheduleEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*ScheduleEvent, error)
	// MarkDone moves a PENDING event to DONE. It reports false, without
	// error, when the event was no longer PENDING.
	MarkDone(ctx context.Context, id uuid.UUID, at time.Time, by, visitID uuid.UUID) (bool, error)
	ListByPrescription(ctx context.Context, prescriptionID uuid.UUID) ([]*ScheduleEvent, error)
	// ListBetween returns non-cancelled events planned in [from, to), ordered
	// by planned time.
	ListBetween(ctx context.Context, from, to time.Time) ([]*DayEntry, error)
}
