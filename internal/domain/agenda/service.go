package agenda

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sga/sga/internal/domain/visit"
	"github.com/sga/sga/internal/platform/apperr"
	"github.com/sga/sga/internal/platform/auth"
	"github.com/sga/sga/internal/platform/db"
	"github.com/sga/sga/internal/platform/outbox"
)

const (
	VisitDescription       = "Medicação administrada via agenda"
	administrationNote     = "Baixa registrada pela agenda com aferição de temperatura"
	aggregatePrescription  = "prescricao"
	aggregateScheduleEvent = "agenda_item"

	EventPrescriptionCreated = "agenda.prescription_created"
	EventItemCompleted       = "agenda.item_completed"
)

// EventRecorder stores integration events in the caller's transaction.
// *outbox.Recorder implements it.
type EventRecorder interface {
	Record(ctx context.Context, m outbox.Message) error
}

// Stores groups the repositories the agenda writes through.
type Stores struct {
	Prescriptions   PrescriptionRepository
	Events          EventRepository
	Visits          visit.VisitRepository
	Administrations visit.AdministrationRepository
}

type Service struct {
	tx       db.TxRunner
	stores   Stores
	recorder EventRecorder
	loc      *time.Location
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService returns the agenda service. loc sets the calendar day used by
// ListDay and the zone of local date-times in prescriptions.
func NewService(tx db.TxRunner, stores Stores, recorder EventRecorder, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		tx:       tx,
		stores:   stores,
		recorder: recorder,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func (s *Service) parseTimestamp(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, s.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validation("%s %q is not a valid date-time", field, raw)
}

// CreatePrescription stores a prescription and its full schedule in one
// transaction. Only physicians and administrators may prescribe.
func (s *Service) CreatePrescription(ctx context.Context, caller auth.Identity, in PrescriptionInput) (*Prescription, error) {
	if err := auth.CheckRole(caller, auth.RolePhysician, auth.RoleAdmin); err != nil {
		return nil, err
	}
	userID, err := caller.UserID()
	if err != nil {
		return nil, err
	}

	switch {
	case in.PatientID == uuid.Nil:
		return nil, apperr.Validation("pacienteId is required")
	case in.MedicationID == uuid.Nil:
		return nil, apperr.Validation("medicamentoId is required")
	case in.FrequencyHours == 0:
		return nil, apperr.Validation("frequenciaHoras is required")
	case strings.TrimSpace(in.Start) == "":
		return nil, apperr.Validation("dataInicio is required")
	}

	dosage, err := visit.NormalizeDosage("dosagem", in.Dosage)
	if err != nil {
		return nil, err
	}

	start, err := s.parseTimestamp("dataInicio", in.Start)
	if err != nil {
		return nil, err
	}
	var end *time.Time
	if strings.TrimSpace(in.End) != "" {
		t, err := s.parseTimestamp("dataFim", in.End)
		if err != nil {
			return nil, err
		}
		end = &t
	}

	times, err := GenerateSchedule(start, end, in.FrequencyHours)
	if err != nil {
		return nil, err
	}

	p := &Prescription{
		PatientID:      in.PatientID,
		MedicationID:   in.MedicationID,
		Dosage:         dosage,
		FrequencyHours: in.FrequencyHours,
		Start:          start,
		End:            end,
		CreatedBy:      userID,
	}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.stores.Prescriptions.Create(ctx, p); err != nil {
			return err
		}
		events := newEvents(p, times)
		if len(events) > 0 {
			if err := s.stores.Events.CreateBatch(ctx, events); err != nil {
				return err
			}
		}
		p.Events = events
		return s.recorder.Record(ctx, outbox.Message{
			AggregateType: aggregatePrescription,
			AggregateID:   p.ID,
			EventType:     EventPrescriptionCreated,
			Payload: map[string]interface{}{
				"prescricaoId":    p.ID,
				"pacienteId":      p.PatientID,
				"medicamentoId":   p.MedicationID,
				"frequenciaHoras": p.FrequencyHours,
				"itens":           len(events),
			},
		})
	})
	if err != nil {
		p.Events = nil
		return nil, err
	}

	s.logger.Info().
		Str("prescription_id", p.ID.String()).
		Str("patient_id", p.PatientID.String()).
		Int("events", len(p.Events)).
		Str("created_by", caller.ID).
		Msg("prescription created")
	return p, nil
}

// GetPrescription returns a prescription with its schedule.
func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := s.stores.Prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Events, err = s.stores.Events.ListByPrescription(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListPrescriptionsByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	if patientID == uuid.Nil {
		return nil, apperr.Validation("pacienteId is required")
	}
	return s.stores.Prescriptions.ListByPatient(ctx, patientID)
}

// Completion is the outcome of recording an administration.
type Completion struct {
	Event          *ScheduleEvent
	Visit          *visit.Visit
	Administration *visit.MedicationAdministration
}

var errAlreadyCompleted = apperr.Conflict("schedule item already completed")

// RecordAdministration completes a pending schedule event. The visit, the
// administration and the status change commit together; a concurrent
// completion of the same event loses with a conflict.
func (s *Service) RecordAdministration(ctx context.Context, caller auth.Identity, in CompletionInput) (*Completion, error) {
	userID, err := caller.UserID()
	if err != nil {
		return nil, err
	}
	if in.EventID == uuid.Nil {
		return nil, apperr.Validation("itemAgendaId is required")
	}
	temp, err := visit.ParseTemperature(string(in.Temperature))
	if err != nil {
		return nil, err
	}

	var out Completion
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		ev, err := s.stores.Events.GetByID(ctx, in.EventID)
		if err != nil {
			return err
		}
		switch ev.Status {
		case StatusPending:
		case StatusCancelled:
			return apperr.Conflict("schedule item is cancelled")
		default:
			return errAlreadyCompleted
		}
		p, err := s.stores.Prescriptions.GetByID(ctx, ev.PrescriptionID)
		if err != nil {
			return err
		}

		now := s.now()
		observation := "Temperatura aferida: " + visit.FormatTemperature(temp)
		v := &visit.Visit{
			PatientID:   p.PatientID,
			Description: VisitDescription,
			Observation: &observation,
			Finalized:   true,
			Temperature: &temp,
			CreatedBy:   userID,
			CreatedAt:   now,
		}
		if err := s.stores.Visits.Create(ctx, v); err != nil {
			return err
		}

		frequency := fmt.Sprintf("A cada %d horas", p.FrequencyHours)
		note := administrationNote
		a := &visit.MedicationAdministration{
			VisitID:      v.ID,
			MedicationID: p.MedicationID,
			Dosage:       p.Dosage,
			Frequency:    &frequency,
			Observation:  &note,
		}
		if err := s.stores.Administrations.Create(ctx, a); err != nil {
			return err
		}

		ok, err := s.stores.Events.MarkDone(ctx, ev.ID, now, userID, v.ID)
		if err != nil {
			return err
		}
		if !ok {
			return errAlreadyCompleted
		}
		ev.Status = StatusDone
		ev.CompletedAt = &now
		ev.CompletedBy = &userID
		ev.VisitID = &v.ID
		v.Medications = []*visit.MedicationAdministration{a}

		out = Completion{Event: ev, Visit: v, Administration: a}
		return s.recorder.Record(ctx, outbox.Message{
			AggregateType: aggregateScheduleEvent,
			AggregateID:   ev.ID,
			EventType:     EventItemCompleted,
			Payload: map[string]interface{}{
				"itemAgendaId":  ev.ID,
				"prescricaoId":  p.ID,
				"pacienteId":    p.PatientID,
				"medicamentoId": p.MedicationID,
				"atendimentoId": v.ID,
				"temperatura":   temp,
				"realizadoPor":  userID,
				"realizadoEm":   now,
			},
		})
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			s.logger.Warn().Str("event_id", in.EventID.String()).Str("user_id", caller.ID).Msg("schedule item completion rejected")
		}
		return nil, err
	}

	s.logger.Info().
		Str("event_id", out.Event.ID.String()).
		Str("visit_id", out.Visit.ID.String()).
		Str("completed_by", caller.ID).
		Msg("schedule item completed")
	return &out, nil
}

// DayWindow returns the half-open interval [midnight, next midnight) of the
// calendar day in loc.
func DayWindow(day time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := day.In(loc).Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return from, time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// ListDay returns the non-cancelled events of a calendar day in the clinic
// time zone. An empty day means today.
func (s *Service) ListDay(ctx context.Context, day string) ([]*DayEntry, error) {
	ref := s.now()
	if day = strings.TrimSpace(day); day != "" {
		t, err := time.ParseInLocation("2006-01-02", day, s.loc)
		if err != nil {
			return nil, apperr.Validation("data %q must be formatted as YYYY-MM-DD", day)
		}
		ref = t
	}
	from, to := DayWindow(ref, s.loc)
	return s.stores.Events.ListBetween(ctx, from, to)
}
