// Package agenda turns prescriptions into a medication schedule and records
// the administrations that complete it.
package agenda

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusDone      Status = "DONE"
	StatusCancelled Status = "CANCELLED"
)

// Prescription maps to the prescricao table. It is immutable once created.
type Prescription struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"paciente_id" json:"pacienteId"`
	MedicationID   uuid.UUID  `db:"medicamento_id" json:"medicamentoId"`
	Dosage         string     `db:"dosagem" json:"dosagem"`
	FrequencyHours int        `db:"frequencia_horas" json:"frequenciaHoras"`
	Start          time.Time  `db:"data_inicio" json:"dataInicio"`
	End            *time.Time `db:"data_fim" json:"dataFim,omitempty"`
	CreatedBy      uuid.UUID  `db:"created_by" json:"createdBy"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`

	Events []*ScheduleEvent `json:"itens,omitempty"`
}

// ScheduleEvent maps to agenda_item: one planned administration. The
// completion fields are set together when the event becomes DONE.
type ScheduleEvent struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PrescriptionID uuid.UUID  `db:"prescricao_id" json:"prescricaoId"`
	PlannedAt      time.Time  `db:"data_prevista" json:"dataPrevista"`
	Status         Status     `db:"status" json:"status"`
	CompletedAt    *time.Time `db:"realizado_em" json:"realizadoEm,omitempty"`
	CompletedBy    *uuid.UUID `db:"realizado_por" json:"realizadoPor,omitempty"`
	VisitID        *uuid.UUID `db:"atendimento_id" json:"atendimentoId,omitempty"`
}

// DayEntry is a schedule event joined with what the ward needs to act on it.
type DayEntry struct {
	ScheduleEvent

	PatientID      uuid.UUID `json:"pacienteId"`
	PatientName    string    `json:"pacienteNome"`
	MedicationID   uuid.UUID `json:"medicamentoId"`
	MedicationName string    `json:"medicamentoDescricao"`
	Dosage         string    `json:"dosagem"`
	FrequencyHours int       `json:"frequenciaHoras"`
}

// PrescriptionInput is the body of POST /agenda/prescricoes. Timestamps are
// RFC 3339, or local date-times ("2024-03-01T08:00") read in the clinic time
// zone.
type PrescriptionInput struct {
	PatientID      uuid.UUID `json:"pacienteId"`
	MedicationID   uuid.UUID `json:"medicamentoId"`
	Dosage         string    `json:"dosagem"`
	FrequencyHours int       `json:"frequenciaHoras"`
	Start          string    `json:"dataInicio"`
	End            string    `json:"dataFim"`
}

// CompletionInput is the body of POST /agenda/baixa.
type CompletionInput struct {
	EventID     uuid.UUID   `json:"itemAgendaId"`
	Temperature Measurement `json:"temperatura"`
}

// Measurement accepts a reading sent either as a JSON string ("36,5") or a
// JSON number (36.5) and keeps it as text.
type Measurement string

func (m *Measurement) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*m = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = Measurement(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*m = Measurement(n.String())
	return nil
}
