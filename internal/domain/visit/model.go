package visit

import (
	"time"

	"github.com/google/uuid"
)

// Visit maps to the atendimento table: one care encounter with a patient.
type Visit struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"paciente_id" json:"pacienteId"`
	Description string    `db:"descricao" json:"descricao"`
	Observation *string   `db:"observacao" json:"observacao,omitempty"`
	Finalized   bool      `db:"finalizado" json:"finalizado"`
	Temperature *float64  `db:"temperatura" json:"temperatura,omitempty"`
	CreatedBy   uuid.UUID `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`

	Medications []*MedicationAdministration `json:"medicamentos,omitempty"`
}

// MedicationAdministration maps to medicamento_atendimento: a medication
// given during a visit.
type MedicationAdministration struct {
	ID           uuid.UUID `db:"id" json:"id"`
	VisitID      uuid.UUID `db:"atendimento_id" json:"atendimentoId"`
	MedicationID uuid.UUID `db:"medicamento_id" json:"medicamentoId"`
	Dosage       string    `db:"dosagem" json:"dosagem"`
	Frequency    *string   `db:"frequencia" json:"frequencia,omitempty"`
	Observation  *string   `db:"observacao" json:"observacao,omitempty"`
}

type MedicationInput struct {
	MedicationID uuid.UUID `json:"medicamentoId"`
	Dosage       string    `json:"dosagem"`
	Frequency    string    `json:"frequencia"`
	Observation  string    `json:"observacao"`
}

// CreateInput is the body of POST /atendimentos. Temperature is text so that
// both "36,5" and "36.5" are accepted.
type CreateInput struct {
	PatientID   uuid.UUID         `json:"pacienteId"`
	Description string            `json:"descricao"`
	Observation string            `json:"observacao"`
	Finalized   bool              `json:"finalizado"`
	Temperature string            `json:"temperatura"`
	Medications []MedicationInput `json:"medicamentos"`
}
