package visit

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sga/sga/internal/platform/apperr"
	"github.com/sga/sga/internal/platform/auth"
	"github.com/sga/sga/internal/platform/db"
)

type Service struct {
	tx              db.TxRunner
	visits          VisitRepository
	administrations AdministrationRepository
	logger          zerolog.Logger
}

func NewService(tx db.TxRunner, visits VisitRepository, admins AdministrationRepository, logger zerolog.Logger) *Service {
	return &Service{tx: tx, visits: visits, administrations: admins, logger: logger}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// MaxDosageLength is the width of the dosagem columns.
const MaxDosageLength = 255

// NormalizeDosage trims a dosage and checks it is present and fits the column.
func NormalizeDosage(field, raw string) (string, error) {
	dosage := strings.TrimSpace(raw)
	if dosage == "" {
		return "", apperr.Validation("%s is required", field)
	}
	if n := utf8.RuneCountInString(dosage); n > MaxDosageLength {
		return "", apperr.Validation("%s must be at most %d characters, got %d", field, MaxDosageLength, n)
	}
	return dosage, nil
}

// CreateVisit records a visit and its administered medications in one
// transaction.
func (s *Service) CreateVisit(ctx context.Context, caller auth.Identity, in CreateInput) (*Visit, error) {
	userID, err := caller.UserID()
	if err != nil {
		return nil, err
	}
	if in.PatientID == uuid.Nil {
		return nil, apperr.Validation("pacienteId is required")
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, apperr.Validation("descricao is required")
	}

	v := &Visit{
		PatientID:   in.PatientID,
		Description: desc,
		Observation: optional(in.Observation),
		Finalized:   in.Finalized,
		CreatedBy:   userID,
	}
	if strings.TrimSpace(in.Temperature) != "" {
		temp, err := ParseTemperature(in.Temperature)
		if err != nil {
			return nil, err
		}
		v.Temperature = &temp
	}

	meds := make([]*MedicationAdministration, 0, len(in.Medications))
	for i, m := range in.Medications {
		if m.MedicationID == uuid.Nil {
			return nil, apperr.Validation("medicamentos[%d].medicamentoId is required", i)
		}
		dosage, err := NormalizeDosage(fmt.Sprintf("medicamentos[%d].dosagem", i), m.Dosage)
		if err != nil {
			return nil, err
		}
		meds = append(meds, &MedicationAdministration{
			MedicationID: m.MedicationID,
			Dosage:       dosage,
			Frequency:    optional(m.Frequency),
			Observation:  optional(m.Observation),
		})
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.visits.Create(ctx, v); err != nil {
			return err
		}
		for _, a := range meds {
			a.VisitID = v.ID
			if err := s.administrations.Create(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	v.Medications = meds

	s.logger.Info().
		Str("visit_id", v.ID.String()).
		Str("patient_id", v.PatientID.String()).
		Int("medications", len(meds)).
		Str("created_by", caller.ID).
		Msg("visit created")
	return v, nil
}

// GetVisit returns the visit with its administered medications.
func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v, err := s.visits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	meds, err := s.administrations.ListByVisit(ctx, id)
	if err != nil {
		return nil, err
	}
	v.Medications = meds
	return v, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	if patientID == uuid.Nil {
		return nil, 0, apperr.Validation("pacienteId is required")
	}
	return s.visits.ListByPatient(ctx, patientID, limit, offset)
}
