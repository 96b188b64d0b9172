package medication

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/sga/sga/internal/platform/apperr"
)

type Service struct {
	medications MedicationRepository
}

func NewService(meds MedicationRepository) *Service {
	return &Service{medications: meds}
}

func apply(m *Medication, in Input) error {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return apperr.Validation("descricao is required")
	}
	m.Description = desc
	m.Presentation = nil
	if p := strings.TrimSpace(in.Presentation); p != "" {
		m.Presentation = &p
	}
	if in.Active != nil {
		m.Active = *in.Active
	}
	return nil
}

func (s *Service) CreateMedication(ctx context.Context, in Input) (*Medication, error) {
	m := &Medication{Active: true}
	if err := apply(m, in); err != nil {
		return nil, err
	}
	if err := s.medications.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return s.medications.GetByID(ctx, id)
}

func (s *Service) UpdateMedication(ctx context.Context, id uuid.UUID, in Input) (*Medication, error) {
	m, err := s.medications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(m, in); err != nil {
		return nil, err
	}
	if err := s.medications.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) ListMedications(ctx context.Context, search string, activeOnly bool, limit, offset int) ([]*Medication, int, error) {
	return s.medications.List(ctx, strings.TrimSpace(search), activeOnly, limit, offset)
}
