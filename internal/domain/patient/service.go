package patient

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sga/sga/internal/platform/apperr"
)

type Service struct {
	patients PatientRepository
}

func NewService(patients PatientRepository) *Service {
	return &Service{patients: patients}
}

// apply validates in and copies it onto p.
func apply(p *Patient, in Input) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperr.Validation("nome is required")
	}
	p.Name = name

	p.BirthDate = nil
	if in.BirthDate != "" {
		d, err := time.Parse(dateLayout, in.BirthDate)
		if err != nil {
			return apperr.Validation("dataNascimento must be a date in YYYY-MM-DD format")
		}
		if d.After(time.Now()) {
			return apperr.Validation("dataNascimento cannot be in the future")
		}
		p.BirthDate = &d
	}

	p.CPF = nil
	if strings.TrimSpace(in.CPF) != "" {
		cpf, ok := NormalizeCPF(in.CPF)
		if !ok {
			return apperr.Validation("cpf %q is not valid", in.CPF)
		}
		p.CPF = &cpf
	}

	p.Room = optional(in.Room)
	p.Notes = optional(in.Notes)
	if in.Active != nil {
		p.Active = *in.Active
	}
	return nil
}

func (s *Service) CreatePatient(ctx context.Context, in Input) (*Patient, error) {
	p := &Patient{Active: true}
	if err := apply(p, in); err != nil {
		return nil, err
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, in Input) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(p, in); err != nil {
		return nil, err
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListPatients(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, strings.TrimSpace(name), limit, offset)
}
