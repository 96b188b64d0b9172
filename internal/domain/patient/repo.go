package patient

import (
	"context"

	"github.com/google/uuid"
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	// List filters by a case-insensitive name fragment when name is not empty.
	List(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error)
}
