package visit

import (
	"context"

	"github.com/google/uuid"
)

type VisitRepository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error)
}

type AdministrationRepository interface {
	Create(ctx context.Context, a *MedicationAdministration) error
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*MedicationAdministration, error)
}
