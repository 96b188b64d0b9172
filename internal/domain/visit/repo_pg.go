package visit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sga/sga/internal/platform/apperr"
	"github.com/sga/sga/internal/platform/db"
)

// =========== Visit Repository ===========

type visitRepoPG struct{ pool db.Querier }

func NewVisitRepoPG(pool db.Querier) VisitRepository {
	return &visitRepoPG{pool: pool}
}

func (r *visitRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const visitCols = `id, paciente_id, descricao, observacao, finalizado, temperatura, created_by, created_at`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.PatientID, &v.Description, &v.Observation, &v.Finalized,
		&v.Temperature, &v.CreatedBy, &v.CreatedAt)
	return &v, err
}

func (r *visitRepoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO atendimento (id, paciente_id, descricao, observacao, finalizado, temperatura, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,COALESCE($8, NOW()))
		RETURNING created_at`,
		v.ID, v.PatientID, v.Description, v.Observation, v.Finalized, v.Temperature, v.CreatedBy,
		nullTime(v.CreatedAt),
	).Scan(&v.CreatedAt)
	if db.IsForeignKeyViolation(err) {
		return apperr.Validation("pacienteId does not reference an existing patient")
	}
	if err != nil {
		return fmt.Errorf("insert atendimento: %w", err)
	}
	return nil
}

func (r *visitRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v, err := scanVisit(r.conn(ctx).QueryRow(ctx, `SELECT `+visitCols+` FROM atendimento WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("visit not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get atendimento: %w", err)
	}
	return v, nil
}

func (r *visitRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM atendimento WHERE paciente_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count atendimento: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+visitCols+` FROM atendimento
		WHERE paciente_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list atendimento: %w", err)
	}
	defer rows.Close()

	var visits []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		visits = append(visits, v)
	}
	return visits, total, rows.Err()
}

// =========== Administration Repository ===========

type administrationRepoPG struct{ pool db.Querier }

func NewAdministrationRepoPG(pool db.Querier) AdministrationRepository {
	return &administrationRepoPG{pool: pool}
}

func (r *administrationRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *administrationRepoPG) Create(ctx context.Context, a *MedicationAdministration) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medicamento_atendimento (id, atendimento_id, medicamento_id, dosagem, frequencia, observacao)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.VisitID, a.MedicationID, a.Dosage, a.Frequency, a.Observation)
	if db.IsForeignKeyViolation(err) {
		return apperr.Validation("medicamentoId does not reference an existing medication")
	}
	if err != nil {
		return fmt.Errorf("insert medicamento_atendimento: %w", err)
	}
	return nil
}

func (r *administrationRepoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*MedicationAdministration, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, atendimento_id, medicamento_id, dosagem, frequencia, observacao
		FROM medicamento_atendimento WHERE atendimento_id = $1 ORDER BY id`, visitID)
	if err != nil {
		return nil, fmt.Errorf("list medicamento_atendimento: %w", err)
	}
	defer rows.Close()

	var items []*MedicationAdministration
	for rows.Next() {
		var a MedicationAdministration
		if err := rows.Scan(&a.ID, &a.VisitID, &a.MedicationID, &a.Dosage, &a.Frequency, &a.Observation); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
