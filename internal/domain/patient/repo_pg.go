package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sga/sga/internal/platform/apperr"
	"github.com/sga/sga/internal/platform/db"
)

type patientRepoPG struct{ pool db.Querier }

func NewPatientRepoPG(pool db.Querier) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientCols = `id, nome, data_nascimento, cpf, quarto, observacoes, ativo, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.BirthDate, &p.CPF, &p.Room, &p.Notes, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO paciente (id, nome, data_nascimento, cpf, quarto, observacoes, ativo)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.BirthDate, p.CPF, p.Room, p.Notes, p.Active,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("a patient with this CPF already exists")
	}
	if err != nil {
		return fmt.Errorf("insert paciente: %w", err)
	}
	return nil
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM paciente WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("patient not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get paciente: %w", err)
	}
	return p, nil
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE paciente SET nome=$2, data_nascimento=$3, cpf=$4, quarto=$5, observacoes=$6, ativo=$7,
			updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.BirthDate, p.CPF, p.Room, p.Notes, p.Active,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	switch {
	case db.IsNoRows(err):
		return apperr.NotFound("patient not found")
	case db.IsUniqueViolation(err):
		return apperr.Conflict("a patient with this CPF already exists")
	case err != nil:
		return fmt.Errorf("update paciente: %w", err)
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	where := ""
	args := []interface{}{}
	if name != "" {
		where = ` WHERE nome ILIKE $1`
		args = append(args, "%"+name+"%")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM paciente`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count paciente: %w", err)
	}

	n := len(args)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM paciente%s ORDER BY nome LIMIT $%d OFFSET $%d`, patientCols, where, n+1, n+2),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list paciente: %w", err)
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}
