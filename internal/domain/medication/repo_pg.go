package medication

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sga/sga/internal/platform/apperr"
	"github.com/sga/sga/internal/platform/db"
)

type medicationRepoPG struct{ pool db.Querier }

func NewMedicationRepoPG(pool db.Querier) MedicationRepository {
	return &medicationRepoPG{pool: pool}
}

func (r *medicationRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const medCols = `id, descricao, apresentacao, ativo, created_at, updated_at`

func (r *medicationRepoPG) scanMed(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.Description, &m.Presentation, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *medicationRepoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medicamento (id, descricao, apresentacao, ativo)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		m.ID, m.Description, m.Presentation, m.Active,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert medicamento: %w", err)
	}
	return nil
}

func (r *medicationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	m, err := r.scanMed(r.conn(ctx).QueryRow(ctx, `SELECT `+medCols+` FROM medicamento WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("medication not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get medicamento: %w", err)
	}
	return m, nil
}

func (r *medicationRepoPG) Update(ctx context.Context, m *Medication) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE medicamento SET descricao=$2, apresentacao=$3, ativo=$4, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		m.ID, m.Description, m.Presentation, m.Active,
	).Scan(&m.UpdatedAt)
	if db.IsNoRows(err) {
		return apperr.NotFound("medication not found")
	}
	if err != nil {
		return fmt.Errorf("update medicamento: %w", err)
	}
	return nil
}

func (r *medicationRepoPG) List(ctx context.Context, search string, activeOnly bool, limit, offset int) ([]*Medication, int, error) {
	var conds []string
	var args []interface{}
	if search != "" {
		args = append(args, "%"+search+"%")
		conds = append(conds, fmt.Sprintf("descricao ILIKE $%d", len(args)))
	}
	if activeOnly {
		conds = append(conds, "ativo")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medicamento`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count medicamento: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM medicamento%s ORDER BY descricao LIMIT $%d OFFSET $%d`,
			medCols, where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list medicamento: %w", err)
	}
	defer rows.Close()

	var items []*Medication
	for rows.Next() {
		m, err := r.scanMed(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}
