package agenda

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sga/sga/internal/platform/apperr"
	"github.com/sga/sga/internal/platform/db"
)

// =========== Prescription Repository ===========

type prescriptionRepoPG struct{ pool db.Querier }

func NewPrescriptionRepoPG(pool db.Querier) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

func (r *prescriptionRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const prescriptionCols = `id, paciente_id, medicamento_id, dosagem, frequencia_horas, data_inicio, data_fim, created_by, created_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.PatientID, &p.MedicationID, &p.Dosage, &p.FrequencyHours,
		&p.Start, &p.End, &p.CreatedBy, &p.CreatedAt)
	return &p, err
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescricao (id, paciente_id, medicamento_id, dosagem, frequencia_horas, data_inicio, data_fim, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		p.ID, p.PatientID, p.MedicationID, p.Dosage, p.FrequencyHours, p.Start, p.End, p.CreatedBy,
	).Scan(&p.CreatedAt)
	if db.IsForeignKeyViolation(err) {
		return apperr.Validation("pacienteId and medicamentoId must reference existing records")
	}
	if err != nil {
		return fmt.Errorf("insert prescricao: %w", err)
	}
	return nil
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := scanPrescription(r.conn(ctx).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescricao WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("prescription not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get prescricao: %w", err)
	}
	return p, nil
}

func (r *prescriptionRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+prescriptionCols+` FROM prescricao
		WHERE paciente_id = $1 ORDER BY data_inicio DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list prescricao: %w", err)
	}
	defer rows.Close()

	var out []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prescricao: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// =========== Schedule Event Repository ===========

type eventRepoPG struct{ pool db.Querier }

func NewEventRepoPG(pool db.Querier) EventRepository {
	return &eventRepoPG{pool: pool}
}

func (r *eventRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const eventCols = `id, prescricao_id, data_prevista, status, realizado_em, realizado_por, atendimento_id`

func scanEvent(row pgx.Row) (*ScheduleEvent, error) {
	var e ScheduleEvent
	err := row.Scan(&e.ID, &e.PrescriptionID, &e.PlannedAt, &e.Status,
		&e.CompletedAt, &e.CompletedBy, &e.VisitID)
	return &e, err
}

func (r *eventRepoPG) CreateBatch(ctx context.Context, events []*ScheduleEvent) error {
	if len(events) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, e := range events {
		e.ID = uuid.New()
		b.Queue(`INSERT INTO agenda_item (id, prescricao_id, data_prevista, status) VALUES ($1,$2,$3,$4)`,
			e.ID, e.PrescriptionID, e.PlannedAt, e.Status)
	}

	br := r.conn(ctx).SendBatch(ctx, b)
	for i := range events {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert agenda_item %d of %d: %w", i+1, len(events), err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("insert agenda_item batch: %w", err)
	}
	return nil
}

func (r *eventRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ScheduleEvent, error) {
	e, err := scanEvent(r.conn(ctx).QueryRow(ctx, `SELECT `+eventCols+` FROM agenda_item WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("schedule item not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get agenda_item: %w", err)
	}
	return e, nil
}

func (r *eventRepoPG) MarkDone(ctx context.Context, id uuid.UUID, at time.Time, by, visitID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE agenda_item
		SET status = 'DONE', realizado_em = $2, realizado_por = $3, atendimento_id = $4
		WHERE id = $1 AND status = 'PENDING'`,
		id, at, by, visitID)
	if err != nil {
		return false, fmt.Errorf("complete agenda_item: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *eventRepoPG) ListByPrescription(ctx context.Context, prescriptionID uuid.UUID) ([]*ScheduleEvent, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+eventCols+` FROM agenda_item
		WHERE prescricao_id = $1 ORDER BY data_prevista`, prescriptionID)
	if err != nil {
		return nil, fmt.Errorf("list agenda_item: %w", err)
	}
	defer rows.Close()

	var out []*ScheduleEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agenda_item: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *eventRepoPG) ListBetween(ctx context.Context, from, to time.Time) ([]*DayEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.prescricao_id, a.data_prevista, a.status, a.realizado_em, a.realizado_por, a.atendimento_id,
		       p.paciente_id, pa.nome, p.medicamento_id, m.descricao, p.dosagem, p.frequencia_horas
		FROM agenda_item a
		JOIN prescricao p ON p.id = a.prescricao_id
		JOIN paciente pa ON pa.id = p.paciente_id
		JOIN medicamento m ON m.id = p.medicamento_id
		WHERE a.data_prevista >= $1 AND a.data_prevista < $2 AND a.status <> 'CANCELLED'
		ORDER BY a.data_prevista, a.id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list agenda day: %w", err)
	}
	defer rows.Close()

	var out []*DayEntry
	for rows.Next() {
		var d DayEntry
		if err := rows.Scan(&d.ID, &d.PrescriptionID, &d.PlannedAt, &d.Status,
			&d.CompletedAt, &d.CompletedBy, &d.VisitID,
			&d.PatientID, &d.PatientName, &d.MedicationID, &d.MedicationName, &d.Dosage, &d.FrequencyHours,
		); err != nil {
			return nil, fmt.Errorf("scan agenda day: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
