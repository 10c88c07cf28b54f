package timeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/surgical-ops/internal/cases"
)

// ErrRecordNotFound is returned when a case has no procedure record yet.
var ErrRecordNotFound = errors.New("procedure record not found")

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists procedure records, one per case.
type Repository struct {
	db DB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("timeline: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db DB) *Repository {
	return &Repository{db: db}
}

// Begin starts a transaction on the underlying pool.
func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

const recordColumns = `case_id, diagnosis, urgency, wheels_in, anesthesia_start, anesthesia_end, incision_time, closure_time, wheels_out, created_at, updated_at`

// FindByCaseID loads the procedure record for a case. Runs inside tx when
// one is given; the tx variant locks the row for the patch span.
func (r *Repository) FindByCaseID(ctx context.Context, tx pgx.Tx, caseID uuid.UUID) (*Record, error) {
	var q rowQuerier = r.db
	query := `SELECT ` + recordColumns + ` FROM procedure_records WHERE case_id = $1`
	if tx != nil {
		q = tx
		query += ` FOR UPDATE`
	}
	var rec Record
	err := q.QueryRow(ctx, query, caseID).Scan(
		&rec.CaseID,
		&rec.Diagnosis,
		&rec.Urgency,
		&rec.WheelsIn,
		&rec.AnesthesiaStart,
		&rec.AnesthesiaEnd,
		&rec.IncisionTime,
		&rec.ClosureTime,
		&rec.WheelsOut,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("timeline: select record: %w", err)
	}
	return &rec, nil
}

// CreateForCase inserts a fresh procedure record inside tx, seeded with the
// case's diagnosis and urgency.
func (r *Repository) CreateForCase(ctx context.Context, tx pgx.Tx, c *cases.SurgicalCase) (*Record, error) {
	query := `
		INSERT INTO procedure_records (case_id, diagnosis, urgency)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`
	rec := Record{CaseID: c.ID, Diagnosis: c.Diagnosis, Urgency: c.Urgency}
	if err := tx.QueryRow(ctx, query, c.ID, c.Diagnosis, c.Urgency).Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, fmt.Errorf("timeline: insert record: %w", err)
	}
	return &rec, nil
}

// UpdateFields persists only the changed fields inside tx. The field enum is
// closed, so interpolating column names is safe.
func (r *Repository) UpdateFields(ctx context.Context, tx pgx.Tx, caseID uuid.UUID, changes []PatchField) error {
	if len(changes) == 0 {
		return nil
	}

	sets := make([]string, 0, len(changes)+1)
	args := make([]any, 0, len(changes)+1)
	args = append(args, caseID)
	for i, ch := range changes {
		sets = append(sets, fmt.Sprintf("%s = $%d", ch.Field, i+2))
		args = append(args, ch.Value)
	}
	sets = append(sets, "updated_at = now()")

	query := fmt.Sprintf(`UPDATE procedure_records SET %s WHERE case_id = $1`, strings.Join(sets, ", "))
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("timeline: update fields: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}
