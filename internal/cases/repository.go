package cases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// querier is satisfied by both DB and pgx.Tx, so reads can run inside or
// outside a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides persistence for surgical cases and their plans.
type Repository struct {
	db DB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("cases: pgx pool required")
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

const caseColumns = `id, patient_id, surgeon_id, status, urgency, diagnosis, procedure_name, created_at, updated_at`

// FindByID loads a surgical case.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*SurgicalCase, error) {
	query := `SELECT ` + caseColumns + ` FROM surgical_cases WHERE id = $1`
	return scanCase(r.db.QueryRow(ctx, query, id))
}

// FindByIDForUpdate loads a surgical case inside tx with a row lock held for
// the remainder of the transaction, serializing the validate+write span
// against concurrent transitions on the same case.
func (r *Repository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*SurgicalCase, error) {
	query := `SELECT ` + caseColumns + ` FROM surgical_cases WHERE id = $1 FOR UPDATE`
	return scanCase(tx.QueryRow(ctx, query, id))
}

// UpdateStatus persists a new case status inside tx.
func (r *Repository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status Status) (time.Time, error) {
	query := `
		UPDATE surgical_cases
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	var updatedAt time.Time
	if err := tx.QueryRow(ctx, query, id, status).Scan(&updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrCaseNotFound
		}
		return time.Time{}, fmt.Errorf("cases: update status: %w", err)
	}
	return updatedAt, nil
}

// FindPlanByCaseID loads the active case plan for a case, with image and
// signed-consent counts attached. Runs inside tx when one is given.
func (r *Repository) FindPlanByCaseID(ctx context.Context, tx pgx.Tx, caseID uuid.UUID) (*CasePlan, error) {
	var q querier = r.db
	if tx != nil {
		q = tx
	}
	query := `
		SELECT p.id, p.surgical_case_id, p.procedure_plan, p.risk_factors, p.preop_notes,
		       (SELECT COUNT(*) FROM case_plan_images i WHERE i.plan_id = p.id) AS image_count,
		       (SELECT COUNT(*) FROM case_plan_consents c WHERE c.plan_id = p.id AND c.signed_at IS NOT NULL) AS signed_consent_count,
		       p.created_at, p.updated_at
		FROM case_plans p
		WHERE p.surgical_case_id = $1
	`
	var plan CasePlan
	err := q.QueryRow(ctx, query, caseID).Scan(
		&plan.ID,
		&plan.SurgicalCaseID,
		&plan.ProcedurePlan,
		&plan.RiskFactors,
		&plan.PreOpNotes,
		&plan.ImageCount,
		&plan.SignedConsents,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("cases: select plan: %w", err)
	}
	return &plan, nil
}

func scanCase(row pgx.Row) (*SurgicalCase, error) {
	var c SurgicalCase
	err := row.Scan(
		&c.ID,
		&c.PatientID,
		&c.SurgeonID,
		&c.Status,
		&c.Urgency,
		&c.Diagnosis,
		&c.ProcedureName,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCaseNotFound
		}
		return nil, fmt.Errorf("cases: select case: %w", err)
	}
	return &c, nil
}
