package checklist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/surgical-ops/internal/audit"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// phaseColumns maps each phase to its column prefix in case_checklists.
// The phase enum is closed, so interpolating the prefix is safe.
var phaseColumns = map[Phase]string{
	PhaseSignIn:  "sign_in",
	PhaseTimeOut: "time_out",
	PhaseSignOut: "sign_out",
}

// Repository persists per-case checklists as a single row with one column
// group per phase.
type Repository struct {
	db DB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("checklist: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db DB) *Repository {
	return &Repository{db: db}
}

// CompletePhase finalizes a phase. Completion is idempotent at the storage
// level: if the phase already has a completion timestamp, neither the
// timestamp nor the stored items change, and the original values are
// returned.
func (r *Repository) CompletePhase(ctx context.Context, caseID uuid.UUID, phase Phase, items []ItemConfirmation, actor audit.Actor, completedAt time.Time) (*PhaseStatus, error) {
	col, ok := phaseColumns[phase]
	if !ok {
		return nil, fmt.Errorf("checklist: unknown phase %q", phase)
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("checklist: marshal items: %w", err)
	}

	// The ON CONFLICT branch only overwrites the phase columns while the
	// phase is still open; a completed phase keeps its original values.
	query := fmt.Sprintf(`
		INSERT INTO case_checklists (case_id, %[1]s_items, %[1]s_completed_at, %[1]s_completed_by_id, %[1]s_completed_by_role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (case_id) DO UPDATE SET
			%[1]s_items = CASE WHEN case_checklists.%[1]s_completed_at IS NULL THEN EXCLUDED.%[1]s_items ELSE case_checklists.%[1]s_items END,
			%[1]s_completed_at = COALESCE(case_checklists.%[1]s_completed_at, EXCLUDED.%[1]s_completed_at),
			%[1]s_completed_by_id = CASE WHEN case_checklists.%[1]s_completed_at IS NULL THEN EXCLUDED.%[1]s_completed_by_id ELSE case_checklists.%[1]s_completed_by_id END,
			%[1]s_completed_by_role = CASE WHEN case_checklists.%[1]s_completed_at IS NULL THEN EXCLUDED.%[1]s_completed_by_role ELSE case_checklists.%[1]s_completed_by_role END,
			updated_at = now()
		RETURNING %[1]s_items, %[1]s_completed_at, %[1]s_completed_by_id, %[1]s_completed_by_role
	`, col)

	var (
		storedItems []byte
		storedAt    *time.Time
		byID        *string
		byRole      *string
	)
	err = r.db.QueryRow(ctx, query, caseID, payload, completedAt, actor.ID, actor.Role).
		Scan(&storedItems, &storedAt, &byID, &byRole)
	if err != nil {
		return nil, fmt.Errorf("checklist: complete phase %s: %w", phase, err)
	}

	status, err := buildPhaseStatus(storedItems, storedAt, byID, byRole)
	if err != nil {
		return nil, err
	}
	return status, nil
}

// FindByCaseID loads the full checklist for a case. Returns every phase as
// empty/incomplete when no row exists.
func (r *Repository) FindByCaseID(ctx context.Context, caseID uuid.UUID) (*Status, error) {
	query := `
		SELECT sign_in_items, sign_in_completed_at, sign_in_completed_by_id, sign_in_completed_by_role,
		       time_out_items, time_out_completed_at, time_out_completed_by_id, time_out_completed_by_role,
		       sign_out_items, sign_out_completed_at, sign_out_completed_by_id, sign_out_completed_by_role
		FROM case_checklists
		WHERE case_id = $1
	`
	var (
		raw    [3][]byte
		at     [3]*time.Time
		byID   [3]*string
		byRole [3]*string
	)
	err := r.db.QueryRow(ctx, query, caseID).Scan(
		&raw[0], &at[0], &byID[0], &byRole[0],
		&raw[1], &at[1], &byID[1], &byRole[1],
		&raw[2], &at[2], &byID[2], &byRole[2],
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return emptyStatus(caseID), nil
		}
		return nil, fmt.Errorf("checklist: select checklist: %w", err)
	}

	status := &Status{CaseID: caseID}
	for i, target := range []*PhaseStatus{&status.SignIn, &status.TimeOut, &status.SignOut} {
		phase, err := buildPhaseStatus(raw[i], at[i], byID[i], byRole[i])
		if err != nil {
			return nil, err
		}
		*target = *phase
	}
	return status, nil
}

// IsPhaseCompleted reports whether a phase has been finalized. A case with
// no checklist row has no completed phases.
func (r *Repository) IsPhaseCompleted(ctx context.Context, caseID uuid.UUID, phase Phase) (bool, error) {
	col, ok := phaseColumns[phase]
	if !ok {
		return false, fmt.Errorf("checklist: unknown phase %q", phase)
	}
	query := fmt.Sprintf(`SELECT %s_completed_at IS NOT NULL FROM case_checklists WHERE case_id = $1`, col)
	var completed bool
	if err := r.db.QueryRow(ctx, query, caseID).Scan(&completed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checklist: check phase %s: %w", phase, err)
	}
	return completed, nil
}

func buildPhaseStatus(rawItems []byte, completedAt *time.Time, byID, byRole *string) (*PhaseStatus, error) {
	status := &PhaseStatus{Items: []ItemConfirmation{}}
	if len(rawItems) > 0 {
		if err := json.Unmarshal(rawItems, &status.Items); err != nil {
			return nil, fmt.Errorf("checklist: unmarshal items: %w", err)
		}
	}
	if completedAt != nil {
		t := completedAt.UTC()
		status.Completed = true
		status.CompletedAt = &t
	}
	if byID != nil {
		status.CompletedByID = *byID
	}
	if byRole != nil {
		status.CompletedByRole = *byRole
	}
	return status, nil
}
