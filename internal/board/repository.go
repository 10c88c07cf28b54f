package board

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/surgical-ops/internal/cases"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// BookingRow is one non-cancelled booking for the day, joined to its case,
// patient, surgeon, plan, checklist, and procedure record.
type BookingRow struct {
	BookingID      uuid.UUID
	TheaterID      uuid.UUID
	TheaterName    string
	TheaterType    string
	CaseID         uuid.UUID
	PatientName    string
	SurgeonName    string
	ProcedureName  string
	Urgency        string
	Status         cases.Status
	ScheduledStart time.Time
	ScheduledEnd   time.Time

	// Plan context; nil/zero when the case has no plan yet.
	ProcedurePlan  *string
	RiskFactors    *string
	PreOpNotes     *string
	ImageCount     int
	SignedConsents int

	SignInComplete  bool
	TimeOutComplete bool
	SignOutComplete bool

	WheelsIn  *time.Time
	WheelsOut *time.Time
}

// Repository reads day-board data. All queries are read-only.
type Repository struct {
	db DB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("board: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db DB) *Repository {
	return &Repository{db: db}
}

// ActiveTheaters lists theaters accepting bookings, ordered by name.
func (r *Repository) ActiveTheaters(ctx context.Context) ([]Theater, error) {
	query := `
		SELECT id, name, type
		FROM theaters
		WHERE active
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("board: query theaters: %w", err)
	}
	defer rows.Close()

	var theaters []Theater
	for rows.Next() {
		var t Theater
		if err := rows.Scan(&t.ID, &t.Name, &t.Type); err != nil {
			return nil, fmt.Errorf("board: scan theater: %w", err)
		}
		theaters = append(theaters, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("board: iterate theaters: %w", err)
	}
	return theaters, nil
}

// BookingsForDay loads every non-cancelled booking in [start, end) across
// active theaters, with the case context the board needs.
func (r *Repository) BookingsForDay(ctx context.Context, start, end time.Time) ([]BookingRow, error) {
	query := `
		SELECT b.id, b.theater_id, t.name, t.type,
		       c.id, p.full_name, s.full_name, c.procedure_name, c.urgency, c.status,
		       b.scheduled_start, b.scheduled_end,
		       pl.procedure_plan, pl.risk_factors, pl.preop_notes,
		       COALESCE((SELECT COUNT(*) FROM case_plan_images i WHERE i.plan_id = pl.id), 0),
		       COALESCE((SELECT COUNT(*) FROM case_plan_consents cc WHERE cc.plan_id = pl.id AND cc.signed_at IS NOT NULL), 0),
		       cl.sign_in_completed_at IS NOT NULL,
		       cl.time_out_completed_at IS NOT NULL,
		       cl.sign_out_completed_at IS NOT NULL,
		       pr.wheels_in, pr.wheels_out
		FROM theater_bookings b
		JOIN theaters t ON t.id = b.theater_id AND t.active
		JOIN surgical_cases c ON c.id = b.surgical_case_id
		JOIN patients p ON p.id = c.patient_id
		JOIN staff s ON s.id = c.surgeon_id
		LEFT JOIN case_plans pl ON pl.surgical_case_id = c.id
		LEFT JOIN case_checklists cl ON cl.case_id = c.id
		LEFT JOIN procedure_records pr ON pr.case_id = c.id
		WHERE b.status <> 'CANCELLED'
		  AND b.scheduled_start >= $1
		  AND b.scheduled_start < $2
		ORDER BY t.name, b.scheduled_start
	`
	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("board: query bookings: %w", err)
	}
	defer rows.Close()

	var results []BookingRow
	for rows.Next() {
		var row BookingRow
		err := rows.Scan(
			&row.BookingID, &row.TheaterID, &row.TheaterName, &row.TheaterType,
			&row.CaseID, &row.PatientName, &row.SurgeonName, &row.ProcedureName, &row.Urgency, &row.Status,
			&row.ScheduledStart, &row.ScheduledEnd,
			&row.ProcedurePlan, &row.RiskFactors, &row.PreOpNotes,
			&row.ImageCount, &row.SignedConsents,
			&row.SignInComplete, &row.TimeOutComplete, &row.SignOutComplete,
			&row.WheelsIn, &row.WheelsOut,
		)
		if err != nil {
			return nil, fmt.Errorf("board: scan booking: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("board: iterate bookings: %w", err)
	}
	return results, nil
}
