package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/surgical-ops/internal/audit"
	"github.com/clinicore/surgical-ops/internal/cases"
)

type stubFinder struct {
	status cases.Status
	err    error
}

func (f *stubFinder) FindByID(_ context.Context, caseID uuid.UUID) (*cases.SurgicalCase, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cases.SurgicalCase{
		ID:        caseID,
		Status:    f.status,
		Diagnosis: "acute appendicitis",
		Urgency:   "URGENT",
	}, nil
}

type stubAuditor struct {
	events []audit.Event
	err    error
}

func (a *stubAuditor) Record(_ context.Context, event audit.Event) error {
	a.events = append(a.events, event)
	return a.err
}

func newTimelineService(t *testing.T, finder caseFinder, auditor auditRecorder) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	svc := NewService(NewRepositoryWithDB(mock), finder, auditor, nil, nil)
	svc.now = func() time.Time { return *tm(t, "2026-03-09T12:00:00Z") }
	return svc, mock
}

func recordRows(mock pgxmock.PgxPoolIface, caseID uuid.UUID, stamps Timestamps) *pgxmock.Rows {
	now := time.Now().UTC()
	return mock.NewRows([]string{
		"case_id", "diagnosis", "urgency",
		"wheels_in", "anesthesia_start", "anesthesia_end",
		"incision_time", "closure_time", "wheels_out",
		"created_at", "updated_at",
	}).AddRow(
		caseID, "acute appendicitis", "URGENT",
		stamps.WheelsIn, stamps.AnesthesiaStart, stamps.AnesthesiaEnd,
		stamps.IncisionTime, stamps.ClosureTime, stamps.WheelsOut,
		now, now,
	)
}

func TestGetTimeline_NoRecordYet(t *testing.T) {
	svc, mock := newTimelineService(t, &stubFinder{status: cases.StatusInTheater}, &stubAuditor{})
	caseID := uuid.New()

	mock.ExpectQuery(`FROM procedure_records`).
		WithArgs(caseID).
		WillReturnError(pgx.ErrNoRows)

	snap, err := svc.GetTimeline(context.Background(), caseID)
	require.NoError(t, err)
	assert.Equal(t, cases.StatusInTheater, snap.CaseStatus)
	assert.Nil(t, snap.Timeline.WheelsIn)
	assert.Nil(t, snap.Durations.ORTimeMinutes)
	assert.Empty(t, snap.MissingItems, "no record means nothing is flagged missing")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTimeline_ReportsMissingForStatus(t *testing.T) {
	svc, mock := newTimelineService(t, &stubFinder{status: cases.StatusInTheater}, &stubAuditor{})
	caseID := uuid.New()

	mock.ExpectQuery(`FROM procedure_records`).
		WithArgs(caseID).
		WillReturnRows(recordRows(mock, caseID, Timestamps{
			WheelsIn: tm(t, "2026-03-09T08:00:00Z"),
		}))

	snap, err := svc.GetTimeline(context.Background(), caseID)
	require.NoError(t, err)
	assert.Equal(t, []Field{FieldAnesthesiaStart, FieldIncisionTime}, snap.MissingItems)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTimeline_AutoCreatesRecord(t *testing.T) {
	auditor := &stubAuditor{}
	svc, mock := newTimelineService(t, &stubFinder{status: cases.StatusInTheater}, auditor)
	caseID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM procedure_records`).
		WithArgs(caseID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO procedure_records`).
		WithArgs(caseID, "acute appendicitis", "URGENT").
		WillReturnRows(mock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(time.Now().UTC(), time.Now().UTC()))
	mock.ExpectExec(`UPDATE procedure_records`).
		WithArgs(caseID, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	patch := &Patch{
		WheelsIn:        OptionalTime{Present: true, Value: tm(t, "2026-03-09T08:00:00Z")},
		AnesthesiaStart: OptionalTime{Present: true, Value: tm(t, "2026-03-09T08:10:00Z")},
	}
	snap, err := svc.UpdateTimeline(context.Background(), caseID, patch, audit.Actor{ID: "anes-1", Role: "anesthetist"})
	require.NoError(t, err)
	assert.Equal(t, *tm(t, "2026-03-09T08:00:00Z"), *snap.Timeline.WheelsIn)
	assert.Equal(t, []Field{FieldIncisionTime}, snap.MissingItems)

	require.Len(t, auditor.events, 2, "one audit event per changed field")
	for _, e := range auditor.events {
		assert.Equal(t, audit.ActionTimelineUpdated, e.Action)
		assert.Equal(t, "procedure_record", e.EntityType)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTimeline_RejectionWritesNothing(t *testing.T) {
	auditor := &stubAuditor{}
	svc, mock := newTimelineService(t, &stubFinder{status: cases.StatusInTheater}, auditor)
	caseID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM procedure_records`).
		WithArgs(caseID).
		WillReturnRows(recordRows(mock, caseID, Timestamps{
			WheelsIn:     tm(t, "2026-03-09T08:00:00Z"),
			IncisionTime: tm(t, "2026-03-09T09:00:00Z"),
		}))
	mock.ExpectRollback()

	patch := &Patch{ClosureTime: OptionalTime{Present: true, Value: tm(t, "2026-03-09T08:30:00Z")}}
	_, err := svc.UpdateTimeline(context.Background(), caseID, patch, audit.Actor{ID: "surgeon-1"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 1)
	assert.Equal(t, FieldClosureTime, verr.Violations[0].Field)

	require.Len(t, auditor.events, 1)
	assert.Equal(t, audit.ActionTimelineInvalidAttempt, auditor.events[0].Action)
	assert.NoError(t, mock.ExpectationsWereMet(), "a rejected patch must not reach the update statement")
}

func TestUpdateTimeline_CorrectionOfExistingValue(t *testing.T) {
	auditor := &stubAuditor{}
	svc, mock := newTimelineService(t, &stubFinder{status: cases.StatusRecovery}, auditor)
	caseID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM procedure_records`).
		WithArgs(caseID).
		WillReturnRows(recordRows(mock, caseID, Timestamps{
			WheelsIn:     tm(t, "2026-03-09T08:00:00Z"),
			IncisionTime: tm(t, "2026-03-09T08:30:00Z"),
		}))
	mock.ExpectExec(`UPDATE procedure_records`).
		WithArgs(caseID, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	patch := &Patch{WheelsIn: OptionalTime{Present: true, Value: tm(t, "2026-03-09T07:50:00Z")}}
	snap, err := svc.UpdateTimeline(context.Background(), caseID, patch, audit.Actor{ID: "nurse-1"})
	require.NoError(t, err)
	assert.Equal(t, *tm(t, "2026-03-09T07:50:00Z"), *snap.Timeline.WheelsIn)
	require.Len(t, auditor.events, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTimeline_NoOpPatchSkipsWrite(t *testing.T) {
	auditor := &stubAuditor{}
	svc, mock := newTimelineService(t, &stubFinder{status: cases.StatusInTheater}, auditor)
	caseID := uuid.New()
	wheelsIn := tm(t, "2026-03-09T08:00:00Z")

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM procedure_records`).
		WithArgs(caseID).
		WillReturnRows(recordRows(mock, caseID, Timestamps{WheelsIn: wheelsIn}))
	mock.ExpectRollback()

	patch := &Patch{WheelsIn: OptionalTime{Present: true, Value: wheelsIn}}
	snap, err := svc.UpdateTimeline(context.Background(), caseID, patch, audit.Actor{ID: "nurse-1"})
	require.NoError(t, err)
	assert.Equal(t, *wheelsIn, *snap.Timeline.WheelsIn)
	assert.Empty(t, auditor.events, "re-submitting the stored value is not a change")
	assert.NoError(t, mock.ExpectationsWereMet())
}
