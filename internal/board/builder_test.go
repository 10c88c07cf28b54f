package board

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/surgical-ops/internal/cases"
)

type stubRepo struct {
	theaters []Theater
	rows     []BookingRow
}

func (r *stubRepo) ActiveTheaters(context.Context) ([]Theater, error) { return r.theaters, nil }

func (r *stubRepo) BookingsForDay(context.Context, time.Time, time.Time) ([]BookingRow, error) {
	return r.rows, nil
}

func ptr[T any](v T) *T { return &v }

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed.UTC()
}

func booking(theaterID uuid.UUID, status cases.Status, scheduledStart time.Time) BookingRow {
	return BookingRow{
		BookingID:      uuid.New(),
		TheaterID:      theaterID,
		TheaterName:    "OR 1",
		TheaterType:    "GENERAL",
		CaseID:         uuid.New(),
		PatientName:    "Jordan Blake",
		SurgeonName:    "Dr. Osei",
		ProcedureName:  "lap chole",
		Urgency:        "ELECTIVE",
		Status:         status,
		ScheduledStart: scheduledStart,
		ScheduledEnd:   scheduledStart.Add(2 * time.Hour),
	}
}

func TestBuild_AverageORTimeAndUtilization(t *testing.T) {
	theaterA := Theater{ID: uuid.New(), Name: "OR 1", Type: "GENERAL"}
	theaterB := Theater{ID: uuid.New(), Name: "OR 2", Type: "CARDIAC"}
	day := ts(t, "2026-03-09T00:00:00Z")

	first := booking(theaterA.ID, cases.StatusCompleted, day.Add(8*time.Hour))
	first.WheelsIn = ptr(day.Add(8 * time.Hour))
	first.WheelsOut = ptr(day.Add(8*time.Hour + 100*time.Minute))

	second := booking(theaterA.ID, cases.StatusCompleted, day.Add(11*time.Hour))
	second.WheelsIn = ptr(day.Add(11 * time.Hour))
	second.WheelsOut = ptr(day.Add(11*time.Hour + 60*time.Minute))

	// In theater but not yet wheeled out: no OR time to aggregate.
	third := booking(theaterB.ID, cases.StatusInTheater, day.Add(9*time.Hour))
	third.WheelsIn = ptr(day.Add(9 * time.Hour))

	builder := NewBuilder(&stubRepo{
		theaters: []Theater{theaterA, theaterB},
		rows:     []BookingRow{first, second, third},
	}, nil, nil)

	board, err := builder.Build(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, "2026-03-09", board.Date)
	assert.Equal(t, 3, board.Summary.TotalCases)
	assert.Equal(t, 2, board.Summary.Completed)
	assert.Equal(t, 1, board.Summary.InTheater)

	require.NotNil(t, board.Summary.AvgORTimeMinutes)
	assert.InDelta(t, 80.0, *board.Summary.AvgORTimeMinutes, 0.001)

	util := board.Summary.UtilizationByTheater
	require.Contains(t, util, theaterA.ID.String())
	assert.InDelta(t, 160.0, util[theaterA.ID.String()], 0.001)
	assert.NotContains(t, util, theaterB.ID.String(), "a theater with no finished OR time is omitted")
}

func TestBuild_DelayedStartBoundary(t *testing.T) {
	theater := Theater{ID: uuid.New(), Name: "OR 1"}
	day := ts(t, "2026-03-09T00:00:00Z")
	start := day.Add(8 * time.Hour)

	onTime := booking(theater.ID, cases.StatusInTheater, start)
	onTime.WheelsIn = ptr(start.Add(10 * time.Minute))

	late := booking(theater.ID, cases.StatusInTheater, start)
	late.WheelsIn = ptr(start.Add(10*time.Minute + time.Second))

	builder := NewBuilder(&stubRepo{
		theaters: []Theater{theater},
		rows:     []BookingRow{onTime, late},
	}, nil, nil)

	board, err := builder.Build(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, 1, board.Summary.DelayedStartCount, "exactly 10 minutes late is within grace")
	entries := board.Theaters[0].Cases
	require.Len(t, entries, 2)
	assert.False(t, entries[0].DelayedStart)
	assert.True(t, entries[1].DelayedStart)
}

func TestBuild_ReadinessPercentage(t *testing.T) {
	theater := Theater{ID: uuid.New(), Name: "OR 1"}
	day := ts(t, "2026-03-09T00:00:00Z")

	row := booking(theater.ID, cases.StatusScheduled, day.Add(8*time.Hour))
	row.ProcedurePlan = ptr("laparoscopic cholecystectomy")
	row.RiskFactors = ptr("asthma")
	row.PreOpNotes = ptr("   ") // whitespace only does not count
	row.ImageCount = 2
	row.SignedConsents = 0

	builder := NewBuilder(&stubRepo{theaters: []Theater{theater}, rows: []BookingRow{row}}, nil, nil)

	board, err := builder.Build(context.Background(), day)
	require.NoError(t, err)

	require.Len(t, board.Theaters[0].Cases, 1)
	assert.Equal(t, 60, board.Theaters[0].Cases[0].ReadinessPct)
	assert.Equal(t, 1, board.Summary.Scheduled)
}

func TestBuild_EmptyDay(t *testing.T) {
	theater := Theater{ID: uuid.New(), Name: "OR 1"}
	builder := NewBuilder(&stubRepo{theaters: []Theater{theater}}, nil, nil)

	board, err := builder.Build(context.Background(), ts(t, "2026-03-09T00:00:00Z"))
	require.NoError(t, err)

	assert.Equal(t, 0, board.Summary.TotalCases)
	assert.Nil(t, board.Summary.AvgORTimeMinutes)
	assert.Empty(t, board.Summary.UtilizationByTheater)
	require.Len(t, board.Theaters, 1)
	assert.Empty(t, board.Theaters[0].Cases)
}

func TestBuild_UnknownTheaterGetsOwnLane(t *testing.T) {
	known := Theater{ID: uuid.New(), Name: "OR 1"}
	day := ts(t, "2026-03-09T00:00:00Z")

	stray := booking(uuid.New(), cases.StatusScheduled, day.Add(8*time.Hour))
	stray.TheaterName = "OR 9"

	builder := NewBuilder(&stubRepo{theaters: []Theater{known}, rows: []BookingRow{stray}}, nil, nil)

	board, err := builder.Build(context.Background(), day)
	require.NoError(t, err)

	require.Len(t, board.Theaters, 2)
	assert.Equal(t, "OR 9", board.Theaters[1].Name)
	assert.Len(t, board.Theaters[1].Cases, 1)
}
