package board

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinicore/surgical-ops/internal/cases"
	"github.com/clinicore/surgical-ops/internal/observability/metrics"
	"github.com/clinicore/surgical-ops/pkg/logging"
)

var boardTracer = otel.Tracer("surgicalops.internal.board")

// delayedStartGrace is how far wheels-in may lag the scheduled start before
// the case counts as delayed. Exactly at the grace boundary is not delayed.
const delayedStartGrace = 10 * time.Minute

// readinessChecks is the number of boolean documentation checks behind the
// readiness percentage.
const readinessChecks = 5

// boardRepo is the read interface the builder aggregates from.
type boardRepo interface {
	ActiveTheaters(ctx context.Context) ([]Theater, error)
	BookingsForDay(ctx context.Context, start, end time.Time) ([]BookingRow, error)
}

// Builder assembles the day board.
type Builder struct {
	repo    boardRepo
	metrics *metrics.EngineMetrics
	logger  *logging.Logger
}

// NewBuilder constructs a day board builder.
func NewBuilder(repo boardRepo, m *metrics.EngineMetrics, logger *logging.Logger) *Builder {
	if repo == nil {
		panic("board: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Builder{repo: repo, metrics: m, logger: logger}
}

// Build aggregates the board for the given date (interpreted in UTC).
func (b *Builder) Build(ctx context.Context, date time.Time) (*Board, error) {
	ctx, span := boardTracer.Start(ctx, "board.build")
	defer span.End()
	started := time.Now()

	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	span.SetAttributes(attribute.String("surgicalops.board_date", start.Format("2006-01-02")))

	theaters, err := b.repo.ActiveTheaters(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	rows, err := b.repo.BookingsForDay(ctx, start, end)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	lanes := make([]TheaterLane, 0, len(theaters))
	laneIndex := map[string]int{}
	for _, t := range theaters {
		laneIndex[t.ID.String()] = len(lanes)
		lanes = append(lanes, TheaterLane{Theater: t, Cases: []CaseEntry{}})
	}

	summary := Summary{UtilizationByTheater: map[string]float64{}}
	var orTimeTotal float64
	var orTimeCount int

	for _, row := range rows {
		entry := buildEntry(row)

		summary.TotalCases++
		countStatus(&summary, row.Status)
		if entry.DelayedStart {
			summary.DelayedStartCount++
		}
		if entry.ORTimeMinutes != nil {
			orTimeTotal += *entry.ORTimeMinutes
			orTimeCount++
			theaterKey := row.TheaterID.String()
			summary.UtilizationByTheater[theaterKey] += *entry.ORTimeMinutes
		}

		idx, ok := laneIndex[row.TheaterID.String()]
		if !ok {
			// Booking references a theater missing from the active list;
			// surface it as its own lane rather than dropping the case.
			laneIndex[row.TheaterID.String()] = len(lanes)
			lanes = append(lanes, TheaterLane{
				Theater: Theater{ID: row.TheaterID, Name: row.TheaterName, Type: row.TheaterType},
				Cases:   []CaseEntry{},
			})
			idx = len(lanes) - 1
		}
		lanes[idx].Cases = append(lanes[idx].Cases, entry)
	}

	if orTimeCount > 0 {
		avg := orTimeTotal / float64(orTimeCount)
		summary.AvgORTimeMinutes = &avg
	}

	b.metrics.ObserveBoardBuild(time.Since(started).Seconds())

	return &Board{
		Date:     start.Format("2006-01-02"),
		Theaters: lanes,
		Summary:  summary,
	}, nil
}

func buildEntry(row BookingRow) CaseEntry {
	entry := CaseEntry{
		BookingID:       row.BookingID,
		CaseID:          row.CaseID,
		PatientName:     row.PatientName,
		SurgeonName:     row.SurgeonName,
		ProcedureName:   row.ProcedureName,
		Urgency:         row.Urgency,
		Status:          row.Status,
		ScheduledStart:  row.ScheduledStart,
		ScheduledEnd:    row.ScheduledEnd,
		ReadinessPct:    readinessPct(row),
		SignInComplete:  row.SignInComplete,
		TimeOutComplete: row.TimeOutComplete,
		SignOutComplete: row.SignOutComplete,
		WheelsIn:        row.WheelsIn,
		WheelsOut:       row.WheelsOut,
	}
	if row.WheelsIn != nil && row.WheelsOut != nil {
		minutes := row.WheelsOut.Sub(*row.WheelsIn).Minutes()
		entry.ORTimeMinutes = &minutes
	}
	if row.WheelsIn != nil && row.WheelsIn.Sub(row.ScheduledStart) > delayedStartGrace {
		entry.DelayedStart = true
	}
	return entry
}

// readinessPct scores the case's documentation completeness: pre-op notes,
// risk factors, at least one image, at least one signed consent, and a
// procedure plan, as an integer percentage.
func readinessPct(row BookingRow) int {
	confirmed := 0
	if textPresent(row.PreOpNotes) {
		confirmed++
	}
	if textPresent(row.RiskFactors) {
		confirmed++
	}
	if row.ImageCount > 0 {
		confirmed++
	}
	if row.SignedConsents > 0 {
		confirmed++
	}
	if textPresent(row.ProcedurePlan) {
		confirmed++
	}
	return confirmed * 100 / readinessChecks
}

func textPresent(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func countStatus(summary *Summary, status cases.Status) {
	switch status {
	case cases.StatusScheduled:
		summary.Scheduled++
	case cases.StatusInPrep:
		summary.InPrep++
	case cases.StatusInTheater:
		summary.InTheater++
	case cases.StatusRecovery:
		summary.Recovery++
	case cases.StatusCompleted:
		summary.Completed++
	}
}
