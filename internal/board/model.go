// Package board builds the day-of-operations view: per-theater case lanes
// with readiness and checklist context, plus board-wide metrics. It is a
// read-side aggregator and performs no mutation.
package board

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/surgical-ops/internal/cases"
)

// Theater is an operating theater.
type Theater struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Type string    `json:"type"`
}

// CaseEntry is one booked case on the board, joined to its clinical context.
type CaseEntry struct {
	BookingID       uuid.UUID    `json:"booking_id"`
	CaseID          uuid.UUID    `json:"case_id"`
	PatientName     string       `json:"patient_name"`
	SurgeonName     string       `json:"surgeon_name"`
	ProcedureName   string       `json:"procedure_name"`
	Urgency         string       `json:"urgency"`
	Status          cases.Status `json:"status"`
	ScheduledStart  time.Time    `json:"scheduled_start"`
	ScheduledEnd    time.Time    `json:"scheduled_end"`
	ReadinessPct    int          `json:"readiness_pct"`
	SignInComplete  bool         `json:"sign_in_complete"`
	TimeOutComplete bool         `json:"time_out_complete"`
	SignOutComplete bool         `json:"sign_out_complete"`
	WheelsIn        *time.Time   `json:"wheels_in"`
	WheelsOut       *time.Time   `json:"wheels_out"`
	ORTimeMinutes   *float64     `json:"or_time_minutes"`
	DelayedStart    bool         `json:"delayed_start"`
}

// TheaterLane groups a theater with its cases for the day, ordered by
// scheduled start.
type TheaterLane struct {
	Theater
	Cases []CaseEntry `json:"cases"`
}

// Summary holds board-wide metrics for the day.
type Summary struct {
	TotalCases           int                `json:"total_cases"`
	Scheduled            int                `json:"scheduled"`
	InPrep               int                `json:"in_prep"`
	InTheater            int                `json:"in_theater"`
	Recovery             int                `json:"recovery"`
	Completed            int                `json:"completed"`
	AvgORTimeMinutes     *float64           `json:"avg_or_time_minutes"`
	DelayedStartCount    int                `json:"delayed_start_count"`
	UtilizationByTheater map[string]float64 `json:"utilization_by_theater"`
}

// Board is the full day view.
type Board struct {
	Date     string        `json:"date"`
	Theaters []TheaterLane `json:"theaters"`
	Summary  Summary       `json:"summary"`
}
