// Package cases holds the surgical case model and its status state machine.
package cases

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a surgical case. Cases start in
// StatusDraft and are mutated exclusively through the state machine until
// they reach a terminal state.
type Status string

const (
	StatusDraft              Status = "DRAFT"
	StatusPlanning           Status = "PLANNING"
	StatusReadyForScheduling Status = "READY_FOR_SCHEDULING"
	StatusScheduled          Status = "SCHEDULED"
	StatusInPrep             Status = "IN_PREP"
	StatusInTheater          Status = "IN_THEATER"
	StatusRecovery           Status = "RECOVERY"
	StatusCompleted          Status = "COMPLETED"
	StatusCancelled          Status = "CANCELLED"
)

// Valid reports whether s is a known case status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPlanning, StatusReadyForScheduling, StatusScheduled,
		StatusInPrep, StatusInTheater, StatusRecovery, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is legal from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// SurgicalCase is the persisted representation of a case. Status is only
// written through Service.TransitionTo.
type SurgicalCase struct {
	ID            uuid.UUID `json:"id"`
	PatientID     uuid.UUID `json:"patient_id"`
	SurgeonID     uuid.UUID `json:"surgeon_id"`
	Status        Status    `json:"status"`
	Urgency       string    `json:"urgency"`
	Diagnosis     string    `json:"diagnosis"`
	ProcedureName string    `json:"procedure_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CasePlan is the documented procedure plan for a case. The engine reads it
// for the scheduling-readiness gate and the day board; it never writes it.
type CasePlan struct {
	ID             uuid.UUID `json:"id"`
	SurgicalCaseID uuid.UUID `json:"surgical_case_id"`
	ProcedurePlan  string    `json:"procedure_plan"`
	RiskFactors    string    `json:"risk_factors"`
	PreOpNotes     string    `json:"preop_notes"`
	ImageCount     int       `json:"image_count"`
	SignedConsents int       `json:"signed_consent_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
