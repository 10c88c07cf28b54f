// Package checklist tracks the WHO-style surgical safety checklist for a
// case: three independently completed phases, each an atomic ledger of item
// confirmations.
package checklist

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Phase is one of the three safety checkpoints.
type Phase string

const (
	PhaseSignIn  Phase = "SIGN_IN"
	PhaseTimeOut Phase = "TIME_OUT"
	PhaseSignOut Phase = "SIGN_OUT"
)

// Phases lists all phases in protocol order.
var Phases = []Phase{PhaseSignIn, PhaseTimeOut, PhaseSignOut}

// ParsePhase converts an external token into a Phase.
func ParsePhase(raw string) (Phase, error) {
	p := Phase(raw)
	switch p {
	case PhaseSignIn, PhaseTimeOut, PhaseSignOut:
		return p, nil
	}
	return "", fmt.Errorf("unknown checklist phase %q", raw)
}

// ItemConfirmation is a single checklist item and whether it was confirmed.
type ItemConfirmation struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Confirmed bool   `json:"confirmed"`
	Note      string `json:"note,omitempty"`
}

// PhaseStatus is the queryable state of one phase. A phase with a non-nil
// CompletedAt is immutable.
type PhaseStatus struct {
	Completed       bool               `json:"completed"`
	CompletedAt     *time.Time         `json:"completed_at"`
	CompletedByID   string             `json:"completed_by_id,omitempty"`
	CompletedByRole string             `json:"completed_by_role,omitempty"`
	Items           []ItemConfirmation `json:"items"`
}

// Status holds all three phases for a case. Phases default to an empty,
// incomplete shape when the case has no checklist activity yet.
type Status struct {
	CaseID  uuid.UUID   `json:"case_id"`
	SignIn  PhaseStatus `json:"sign_in"`
	TimeOut PhaseStatus `json:"time_out"`
	SignOut PhaseStatus `json:"sign_out"`
}

// PhaseStatus returns the status for the named phase.
func (s *Status) PhaseStatus(phase Phase) PhaseStatus {
	switch phase {
	case PhaseSignIn:
		return s.SignIn
	case PhaseTimeOut:
		return s.TimeOut
	case PhaseSignOut:
		return s.SignOut
	}
	return PhaseStatus{Items: []ItemConfirmation{}}
}

func emptyStatus(caseID uuid.UUID) *Status {
	empty := PhaseStatus{Items: []ItemConfirmation{}}
	return &Status{CaseID: caseID, SignIn: empty, TimeOut: empty, SignOut: empty}
}
