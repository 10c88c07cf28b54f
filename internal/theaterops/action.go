// Package theaterops drives the day-of-surgery workflow: it maps external
// action tokens to case transitions and enforces the checklist gates that
// must hold before a case moves into or out of the operating theater.
package theaterops

import (
	"github.com/clinicore/surgical-ops/internal/cases"
)

// Action is an external workflow action token.
type Action string

const (
	ActionInPrep    Action = "IN_PREP"
	ActionInTheater Action = "IN_THEATER"
	ActionRecovery  Action = "RECOVERY"
	ActionCompleted Action = "COMPLETED"
)

// actionTargets is the closed mapping from action token to target status.
var actionTargets = map[Action]cases.Status{
	ActionInPrep:    cases.StatusInPrep,
	ActionInTheater: cases.StatusInTheater,
	ActionRecovery:  cases.StatusRecovery,
	ActionCompleted: cases.StatusCompleted,
}

// ParseAction converts an external token into an Action.
func ParseAction(raw string) (Action, error) {
	a := Action(raw)
	if _, ok := actionTargets[a]; !ok {
		return "", &InvalidActionError{Action: raw}
	}
	return a, nil
}

// Target returns the case status this action moves to.
func (a Action) Target() (cases.Status, bool) {
	target, ok := actionTargets[a]
	return target, ok
}
