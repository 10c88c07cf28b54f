package theaterops

import (
	"fmt"

	"github.com/clinicore/surgical-ops/internal/cases"
	"github.com/clinicore/surgical-ops/internal/checklist"
)

// InvalidActionError is returned for an unrecognized action token.
type InvalidActionError struct {
	Action string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("unknown workflow action %q", e.Action)
}

// GateError is returned when a checklist gate blocks a transition. The state
// machine is never invoked and the case is not mutated.
type GateError struct {
	Gate checklist.Phase
	From cases.Status
	To   cases.Status
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%s checklist must be completed before transition %s -> %s", e.Gate, e.From, e.To)
}
