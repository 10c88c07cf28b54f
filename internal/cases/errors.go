package cases

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCaseNotFound is returned when the surgical case does not exist.
	ErrCaseNotFound = errors.New("surgical case not found")

	// ErrPlanNotFound is returned when a case has no case plan.
	ErrPlanNotFound = errors.New("case plan not found")
)

// InvalidTransitionError names the illegal status pair that was requested.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// ReadinessError aggregates every unmet plan requirement blocking the move
// to READY_FOR_SCHEDULING, so the caller can fix everything in one pass.
type ReadinessError struct {
	Missing []string
}

func (e *ReadinessError) Error() string {
	return "case plan not ready for scheduling: " + strings.Join(e.Missing, "; ")
}
