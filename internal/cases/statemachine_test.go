package cases

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allStatuses = []Status{
	StatusDraft, StatusPlanning, StatusReadyForScheduling, StatusScheduled,
	StatusInPrep, StatusInTheater, StatusRecovery, StatusCompleted, StatusCancelled,
}

func TestCanTransition_FullTable(t *testing.T) {
	legal := map[Status][]Status{
		StatusDraft:              {StatusPlanning, StatusCancelled},
		StatusPlanning:           {StatusReadyForScheduling, StatusDraft, StatusCancelled},
		StatusReadyForScheduling: {StatusScheduled, StatusPlanning, StatusCancelled},
		StatusScheduled:          {StatusInPrep, StatusReadyForScheduling, StatusCancelled},
		StatusInPrep:             {StatusInTheater},
		StatusInTheater:          {StatusRecovery},
		StatusRecovery:           {StatusCompleted},
	}

	for _, from := range allStatuses {
		allowed := map[Status]bool{}
		for _, to := range legal[from] {
			allowed[to] = true
		}
		for _, to := range allStatuses {
			got := CanTransition(from, to)
			assert.Equal(t, allowed[to], got, "transition %s -> %s", from, to)
		}
	}
}

func TestCanTransition_TerminalStatesHaveNoExits(t *testing.T) {
	for _, from := range []Status{StatusCompleted, StatusCancelled} {
		assert.True(t, from.Terminal())
		for _, to := range allStatuses {
			assert.False(t, CanTransition(from, to), "terminal %s should not allow %s", from, to)
		}
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	assert.False(t, CanTransition(Status("LIMBO"), StatusPlanning))
	assert.False(t, Status("LIMBO").Valid())
}

func TestAllowedTransitions_CopiesTable(t *testing.T) {
	first := AllowedTransitions(StatusDraft)
	first[0] = StatusCompleted
	assert.Equal(t, []Status{StatusPlanning, StatusCancelled}, AllowedTransitions(StatusDraft))
	assert.Empty(t, AllowedTransitions(StatusCompleted))
}
