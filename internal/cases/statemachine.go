package cases

// transitions is the closed table of legal status moves. Terminal states
// have no outgoing edges.
var transitions = map[Status][]Status{
	StatusDraft:              {StatusPlanning, StatusCancelled},
	StatusPlanning:           {StatusReadyForScheduling, StatusDraft, StatusCancelled},
	StatusReadyForScheduling: {StatusScheduled, StatusPlanning, StatusCancelled},
	StatusScheduled:          {StatusInPrep, StatusReadyForScheduling, StatusCancelled},
	StatusInPrep:             {StatusInTheater},
	StatusInTheater:          {StatusRecovery},
	StatusRecovery:           {StatusCompleted},
	StatusCompleted:          {},
	StatusCancelled:          {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the legal next statuses from a given status.
func AllowedTransitions(from Status) []Status {
	allowed, ok := transitions[from]
	if !ok {
		return []Status{}
	}
	out := make([]Status, len(allowed))
	copy(out, allowed)
	return out
}
