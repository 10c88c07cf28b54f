package timeline

import (
	"fmt"
	"strings"
	"time"
)

// futureSkew is the maximum tolerated clock drift for a recorded timestamp.
const futureSkew = 5 * time.Minute

// Violation describes one field-level validation failure.
type Violation struct {
	Field   Field  `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every ordering or future-timestamp violation found
// in a proposed timeline, not just the first.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return "timeline validation failed: " + strings.Join(msgs, "; ")
}

// validateProposed checks the whole proposed timeline: the populated subset
// of fields must be strictly increasing in field order, and no timestamp may
// sit more than futureSkew past now.
func validateProposed(rec *Record, now time.Time) *ValidationError {
	var violations []Violation

	limit := now.Add(futureSkew)
	for _, f := range fieldOrder {
		if t := rec.Get(f); t != nil && t.After(limit) {
			violations = append(violations, Violation{
				Field:   f,
				Message: "timestamp is more than 5 minutes in the future",
			})
		}
	}

	var prevField Field
	var prev *time.Time
	for _, f := range fieldOrder {
		t := rec.Get(f)
		if t == nil {
			continue
		}
		if prev != nil && !t.After(*prev) {
			violations = append(violations, Violation{
				Field:   f,
				Message: fmt.Sprintf("must be after %s", prevField),
			})
		}
		prevField = f
		prev = t
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
