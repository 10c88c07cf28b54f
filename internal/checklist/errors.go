package checklist

import (
	"fmt"
	"strings"
)

// IncompleteError lists every unconfirmed item blocking phase completion.
type IncompleteError struct {
	Phase Phase
	Keys  []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("checklist phase %s has unconfirmed items: %s", e.Phase, strings.Join(e.Keys, ", "))
}
