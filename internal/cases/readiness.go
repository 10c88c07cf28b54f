package cases

import "strings"

const (
	minProcedurePlanLen = 10
	minRiskFactorsLen   = 5
	minPreOpNotesLen    = 5
)

// ValidateReadiness checks the minimum documentation required before a case
// may enter READY_FOR_SCHEDULING. All violations are aggregated into one
// ReadinessError rather than failing on the first.
func ValidateReadiness(plan *CasePlan) error {
	if plan == nil {
		return &ReadinessError{Missing: []string{"case plan is missing"}}
	}

	var missing []string
	if len(strings.TrimSpace(plan.ProcedurePlan)) < minProcedurePlanLen {
		missing = append(missing, "procedure plan must be at least 10 characters")
	}
	if len(strings.TrimSpace(plan.RiskFactors)) < minRiskFactorsLen {
		missing = append(missing, "risk factors must be at least 5 characters")
	}
	if len(strings.TrimSpace(plan.PreOpNotes)) < minPreOpNotesLen {
		missing = append(missing, "pre-operative notes must be at least 5 characters")
	}
	if len(missing) > 0 {
		return &ReadinessError{Missing: missing}
	}
	return nil
}
