package alloc

import "fmt"

// ValidationError is the only caller-visible hard failure in the engine:
// malformed input that must be fixed upstream. Solver-level failures
// (timeout, infeasibility) are absorbed into the fallback path and never
// escape as errors.
type ValidationError struct {
	RequestID string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.RequestID == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed for request %s: %s", e.RequestID, e.Reason)
}

// SolveStatus tags the outcome of an exact solve. Modeled as a result
// variant rather than an error so the optimizer/fallback boundary stays a
// pure data contract.
type SolveStatus int

const (
	// StatusOptimal means the search completed and Picks is the best
	// assignment under the tie-break ordering.
	StatusOptimal SolveStatus = iota
	// StatusInfeasible means no candidate triple exists for any pending
	// request; the fallback resolves each request to an explicit rejection.
	StatusInfeasible
	// StatusTimeout means the time budget elapsed before the search
	// completed. No partial result is exposed.
	StatusTimeout
)

func (s SolveStatus) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}
