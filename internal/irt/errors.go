package irt

import "fmt"

// InsufficientDataError reports that the response matrix held too few
// observed cells for a stable fit. This is an expected outcome on sparse
// data, not a crash; callers typically fall back to the weighted-evidence
// path.
type InsufficientDataError struct {
	Observed int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient response data for IRT fit: %d observed cells, need %d", e.Observed, e.Required)
}

// NumericalError reports a failure inside the optimizer.
type NumericalError struct {
	Err error
}

func (e *NumericalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("IRT optimization failed: %v", e.Err)
	}
	return "IRT optimization failed"
}

func (e *NumericalError) Unwrap() error { return e.Err }
