package quad

import (
	"errors"
	"fmt"
)

// Status is the outcome of an integration. The numbering follows the
// conventional QUADPACK error classes so codes can be compared with other
// integration libraries.
type Status int

const (
	Success        Status = 0
	StatusInvalid  Status = 4  // invalid argument
	StatusMaxIter  Status = 11 // subinterval limit reached
	StatusBadTol   Status = 13 // tolerance cannot be achieved
	StatusRoundoff Status = 18 // roundoff error prevents convergence
	StatusSingular Status = 21 // non-integrable singularity or bad behavior
	StatusTable    Status = 26 // bisection deeper than the weight table
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case StatusInvalid:
		return "invalid argument"
	case StatusMaxIter:
		return "maximum number of subdivisions reached"
	case StatusBadTol:
		return "tolerance cannot be achieved"
	case StatusRoundoff:
		return "roundoff error prevents reaching the tolerance"
	case StatusSingular:
		return "bad integrand behavior found in the integration interval"
	case StatusTable:
		return "table overflow in internal iterations"
	default:
		return fmt.Sprintf("status %d", int(s))
	}
}

// Estimate is the value of an integral and its absolute error estimate.
type Estimate struct {
	Value  float64
	AbsErr float64
}

// Error reports an integration that stopped before reaching the requested
// accuracy. Partial holds the best estimate available when it stopped.
type Error struct {
	Status  Status
	Partial Estimate
	Reason  string
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("quad: %s: %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("quad: %s", e.Status)
}

// StatusOf extracts the Status carried by err. A nil error is Success and an
// error not produced by this package is StatusInvalid.
func StatusOf(err error) Status {
	if err == nil {
		return Success
	}
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Status
	}
	return StatusInvalid
}

func fail(s Status, partial Estimate, reason string) error {
	return &Error{Status: s, Partial: partial, Reason: reason}
}
