package circuit

import (
	"errors"
	"fmt"
)

// Construction errors. All are fatal and raised before any step runs.
var (
	ErrDuplicateLabel   = errors.New("duplicate label")
	ErrMissingNode      = errors.New("missing or invalid node")
	ErrGroundedDevice   = errors.New("both terminals grounded")
	ErrSanity           = errors.New("sanity check failed")
	ErrUnknownModel     = errors.New("unknown junction model")
	ErrUnknownReference = errors.New("unknown device reference")
	ErrEmptyCircuit     = errors.New("circuit has no unknowns")
)

// ConstructionError ties a construction failure to the element that
// caused it.
type ConstructionError struct {
	Label string
	Kind  string
	Err   error
}

func (e *ConstructionError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("circuit: %v", e.Err)
	}
	return fmt.Sprintf("circuit: %s %s: %v", e.Kind, e.Label, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// Warning is a non-fatal configuration problem.
type Warning struct {
	Request string
	Message string
}

func (w Warning) String() string { return fmt.Sprintf("%s: %s", w.Request, w.Message) }
