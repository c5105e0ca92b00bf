package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/jjsim/internal/device"
	"github.com/san-kum/jjsim/internal/sparse"
)

var (
	ErrSingular      = sparse.ErrSingular
	ErrGuessTooLarge = device.ErrGuessTooLarge
	ErrInvalidConfig = errors.New("invalid simulation config")
)

// RunError is a fatal numerical error during the step loop. Label names
// the device or node owning the offending row, when known.
type RunError struct {
	Step  int
	Time  float64
	Label string
	Err   error
}

func (e *RunError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("step %d (t=%g): %v", e.Step, e.Time, e.Err)
	}
	return fmt.Sprintf("step %d (t=%g): %s: %v", e.Step, e.Time, e.Label, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
