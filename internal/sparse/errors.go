package sparse

import (
	"errors"
	"fmt"
)

var (
	// ErrSingular indicates the matrix has no usable pivot at some step.
	ErrSingular = errors.New("sparse: matrix is singular")

	// ErrPattern indicates a matrix whose structure differs from the analyzed one.
	ErrPattern = errors.New("sparse: pattern does not match symbolic analysis")

	// ErrSize indicates a vector shorter than the matrix dimension.
	ErrSize = errors.New("sparse: vector size mismatch")
)

// SingularError reports where factorization broke down. Row and Col are
// indices in the caller's numbering.
type SingularError struct {
	Step int
	Row  int
	Col  int
}

func (e *SingularError) Error() string {
	return fmt.Sprintf("sparse: matrix is singular at elimination step %d (row %d, col %d)", e.Step, e.Row, e.Col)
}

func (e *SingularError) Unwrap() error { return ErrSingular }
