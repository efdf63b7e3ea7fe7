package matrix

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch indicates incompatible operand shapes.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrBadShape is returned by factories asked for a negative dimension.
	ErrBadShape = errors.New("matrix: invalid shape")

	// ErrAllocation is returned when the requested element count cannot be allocated.
	ErrAllocation = errors.New("matrix: allocation failed")

	// ErrOutOfRange indicates a row or column index outside the matrix.
	ErrOutOfRange = errors.New("matrix: index out of range")
)

// DimensionError describes a shape contract violation. Operations panic
// with a *DimensionError; Guard turns it back into an error.
type DimensionError struct {
	Op   string
	Want string
	Got  string
	Err  error
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: want %s, got %s: %v", e.Op, e.Want, e.Got, e.Err)
}

func (e *DimensionError) Unwrap() error { return e.Err }

func mismatch(op string, a, b *Dense) {
	panic(&DimensionError{Op: op, Want: shape(a), Got: shape(b), Err: ErrDimensionMismatch})
}

func outOfRange(op string, m *Dense, row, col int) {
	panic(&DimensionError{
		Op:   op,
		Want: shape(m),
		Got:  fmt.Sprintf("(%d,%d)", row, col),
		Err:  ErrOutOfRange,
	})
}

func shape(m *Dense) string {
	if m == nil {
		return "nil"
	}
	return fmt.Sprintf("%dx%d", m.rows, m.cols)
}

// Guard runs fn and converts a *DimensionError panic into a returned error.
// Any other panic is re-raised.
func Guard(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		var dimErr *DimensionError
		if e, ok := r.(error); ok && errors.As(e, &dimErr) {
			err = dimErr
			return
		}
		panic(r)
	}()
	fn()
	return nil
}
