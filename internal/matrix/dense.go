// Package matrix implements the dense row-major matrix engine used by the
// network: factories, element-wise and algebraic operations, and the
// column-wise reductions needed for batched training.
//
// Allocating operations are package functions (Add, Mul, Transpose, ...);
// the same operations as *Dense methods overwrite the receiver in place.
// Shape mismatches are contract violations and panic with a *DimensionError;
// wrap a call in Guard to receive it as an error instead.
package matrix

import (
	"fmt"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// MaxElements bounds the element count a factory will allocate.
const MaxElements = 1 << 30

// Dense is a rows×cols matrix of float64 stored row-major:
// element (i, j) lives at data[i*cols+j] and len(data) == rows*cols.
type Dense struct {
	rows, cols int
	data       []float64
}

func checkShape(rows, cols int) error {
	if rows < 0 || cols < 0 {
		return fmt.Errorf("%dx%d: %w", rows, cols, ErrBadShape)
	}
	if cols != 0 && rows > MaxElements/cols {
		return fmt.Errorf("%dx%d: %w", rows, cols, ErrAllocation)
	}
	return nil
}

// alloc is used by operations whose result shape derives from existing
// operands and is therefore already known to be valid.
func alloc(rows, cols int) *Dense {
	return &Dense{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// New returns a rows×cols matrix with every element set to fill.
func New(rows, cols int, fill float64) (*Dense, error) {
	if err := checkShape(rows, cols); err != nil {
		return nil, err
	}
	m := alloc(rows, cols)
	if fill != 0 {
		m.Fill(fill)
	}
	return m, nil
}

// Zeros returns a rows×cols matrix of zeros.
func Zeros(rows, cols int) (*Dense, error) {
	return New(rows, cols, 0)
}

// Ones returns a rows×cols matrix of ones.
func Ones(rows, cols int) (*Dense, error) {
	return New(rows, cols, 1)
}

// Identity returns the n×n identity matrix.
func Identity(n int) (*Dense, error) {
	m, err := New(n, n, 0)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m, nil
}

// NewRandom returns a rows×cols matrix with elements drawn uniformly from
// [lo, hi) using rng. The caller owns rng; seed it once per process.
func NewRandom(rng *rand.Rand, rows, cols int, lo, hi float64) (*Dense, error) {
	if err := checkShape(rows, cols); err != nil {
		return nil, err
	}
	m := alloc(rows, cols)
	span := hi - lo
	for i := range m.data {
		m.data[i] = lo + rng.Float64()*span
	}
	return m, nil
}

// NewFromFunc returns a rows×cols matrix with element (i, j) set to f(i, j).
func NewFromFunc(rows, cols int, f func(i, j int) float64) (*Dense, error) {
	if err := checkShape(rows, cols); err != nil {
		return nil, err
	}
	m := alloc(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.data[i*cols+j] = f(i, j)
		}
	}
	return m, nil
}

// FromSlice copies data, given in row-major order, into a new rows×cols matrix.
func FromSlice(rows, cols int, data []float64) (*Dense, error) {
	if err := checkShape(rows, cols); err != nil {
		return nil, err
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%dx%d from %d values: %w", rows, cols, len(data), ErrBadShape)
	}
	m := alloc(rows, cols)
	copy(m.data, data)
	return m, nil
}

// Rows returns the number of rows.
func (m *Dense) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Dense) Cols() int { return m.cols }

// Dims returns rows and columns.
func (m *Dense) Dims() (int, int) { return m.rows, m.cols }

// Len returns rows*cols.
func (m *Dense) Len() int { return len(m.data) }

// SameShape reports whether m and o have identical dimensions.
func (m *Dense) SameShape(o *Dense) bool {
	return m.rows == o.rows && m.cols == o.cols
}

// RawData returns the backing row-major slice. Writes through it mutate m.
func (m *Dense) RawData() []float64 { return m.data }

// At returns element (i, j).
func (m *Dense) At(i, j int) float64 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		outOfRange("At", m, i, j)
	}
	return m.data[i*m.cols+j]
}

// Set assigns element (i, j).
func (m *Dense) Set(i, j int, v float64) {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		outOfRange("Set", m, i, j)
	}
	m.data[i*m.cols+j] = v
}

// Fill sets every element to v.
func (m *Dense) Fill(v float64) {
	for i := range m.data {
		m.data[i] = v
	}
}

// Row returns a copy of row i.
func (m *Dense) Row(i int) []float64 {
	if i < 0 || i >= m.rows {
		outOfRange("Row", m, i, 0)
	}
	out := make([]float64, m.cols)
	copy(out, m.data[i*m.cols:(i+1)*m.cols])
	return out
}

// Col returns a copy of column j.
func (m *Dense) Col(j int) []float64 {
	if j < 0 || j >= m.cols {
		outOfRange("Col", m, 0, j)
	}
	out := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		out[i] = m.data[i*m.cols+j]
	}
	return out
}

// SetCol overwrites column j with values, which must have one entry per row.
func (m *Dense) SetCol(j int, values []float64) {
	if j < 0 || j >= m.cols {
		outOfRange("SetCol", m, 0, j)
	}
	if len(values) != m.rows {
		panic(&DimensionError{
			Op:   "SetCol",
			Want: fmt.Sprintf("%d values", m.rows),
			Got:  fmt.Sprintf("%d values", len(values)),
			Err:  ErrDimensionMismatch,
		})
	}
	for i, v := range values {
		m.data[i*m.cols+j] = v
	}
}

// CopyColumn copies column sj of src into column dj of dst. Both matrices
// must have the same number of rows.
func CopyColumn(dst *Dense, dj int, src *Dense, sj int) {
	if dst.rows != src.rows {
		mismatch("CopyColumn", dst, src)
	}
	if dj < 0 || dj >= dst.cols {
		outOfRange("CopyColumn", dst, 0, dj)
	}
	if sj < 0 || sj >= src.cols {
		outOfRange("CopyColumn", src, 0, sj)
	}
	for i := 0; i < dst.rows; i++ {
		dst.data[i*dst.cols+dj] = src.data[i*src.cols+sj]
	}
}

// Copy returns a deep copy of m.
func Copy(m *Dense) *Dense {
	out := alloc(m.rows, m.cols)
	copy(out.data, m.data)
	return out
}

// CopyFrom overwrites m with the contents of src without reallocating.
func (m *Dense) CopyFrom(src *Dense) {
	if !m.SameShape(src) {
		mismatch("CopyFrom", m, src)
	}
	copy(m.data, src.data)
}

// Resize returns a rows×cols matrix holding the overlapping top-left block
// of m; new cells are zero.
func Resize(m *Dense, rows, cols int) (*Dense, error) {
	out, err := Zeros(rows, cols)
	if err != nil {
		return nil, err
	}
	for i := 0; i < m.rows && i < rows; i++ {
		for j := 0; j < m.cols && j < cols; j++ {
			out.data[i*cols+j] = m.data[i*m.cols+j]
		}
	}
	return out, nil
}

// Equal reports exact element-wise equality of shape and values.
func Equal(a, b *Dense) bool {
	return a.SameShape(b) && floats.Equal(a.data, b.data)
}

// EqualApprox reports element-wise equality within tol, absolute or relative.
func EqualApprox(a, b *Dense, tol float64) bool {
	return a.SameShape(b) && floats.EqualApprox(a.data, b.data, tol)
}

func (m *Dense) String() string {
	var sb strings.Builder
	for i := 0; i < m.rows; i++ {
		sb.WriteByte('[')
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%g", m.data[i*m.cols+j])
		}
		sb.WriteString("]\n")
	}
	return sb.String()
}
