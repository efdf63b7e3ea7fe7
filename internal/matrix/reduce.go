package matrix

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// RowSum collapses the columns of m into an m.Rows()×1 column of row sums.
func RowSum(m *Dense) *Dense {
	out := alloc(m.rows, 1)
	for i := 0; i < m.rows; i++ {
		out.data[i] = floats.Sum(m.data[i*m.cols : (i+1)*m.cols])
	}
	return out
}

// RowSumInto writes the row sums of m into dst, which must be m.Rows()×1.
func RowSumInto(dst, m *Dense) {
	if dst.cols != 1 || dst.rows != m.rows {
		mismatch("RowSumInto", m, dst)
	}
	for i := 0; i < m.rows; i++ {
		dst.data[i] = floats.Sum(m.data[i*m.cols : (i+1)*m.cols])
	}
}

// ColumnMax returns the maximum of every column. A matrix without rows
// yields -Inf for each column.
func ColumnMax(m *Dense) []float64 {
	out := make([]float64, m.cols)
	for j := range out {
		out[j] = math.Inf(-1)
	}
	for i := 0; i < m.rows; i++ {
		row := m.data[i*m.cols : (i+1)*m.cols]
		for j, v := range row {
			if v > out[j] {
				out[j] = v
			}
		}
	}
	return out
}

// NormalizeColumns divides each column of m by its maximum whenever that
// maximum exceeds 1. Columns whose maximum is at most 1 are left untouched.
func (m *Dense) NormalizeColumns() {
	maxes := ColumnMax(m)
	for j, hi := range maxes {
		if hi <= 1 {
			continue
		}
		for i := 0; i < m.rows; i++ {
			m.data[i*m.cols+j] /= hi
		}
	}
}

// ColumnSoftmax returns a copy of m in which every column has been replaced
// by its softmax distribution.
func ColumnSoftmax(m *Dense) *Dense {
	out := Copy(m)
	out.ColumnSoftmax()
	return out
}

// ColumnSoftmax replaces every column of m by exp(x - max) / Σ exp(x - max).
func (m *Dense) ColumnSoftmax() {
	maxes := ColumnMax(m)
	sums := make([]float64, m.cols)
	for i := 0; i < m.rows; i++ {
		row := m.data[i*m.cols : (i+1)*m.cols]
		for j, v := range row {
			e := math.Exp(v - maxes[j])
			row[j] = e
			sums[j] += e
		}
	}
	for i := 0; i < m.rows; i++ {
		floats.Div(m.data[i*m.cols:(i+1)*m.cols], sums)
	}
}

// ArgMaxCol returns the row index of the largest value in column j.
// The first index wins ties.
func (m *Dense) ArgMaxCol(j int) int {
	if j < 0 || j >= m.cols || m.rows == 0 {
		outOfRange("ArgMaxCol", m, 0, j)
	}
	best := 0
	for i := 1; i < m.rows; i++ {
		if m.data[i*m.cols+j] > m.data[best*m.cols+j] {
			best = i
		}
	}
	return best
}
