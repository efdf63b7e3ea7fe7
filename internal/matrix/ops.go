package matrix

import "gonum.org/v1/gonum/floats"

// Add returns a + b. Shapes must match.
func Add(a, b *Dense) *Dense {
	if !a.SameShape(b) {
		mismatch("Add", a, b)
	}
	out := alloc(a.rows, a.cols)
	floats.AddTo(out.data, a.data, b.data)
	return out
}

// Add adds b to m in place.
func (m *Dense) Add(b *Dense) {
	if !m.SameShape(b) {
		mismatch("Add", m, b)
	}
	floats.Add(m.data, b.data)
}

// Sub returns a - b. Shapes must match.
func Sub(a, b *Dense) *Dense {
	if !a.SameShape(b) {
		mismatch("Sub", a, b)
	}
	out := alloc(a.rows, a.cols)
	floats.SubTo(out.data, a.data, b.data)
	return out
}

// Sub subtracts b from m in place.
func (m *Dense) Sub(b *Dense) {
	if !m.SameShape(b) {
		mismatch("Sub", m, b)
	}
	floats.Sub(m.data, b.data)
}

// Hadamard returns the element-wise product a ⊙ b.
func Hadamard(a, b *Dense) *Dense {
	if !a.SameShape(b) {
		mismatch("Hadamard", a, b)
	}
	out := alloc(a.rows, a.cols)
	floats.MulTo(out.data, a.data, b.data)
	return out
}

// Hadamard multiplies m element-wise by b in place.
func (m *Dense) Hadamard(b *Dense) {
	if !m.SameShape(b) {
		mismatch("Hadamard", m, b)
	}
	floats.Mul(m.data, b.data)
}

// Mul returns the matrix product a·b, which is a.Rows()×b.Cols().
func Mul(a, b *Dense) *Dense {
	if a.cols != b.rows {
		mismatch("Mul", a, b)
	}
	out := alloc(a.rows, b.cols)
	mulInto(out, a, b)
	return out
}

// MulInto writes a·b into dst, which must be a.Rows()×b.Cols(). dst may
// share storage with a or b.
func MulInto(dst, a, b *Dense) {
	if a.cols != b.rows {
		mismatch("MulInto", a, b)
	}
	if dst.rows != a.rows || dst.cols != b.cols {
		panic(&DimensionError{
			Op:   "MulInto",
			Want: shape(&Dense{rows: a.rows, cols: b.cols}),
			Got:  shape(dst),
			Err:  ErrDimensionMismatch,
		})
	}
	if aliases(dst, a) || aliases(dst, b) {
		dst.CopyFrom(Mul(a, b))
		return
	}
	mulInto(dst, a, b)
}

func mulInto(dst, a, b *Dense) {
	n, p := a.cols, b.cols
	for i := 0; i < a.rows; i++ {
		for j := 0; j < p; j++ {
			var sum float64
			for k := 0; k < n; k++ {
				sum += a.data[i*n+k] * b.data[k*p+j]
			}
			dst.data[i*p+j] = sum
		}
	}
}

func aliases(a, b *Dense) bool {
	if len(a.data) == 0 || len(b.data) == 0 {
		return false
	}
	return &a.data[0] == &b.data[0]
}

// Transpose returns the cols×rows matrix T with T[j,i] = m[i,j].
func Transpose(m *Dense) *Dense {
	out := alloc(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.data[j*m.rows+i] = m.data[i*m.cols+j]
		}
	}
	return out
}

// ScalarAdd returns m + s element-wise.
func ScalarAdd(m *Dense, s float64) *Dense {
	out := Copy(m)
	out.ScalarAdd(s)
	return out
}

// ScalarAdd adds s to every element of m.
func (m *Dense) ScalarAdd(s float64) {
	floats.AddConst(s, m.data)
}

// ScalarSub returns m - s element-wise.
func ScalarSub(m *Dense, s float64) *Dense {
	return ScalarAdd(m, -s)
}

// ScalarSub subtracts s from every element of m.
func (m *Dense) ScalarSub(s float64) {
	m.ScalarAdd(-s)
}

// ScalarMul returns s·m.
func ScalarMul(m *Dense, s float64) *Dense {
	out := alloc(m.rows, m.cols)
	floats.ScaleTo(out.data, s, m.data)
	return out
}

// Scale multiplies every element of m by s.
func (m *Dense) Scale(s float64) {
	floats.Scale(s, m.data)
}

// ScalarDiv returns m / s element-wise.
func ScalarDiv(m *Dense, s float64) *Dense {
	return ScalarMul(m, 1/s)
}

// ScalarDiv divides every element of m by s.
func (m *Dense) ScalarDiv(s float64) {
	m.Scale(1 / s)
}

// AddScaled adds s·b to m in place (m += s·b).
func (m *Dense) AddScaled(s float64, b *Dense) {
	if !m.SameShape(b) {
		mismatch("AddScaled", m, b)
	}
	floats.AddScaled(m.data, s, b.data)
}

// Apply returns f applied to every element of m.
func Apply(f func(float64) float64, m *Dense) *Dense {
	out := Copy(m)
	out.Apply(f)
	return out
}

// Apply replaces every element x of m with f(x).
func (m *Dense) Apply(f func(float64) float64) {
	for i, v := range m.data {
		m.data[i] = f(v)
	}
}

// AddColumn returns m with col[i] added to every element of row i.
// col must be m.Rows()×1.
func AddColumn(m, col *Dense) *Dense {
	out := Copy(m)
	out.AddColumn(col)
	return out
}

// AddColumn adds col[i] to every element of row i of m in place.
func (m *Dense) AddColumn(col *Dense) {
	if col.cols != 1 || col.rows != m.rows {
		panic(&DimensionError{
			Op:   "AddColumn",
			Want: shape(&Dense{rows: m.rows, cols: 1}),
			Got:  shape(col),
			Err:  ErrDimensionMismatch,
		})
	}
	for i := 0; i < m.rows; i++ {
		floats.AddConst(col.data[i], m.data[i*m.cols:(i+1)*m.cols])
	}
}
