package model

import (
	"fmt"

	"digitnet/internal/matrix"
)

// Activations holds the post-activation output A1..AL of every layer for a
// batch of fixed width. A0 is the input batch itself and is not stored.
type Activations struct {
	A []*matrix.Dense
}

// NewActivations allocates activation buffers for p and batch columns.
func NewActivations(p *Params, batch int) (*Activations, error) {
	acts := &Activations{A: make([]*matrix.Dense, len(p.Layers))}
	for i, l := range p.Layers {
		a, err := matrix.Zeros(l.Weights.Rows(), batch)
		if err != nil {
			return nil, fmt.Errorf("layer %d activations: %w", i+1, err)
		}
		acts.A[i] = a
	}
	return acts, nil
}

// Batch returns the number of columns the buffers were sized for.
func (a *Activations) Batch() int {
	if len(a.A) == 0 {
		return 0
	}
	return a.A[0].Cols()
}

// Output returns the last layer's activation.
func (a *Activations) Output() *matrix.Dense { return a.A[len(a.A)-1] }

// Forward runs forward propagation of x (features×batch) through p, writing
// every layer's activation into acts. For layer i:
//
//	Zi = Wi·A(i-1) + bi
//	Ai = fi(Zi)
//
// Zi is computed in the Ai buffer and overwritten by the activation.
// Mismatched shapes panic with a *matrix.DimensionError.
func Forward(p *Params, x *matrix.Dense, acts *Activations) {
	prev := x
	for i, l := range p.Layers {
		a := acts.A[i]
		matrix.MulInto(a, l.Weights, prev)
		a.AddColumn(l.Bias)
		l.Activation.Forward(a)
		prev = a
	}
}

// Backward derives the gradient of the batch loss with respect to every
// weight and bias and writes it into grads, which must be shaped like p.
// It expects acts to hold the result of Forward(p, x, acts) and y to be the
// one-hot targets for x.
//
//	dZL = AL - Y
//	dZi = (W(i+1)ᵀ·dZ(i+1)) ⊙ fi'(Ai)
//	dWi = dZi·A(i-1)ᵀ / m
//	dbi = rowSum(dZi) / m
func Backward(p *Params, x, y *matrix.Dense, acts *Activations, grads *Params) {
	last := len(p.Layers) - 1
	m := float64(x.Cols())

	dZ := matrix.Sub(acts.A[last], y)
	for i := last; i >= 0; i-- {
		prev := x
		if i > 0 {
			prev = acts.A[i-1]
		}
		g := grads.Layers[i]
		matrix.MulInto(g.Weights, dZ, matrix.Transpose(prev))
		g.Weights.Scale(1 / m)
		matrix.RowSumInto(g.Bias, dZ)
		g.Bias.Scale(1 / m)

		if i > 0 {
			dZ = matrix.Mul(matrix.Transpose(p.Layers[i].Weights), dZ)
			p.Layers[i-1].Activation.MulDerivative(dZ, acts.A[i-1])
		}
	}
}

// Update applies one gradient-descent step in place:
// Wi -= lr·dWi and bi -= lr·dbi for every layer.
func Update(p, grads *Params, lr float64) {
	for i, l := range p.Layers {
		l.Weights.AddScaled(-lr, grads.Layers[i].Weights)
		l.Bias.AddScaled(-lr, grads.Layers[i].Bias)
	}
}
