// Package activation defines the closed set of layer activations. Each kind
// carries its forward rule and the derivative rule used by backpropagation.
package activation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"digitnet/internal/matrix"
)

// ErrUnknown is returned when parsing an activation name fails.
var ErrUnknown = errors.New("activation: unknown kind")

// Kind selects an activation.
type Kind int

const (
	// ReLU is max(x, 0) followed by per-column normalisation: any column
	// whose maximum exceeds 1 is divided by that maximum.
	ReLU Kind = iota
	// Sigmoid is 1 / (1 + e^-x).
	Sigmoid
	// Softmax normalises each column into a probability distribution.
	Softmax
)

var names = map[Kind]string{
	ReLU:    "relu",
	Sigmoid: "sigmoid",
	Softmax: "softmax",
}

func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Parse returns the Kind named s (case-insensitive).
func Parse(s string) (Kind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for k, n := range names {
		if n == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknown, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	n, ok := names[k]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, int(k))
	}
	return []byte(n), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Forward applies the activation to the pre-activation z in place, turning
// it into the layer's activation.
func (k Kind) Forward(z *matrix.Dense) {
	switch k {
	case ReLU:
		z.Apply(relu)
		z.NormalizeColumns()
	case Sigmoid:
		z.Apply(sigmoid)
	case Softmax:
		z.ColumnSoftmax()
	default:
		panic(fmt.Sprintf("activation: forward of %v", k))
	}
}

// Derivative returns f'(·) evaluated element-wise on the activation a.
// ReLU uses 1 where a > 0 and 0 elsewhere; Sigmoid and Softmax use a(1-a),
// the latter being the diagonal of the softmax Jacobian.
func (k Kind) Derivative(a *matrix.Dense) *matrix.Dense {
	d := matrix.Copy(a)
	d.Apply(k.prime())
	return d
}

// MulDerivative multiplies g in place by f'(a), element-wise. g and a must
// have the same shape.
func (k Kind) MulDerivative(g, a *matrix.Dense) {
	if !g.SameShape(a) {
		panic(&matrix.DimensionError{
			Op:   "MulDerivative",
			Want: fmt.Sprintf("%dx%d", a.Rows(), a.Cols()),
			Got:  fmt.Sprintf("%dx%d", g.Rows(), g.Cols()),
			Err:  matrix.ErrDimensionMismatch,
		})
	}
	prime := k.prime()
	gd, ad := g.RawData(), a.RawData()
	for i, v := range ad {
		gd[i] *= prime(v)
	}
}

func (k Kind) prime() func(float64) float64 {
	switch k {
	case ReLU:
		return reluPrime
	case Sigmoid, Softmax:
		return logisticPrime
	default:
		panic(fmt.Sprintf("activation: derivative of %v", k))
	}
}

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func reluPrime(a float64) float64 {
	if a > 0 {
		return 1
	}
	return 0
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// logisticPrime expects the activation value, not the pre-activation.
func logisticPrime(a float64) float64 {
	return a * (1 - a)
}
