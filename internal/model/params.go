package model

import (
	"errors"
	"fmt"
	"math/rand"

	"digitnet/internal/activation"
	"digitnet/internal/matrix"
)

// ErrInvalidParams indicates a parameter bundle whose layer shapes do not chain.
var ErrInvalidParams = errors.New("model: invalid parameters")

// Layer is one fully connected layer. Weights is neurons×inputs and Bias is
// neurons×1.
type Layer struct {
	Weights    *matrix.Dense
	Bias       *matrix.Dense
	Activation activation.Kind
}

// Params is the ordered list of layers that makes up a trained model.
// A Params owns its matrices; callers that need an independent copy use Clone.
type Params struct {
	Layers []Layer
}

// DefaultActivations returns ReLU for every hidden layer and Softmax for the
// output layer of an n-layer network.
func DefaultActivations(n int) []activation.Kind {
	kinds := make([]activation.Kind, n)
	for i := range kinds {
		kinds[i] = activation.ReLU
	}
	if n > 0 {
		kinds[n-1] = activation.Softmax
	}
	return kinds
}

// NewParams builds a network taking inputSize features with one layer per
// entry of sizes, the last being the output layer. Weights and biases are
// drawn uniformly from [-initRange, initRange) using rng.
func NewParams(rng *rand.Rand, inputSize int, sizes []int, initRange float64) (*Params, error) {
	return NewParamsWithActivations(rng, inputSize, sizes, DefaultActivations(len(sizes)), initRange)
}

// NewParamsWithActivations is NewParams with an explicit activation per layer.
func NewParamsWithActivations(rng *rand.Rand, inputSize int, sizes []int, kinds []activation.Kind, initRange float64) (*Params, error) {
	if len(sizes) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrInvalidParams)
	}
	if len(kinds) != len(sizes) {
		return nil, fmt.Errorf("%w: %d activations for %d layers", ErrInvalidParams, len(kinds), len(sizes))
	}
	if inputSize <= 0 {
		return nil, fmt.Errorf("%w: input size %d", ErrInvalidParams, inputSize)
	}
	p := &Params{Layers: make([]Layer, len(sizes))}
	prev := inputSize
	for i, n := range sizes {
		if n <= 0 {
			return nil, fmt.Errorf("%w: layer %d has %d neurons", ErrInvalidParams, i+1, n)
		}
		w, err := matrix.NewRandom(rng, n, prev, -initRange, initRange)
		if err != nil {
			return nil, fmt.Errorf("layer %d weights: %w", i+1, err)
		}
		b, err := matrix.NewRandom(rng, n, 1, -initRange, initRange)
		if err != nil {
			return nil, fmt.Errorf("layer %d bias: %w", i+1, err)
		}
		p.Layers[i] = Layer{Weights: w, Bias: b, Activation: kinds[i]}
		prev = n
	}
	return p, nil
}

// Validate checks that every bias is a column matching its weights and that
// consecutive layers chain.
func (p *Params) Validate() error {
	if p == nil || len(p.Layers) == 0 {
		return fmt.Errorf("%w: no layers", ErrInvalidParams)
	}
	for i, l := range p.Layers {
		if l.Weights == nil || l.Bias == nil {
			return fmt.Errorf("%w: layer %d is missing a matrix", ErrInvalidParams, i+1)
		}
		if l.Bias.Cols() != 1 || l.Bias.Rows() != l.Weights.Rows() {
			return fmt.Errorf("%w: layer %d bias is %dx%d for %d neurons",
				ErrInvalidParams, i+1, l.Bias.Rows(), l.Bias.Cols(), l.Weights.Rows())
		}
		if i > 0 && l.Weights.Cols() != p.Layers[i-1].Weights.Rows() {
			return fmt.Errorf("%w: layer %d takes %d inputs, previous layer has %d neurons",
				ErrInvalidParams, i+1, l.Weights.Cols(), p.Layers[i-1].Weights.Rows())
		}
	}
	return nil
}

// InputSize is the number of features the first layer consumes.
func (p *Params) InputSize() int { return p.Layers[0].Weights.Cols() }

// OutputSize is the number of neurons of the last layer.
func (p *Params) OutputSize() int { return p.Layers[len(p.Layers)-1].Weights.Rows() }

// Sizes returns the neuron count of every layer.
func (p *Params) Sizes() []int {
	sizes := make([]int, len(p.Layers))
	for i, l := range p.Layers {
		sizes[i] = l.Weights.Rows()
	}
	return sizes
}

// Activations returns the activation kind of every layer.
func (p *Params) Activations() []activation.Kind {
	kinds := make([]activation.Kind, len(p.Layers))
	for i, l := range p.Layers {
		kinds[i] = l.Activation
	}
	return kinds
}

// ZerosLike returns a bundle with the same shapes and activations, filled
// with zeros. The trainer uses it to hold gradients.
func (p *Params) ZerosLike() *Params {
	out := &Params{Layers: make([]Layer, len(p.Layers))}
	for i, l := range p.Layers {
		w := matrix.Copy(l.Weights)
		w.Fill(0)
		b := matrix.Copy(l.Bias)
		b.Fill(0)
		out.Layers[i] = Layer{Weights: w, Bias: b, Activation: l.Activation}
	}
	return out
}

// Clone returns a deep copy of p.
func (p *Params) Clone() *Params {
	out := &Params{Layers: make([]Layer, len(p.Layers))}
	for i, l := range p.Layers {
		out.Layers[i] = Layer{
			Weights:    matrix.Copy(l.Weights),
			Bias:       matrix.Copy(l.Bias),
			Activation: l.Activation,
		}
	}
	return out
}

// Equal reports exact equality of every weight and bias and of the activations.
func Equal(a, b *Params) bool {
	if len(a.Layers) != len(b.Layers) {
		return false
	}
	for i := range a.Layers {
		la, lb := a.Layers[i], b.Layers[i]
		if la.Activation != lb.Activation ||
			!matrix.Equal(la.Weights, lb.Weights) ||
			!matrix.Equal(la.Bias, lb.Bias) {
			return false
		}
	}
	return true
}
