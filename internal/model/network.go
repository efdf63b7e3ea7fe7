package model

import (
	"errors"
	"fmt"

	"digitnet/internal/matrix"
)

// Network pairs a parameter bundle with the gradient and activation buffers
// reused across training steps.
type Network struct {
	params *Params
	grads  *Params
	acts   *Activations
	lr     float64
}

// NewNetwork wraps p for training with learning rate lr. p is updated in
// place by every TrainStep.
func NewNetwork(p *Params, lr float64) (*Network, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if lr <= 0 {
		lr = 0.01
	}
	return &Network{params: p, grads: p.ZerosLike(), lr: lr}, nil
}

// Params returns the parameters being trained.
func (n *Network) Params() *Params { return n.params }

// Gradients returns the gradient computed by the most recent step.
func (n *Network) Gradients() *Params { return n.grads }

// LearningRate returns the step size.
func (n *Network) LearningRate() float64 { return n.lr }

// Output returns the output-layer activation of the most recent step, or
// nil before the first step.
func (n *Network) Output() *matrix.Dense {
	if n.acts == nil {
		return nil
	}
	return n.acts.Output()
}

// Release drops the gradient and activation buffers. A released network
// must not be stepped again; Params stays valid.
func (n *Network) Release() {
	n.grads = nil
	n.acts = nil
}

// TrainStep runs forward propagation, backpropagation and one parameter
// update on batch, returning the batch loss measured before the update.
// Shape mismatches are returned as errors wrapping matrix.ErrDimensionMismatch.
func (n *Network) TrainStep(batch Batch) (float64, error) {
	if batch.X == nil || batch.Y == nil {
		return 0, fmt.Errorf("train step: %w: empty batch", matrix.ErrDimensionMismatch)
	}
	if n.grads == nil {
		return 0, errors.New("train step: network released")
	}
	if n.acts == nil || n.acts.Batch() != batch.Size() {
		acts, err := NewActivations(n.params, batch.Size())
		if err != nil {
			return 0, fmt.Errorf("train step: %w", err)
		}
		n.acts = acts
	}

	var loss float64
	err := matrix.Guard(func() {
		Forward(n.params, batch.X, n.acts)
		loss = CrossEntropy(n.acts.Output(), batch.Y)
		Backward(n.params, batch.X, batch.Y, n.acts, n.grads)
		Update(n.params, n.grads, n.lr)
	})
	if err != nil {
		return 0, fmt.Errorf("train step: %w", err)
	}
	return loss, nil
}
