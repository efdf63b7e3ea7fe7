// Package model implements the multi-layer perceptron: parameter bundles,
// forward propagation, backpropagation, gradient-descent updates, loss and
// prediction.
package model

import "digitnet/internal/matrix"

// Batch is a mini-batch of examples stored column-wise: column j of X is
// the feature vector of example j and column j of Y its one-hot target.
type Batch struct {
	X *matrix.Dense
	Y *matrix.Dense
}

// Size returns the number of examples in the batch.
func (b Batch) Size() int { return b.X.Cols() }
