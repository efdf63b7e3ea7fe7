package model

import (
	"fmt"

	"digitnet/internal/matrix"
)

// Predict runs one forward pass and returns the output probabilities, one
// column per input column of x.
func Predict(p *Params, x *matrix.Dense) (*matrix.Dense, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	acts, err := NewActivations(p, x.Cols())
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if err := matrix.Guard(func() { Forward(p, x, acts) }); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	return acts.Output(), nil
}

// PredictClass returns the most probable class of the single example x
// (features×1). The lowest index wins ties.
func PredictClass(p *Params, x *matrix.Dense) (int, error) {
	if x.Cols() != 1 {
		return 0, fmt.Errorf("predict class: %w: want 1 column, got %d", matrix.ErrDimensionMismatch, x.Cols())
	}
	out, err := Predict(p, x)
	if err != nil {
		return 0, err
	}
	return out.ArgMaxCol(0), nil
}

// PredictClasses returns the most probable class of every column of x.
func PredictClasses(p *Params, x *matrix.Dense) ([]int, error) {
	out, err := Predict(p, x)
	if err != nil {
		return nil, err
	}
	classes := make([]int, out.Cols())
	for j := range classes {
		classes[j] = out.ArgMaxCol(j)
	}
	return classes, nil
}
