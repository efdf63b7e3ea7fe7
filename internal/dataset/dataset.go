// Package dataset turns a directory of labelled digit images into the
// feature and one-hot target matrices the network trains on, and draws
// mini-batches from them.
package dataset

import (
	"errors"
	"fmt"

	"digitnet/internal/matrix"
)

// ErrEmpty indicates a dataset without a single usable example.
var ErrEmpty = errors.New("dataset: no examples")

// Dataset holds N examples as columns: Input is features×N and Output is
// classes×N with exactly one 1 per column.
type Dataset struct {
	Input  *matrix.Dense
	Output *matrix.Dense
	// Paths lists the source file of every column, when loaded from disk.
	Paths []string
}

// FromExamples builds a dataset from per-example feature vectors and class
// indices.
func FromExamples(features [][]float64, labels []int, classes int) (*Dataset, error) {
	if len(features) == 0 {
		return nil, ErrEmpty
	}
	if len(labels) != len(features) {
		return nil, fmt.Errorf("dataset: %d labels for %d examples", len(labels), len(features))
	}
	width := len(features[0])
	in, err := matrix.Zeros(width, len(features))
	if err != nil {
		return nil, fmt.Errorf("dataset input: %w", err)
	}
	out, err := matrix.Zeros(classes, len(features))
	if err != nil {
		return nil, fmt.Errorf("dataset output: %w", err)
	}
	for j, f := range features {
		if len(f) != width {
			return nil, fmt.Errorf("dataset: example %d has %d features, want %d", j, len(f), width)
		}
		if labels[j] < 0 || labels[j] >= classes {
			return nil, fmt.Errorf("dataset: example %d has label %d outside [0,%d)", j, labels[j], classes)
		}
		for i, v := range f {
			in.Set(i, j, v)
		}
		out.Set(labels[j], j, 1)
	}
	return &Dataset{Input: in, Output: out}, nil
}

// Size is the number of examples.
func (d *Dataset) Size() int { return d.Input.Cols() }

// Features is the number of input rows.
func (d *Dataset) Features() int { return d.Input.Rows() }

// Classes is the number of output rows.
func (d *Dataset) Classes() int { return d.Output.Rows() }

// Validate checks that both matrices describe the same examples and that
// every target column is one-hot.
func (d *Dataset) Validate() error {
	if d == nil || d.Input == nil || d.Output == nil || d.Size() == 0 {
		return ErrEmpty
	}
	if d.Output.Cols() != d.Input.Cols() {
		return fmt.Errorf("dataset: %d inputs but %d targets", d.Input.Cols(), d.Output.Cols())
	}
	for j := 0; j < d.Size(); j++ {
		ones := 0
		for i := 0; i < d.Classes(); i++ {
			switch d.Output.At(i, j) {
			case 0:
			case 1:
				ones++
			default:
				ones = -1
			}
		}
		if ones != 1 {
			return fmt.Errorf("dataset: target column %d is not one-hot", j)
		}
	}
	return nil
}
