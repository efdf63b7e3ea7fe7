package dataset

import (
	"fmt"
	"math/rand"

	"digitnet/internal/matrix"
	"digitnet/internal/model"
)

// Sampler draws fixed-size mini-batches uniformly with replacement from a
// dataset. The batch matrices are allocated once and refilled on every draw,
// so a returned batch is only valid until the next call to Next.
type Sampler struct {
	ds  *Dataset
	rng *rand.Rand
	x   *matrix.Dense
	y   *matrix.Dense
}

// NewSampler prepares a sampler of batchSize columns.
func NewSampler(ds *Dataset, rng *rand.Rand, batchSize int) (*Sampler, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("dataset: batch size %d", batchSize)
	}
	x, err := matrix.Zeros(ds.Features(), batchSize)
	if err != nil {
		return nil, fmt.Errorf("batch input: %w", err)
	}
	y, err := matrix.Zeros(ds.Classes(), batchSize)
	if err != nil {
		return nil, fmt.Errorf("batch output: %w", err)
	}
	return &Sampler{ds: ds, rng: rng, x: x, y: y}, nil
}

// Next fills the batch with independently drawn example columns.
func (s *Sampler) Next() model.Batch {
	n := s.ds.Size()
	for j := 0; j < s.x.Cols(); j++ {
		src := s.rng.Intn(n)
		matrix.CopyColumn(s.x, j, s.ds.Input, src)
		matrix.CopyColumn(s.y, j, s.ds.Output, src)
	}
	return model.Batch{X: s.x, Y: s.y}
}
