// Package trainer drives stochastic mini-batch gradient descent over a
// loaded dataset, logging progress and checkpointing parameters as it goes.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"digitnet/internal/checkpoint"
	"digitnet/internal/dataset"
	"digitnet/internal/matrix"
	"digitnet/internal/metrics"
	"digitnet/internal/model"
)

// State is the lifecycle position of a Trainer.
type State int

// Run moves a trainer through these states in order; Training and
// Checkpointed alternate while iterations remain.
const (
	Uninitialized State = iota
	Initialized
	Training
	Checkpointed
	Completed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Training:
		return "training"
	case Checkpointed:
		return "checkpointed"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrAlreadyRun is returned when Run is called on a trainer that has left
// the Uninitialized state.
var ErrAlreadyRun = errors.New("trainer: already run")

// RunConfig captures the knobs required by the training loop.
type RunConfig struct {
	Iterations   int
	BatchSize    int
	LearningRate float64
	// HiddenLayers and InitRange shape random initialisation; they are
	// ignored when Run receives parameters.
	HiddenLayers    []int
	InitRange       float64
	LogEvery        int
	CheckpointEvery int
	// CheckpointPath is overwritten every CheckpointEvery iterations.
	// Empty disables checkpointing.
	CheckpointPath string
	Debug          bool
	// RunID tags log lines and checkpoint manifests. Empty means a fresh one.
	RunID string
}

// Trainer owns one training run.
type Trainer struct {
	cfg       RunConfig
	rng       *rand.Rand
	state     State
	iteration int
}

// New validates cfg and returns a trainer drawing all randomness from rng.
func New(cfg RunConfig, rng *rand.Rand) (*Trainer, error) {
	if cfg.Iterations <= 0 {
		return nil, errors.New("trainer: iterations must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.New("trainer: batch size must be > 0")
	}
	if cfg.LearningRate <= 0 {
		return nil, errors.New("trainer: learning rate must be > 0")
	}
	if rng == nil {
		return nil, errors.New("trainer: nil random source")
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 100
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 500
	}
	if cfg.RunID == "" {
		cfg.RunID = checkpoint.NewRunID()
	}
	return &Trainer{cfg: cfg, rng: rng}, nil
}

// State reports where the trainer is in its lifecycle.
func (t *Trainer) State() State { return t.state }

// Iteration is the index of the last completed iteration.
func (t *Trainer) Iteration() int { return t.iteration }

// RunID identifies this run in logs and checkpoints.
func (t *Trainer) RunID() string { return t.cfg.RunID }

// Run trains on ds for the configured number of iterations and returns the
// final parameters. When initial is nil the parameters are initialised
// randomly; otherwise initial is trained in place.
//
// Cancelling ctx stops training between iterations: the current parameters
// are checkpointed and returned together with ctx.Err().
func (t *Trainer) Run(ctx context.Context, ds *dataset.Dataset, initial *model.Params) (*model.Params, error) {
	if t.state != Uninitialized {
		return nil, ErrAlreadyRun
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}

	params, err := t.initialize(ds, initial)
	if err != nil {
		return nil, err
	}
	t.state = Initialized

	net, err := model.NewNetwork(params, t.cfg.LearningRate)
	if err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}
	defer net.Release()

	sampler, err := dataset.NewSampler(ds, t.rng, t.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}

	log.Printf("run=%s start iterations=%d batch=%d lr=%g sizes=%v examples=%d",
		t.cfg.RunID, t.cfg.Iterations, t.cfg.BatchSize, t.cfg.LearningRate, params.Sizes(), ds.Size())

	var window metrics.Window
	for i := 0; i < t.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			log.Printf("run=%s interrupted iteration=%d", t.cfg.RunID, i)
			if cerr := t.checkpoint(params, i); cerr != nil {
				return params, errors.Join(err, cerr)
			}
			return params, err
		}
		t.state = Training

		startSample := time.Now()
		batch := sampler.Next()
		sampleTime := time.Since(startSample)

		startCompute := time.Now()
		loss, err := net.TrainStep(batch)
		if err != nil {
			return nil, fmt.Errorf("trainer: iteration %d: %w", i, err)
		}
		computeTime := time.Since(startCompute)

		acc := model.BatchAccuracy(net.Output(), batch.Y)
		window.Record(batch.Size(), sampleTime, computeTime, loss, acc)
		t.iteration = i

		if i%t.cfg.LogEvery == 0 {
			snap := window.Snapshot()
			if t.cfg.Debug {
				log.Printf("run=%s iteration=%d loss=%.4f accuracy=%.3f %s", t.cfg.RunID, i, loss, acc, snap)
			} else {
				log.Printf("run=%s iteration=%d loss=%.4f avg_loss=%.4f", t.cfg.RunID, i, loss, snap.AvgLoss)
			}
		}
		if i%t.cfg.CheckpointEvery == 0 {
			if err := t.checkpoint(params, i); err != nil {
				return nil, err
			}
		}
	}

	t.state = Completed
	log.Printf("run=%s completed iterations=%d", t.cfg.RunID, t.cfg.Iterations)
	return params, nil
}

func (t *Trainer) initialize(ds *dataset.Dataset, initial *model.Params) (*model.Params, error) {
	if initial == nil {
		sizes := append(append([]int(nil), t.cfg.HiddenLayers...), ds.Classes())
		initRange := t.cfg.InitRange
		if initRange <= 0 {
			initRange = 0.1
		}
		p, err := model.NewParams(t.rng, ds.Features(), sizes, initRange)
		if err != nil {
			return nil, fmt.Errorf("trainer: init: %w", err)
		}
		return p, nil
	}
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}
	if initial.InputSize() != ds.Features() || initial.OutputSize() != ds.Classes() {
		return nil, fmt.Errorf("trainer: %w: parameters map %d features to %d classes, dataset has %d and %d",
			matrix.ErrDimensionMismatch, initial.InputSize(), initial.OutputSize(), ds.Features(), ds.Classes())
	}
	return initial, nil
}

func (t *Trainer) checkpoint(p *model.Params, iteration int) error {
	if t.cfg.CheckpointPath == "" {
		return nil
	}
	meta := checkpoint.Describe(p, t.cfg.RunID, iteration)
	if err := checkpoint.Save(t.cfg.CheckpointPath, p, meta); err != nil {
		return fmt.Errorf("trainer: checkpoint at iteration %d: %w", iteration, err)
	}
	t.state = Checkpointed
	log.Printf("run=%s checkpoint iteration=%d path=%s", t.cfg.RunID, iteration, t.cfg.CheckpointPath)
	return nil
}
