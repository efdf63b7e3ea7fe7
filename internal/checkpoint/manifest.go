package checkpoint

import (
	"time"

	"github.com/google/uuid"

	"digitnet/internal/activation"
	"digitnet/internal/model"
)

// ManifestFile is the name of the metadata file stored next to the matrices.
const ManifestFile = "manifest.yaml"

// Manifest describes a saved parameter set. It is informational except for
// Activations, which Load uses to restore each layer's activation.
type Manifest struct {
	RunID       string            `yaml:"run_id"`
	Iteration   int               `yaml:"iteration"`
	InputSize   int               `yaml:"input_size"`
	Sizes       []int             `yaml:"sizes"`
	Activations []activation.Kind `yaml:"activations"`
	CreatedAt   time.Time         `yaml:"created_at"`
}

// NewRunID returns a fresh identifier for a training run.
func NewRunID() string { return uuid.NewString() }

// Describe builds the manifest for p at the given iteration. An empty runID
// is replaced by a fresh one.
func Describe(p *model.Params, runID string, iteration int) Manifest {
	if runID == "" {
		runID = NewRunID()
	}
	return Manifest{
		RunID:       runID,
		Iteration:   iteration,
		InputSize:   p.InputSize(),
		Sizes:       p.Sizes(),
		Activations: p.Activations(),
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}
