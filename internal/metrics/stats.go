// Package metrics aggregates per-step training measurements between log lines.
package metrics

import (
	"fmt"
	"time"
)

// Window accumulates step measurements until the next Snapshot.
type Window struct {
	examples int
	sample   time.Duration
	compute  time.Duration
	steps    int
	loss     float64
	accuracy float64
	lastLoss float64
}

// Record adds one training step: the batch width, the time spent drawing the
// batch, the time spent in forward/backward/update, and the batch loss and
// accuracy.
func (w *Window) Record(batchSize int, sampleTime, computeTime time.Duration, loss, accuracy float64) {
	w.examples += batchSize
	w.sample += sampleTime
	w.compute += computeTime
	w.steps++
	w.loss += loss
	w.accuracy += accuracy
	w.lastLoss = loss
}

// Steps is the number of steps recorded since the last Snapshot.
func (w *Window) Steps() int { return w.steps }

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Steps: w.steps, LastLoss: w.lastLoss}
	total := w.sample + w.compute
	if total > 0 {
		snap.ExamplesPerSec = float64(w.examples) / total.Seconds()
	}
	if w.steps > 0 {
		n := float64(w.steps)
		snap.AvgSampleMS = w.sample.Seconds() * 1000 / n
		snap.AvgComputeMS = w.compute.Seconds() * 1000 / n
		snap.AvgLoss = w.loss / n
		snap.AvgAccuracy = w.accuracy / n
	}

	*w = Window{}
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	Steps          int
	ExamplesPerSec float64
	AvgSampleMS    float64
	AvgComputeMS   float64
	AvgLoss        float64
	AvgAccuracy    float64
	LastLoss       float64
}

// String renders the snapshot as key=value pairs for log lines.
func (s Snapshot) String() string {
	return fmt.Sprintf("steps=%d avg_loss=%.4f avg_acc=%.3f ex/s=%.1f sample_ms=%.3f compute_ms=%.3f",
		s.Steps, s.AvgLoss, s.AvgAccuracy, s.ExamplesPerSec, s.AvgSampleMS, s.AvgComputeMS)
}
