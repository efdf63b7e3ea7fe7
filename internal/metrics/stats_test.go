package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowSnapshot(t *testing.T) {
	var w Window
	w.Record(10, 20*time.Millisecond, 10*time.Millisecond, 1.2, 0.2)
	w.Record(10, 10*time.Millisecond, 20*time.Millisecond, 0.8, 0.6)
	assert.Equal(t, 2, w.Steps())

	snap := w.Snapshot()
	assert.InDelta(t, 333.333, snap.ExamplesPerSec, 0.01)
	assert.InDelta(t, 15, snap.AvgSampleMS, 1e-9)
	assert.InDelta(t, 15, snap.AvgComputeMS, 1e-9)
	assert.InDelta(t, 1.0, snap.AvgLoss, 1e-12)
	assert.InDelta(t, 0.4, snap.AvgAccuracy, 1e-12)
	assert.Equal(t, 0.8, snap.LastLoss)
	assert.Equal(t, 2, snap.Steps)

	assert.Equal(t, 0, w.Steps(), "window was not reset")
	assert.Equal(t, Snapshot{}, w.Snapshot())
}

func TestSnapshotString(t *testing.T) {
	s := Snapshot{Steps: 3, AvgLoss: 0.5, AvgAccuracy: 0.25}
	assert.Contains(t, s.String(), "steps=3 avg_loss=0.5000 avg_acc=0.250")
}
