package model

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"

	"digitnet/internal/activation"
	"digitnet/internal/matrix"
)

func dense(t *testing.T, rows, cols int, data ...float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.FromSlice(rows, cols, data)
	require.NoError(t, err)
	return m
}

// smallNet is a 2-3-2 network whose hidden pre-activations stay well away
// from zero and below one for smallBatch, so no column rescaling happens.
func smallNet(t *testing.T) *Params {
	t.Helper()
	return &Params{Layers: []Layer{
		{
			Weights:    dense(t, 3, 2, 0.3, -0.2, -0.4, 0.1, 0.25, 0.35),
			Bias:       dense(t, 3, 1, 0.05, 0.02, -0.03),
			Activation: activation.ReLU,
		},
		{
			Weights:    dense(t, 2, 3, 0.5, -0.3, 0.2, -0.1, 0.4, 0.6),
			Bias:       dense(t, 2, 1, 0.1, -0.1),
			Activation: activation.Softmax,
		},
	}}
}

func smallBatch(t *testing.T) Batch {
	t.Helper()
	return Batch{
		X: dense(t, 2, 3,
			0.2, 0.9, 0.4,
			0.7, 0.1, 0.5,
		),
		Y: dense(t, 2, 3,
			0, 1, 0,
			1, 0, 1,
		),
	}
}

func flatten(p *Params) []float64 {
	var out []float64
	for _, l := range p.Layers {
		out = append(out, l.Weights.RawData()...)
		out = append(out, l.Bias.RawData()...)
	}
	return out
}

func unflatten(p *Params, v []float64) {
	off := 0
	for _, l := range p.Layers {
		off += copy(l.Weights.RawData(), v[off:])
		off += copy(l.Bias.RawData(), v[off:])
	}
}

func TestNewParamsShapesAndRange(t *testing.T) {
	p, err := NewParams(rand.New(rand.NewSource(1)), 5, []int{4, 3, 2}, 0.1)
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	assert.Equal(t, 5, p.InputSize())
	assert.Equal(t, 2, p.OutputSize())
	assert.Equal(t, []int{4, 3, 2}, p.Sizes())
	assert.Equal(t, []activation.Kind{activation.ReLU, activation.ReLU, activation.Softmax}, p.Activations())

	w1 := p.Layers[0].Weights
	assert.Equal(t, 4, w1.Rows())
	assert.Equal(t, 5, w1.Cols())
	assert.Equal(t, 3, p.Layers[1].Weights.Rows())
	assert.Equal(t, 4, p.Layers[1].Weights.Cols())
	for _, l := range p.Layers {
		assert.Equal(t, l.Weights.Rows(), l.Bias.Rows())
		assert.Equal(t, 1, l.Bias.Cols())
		for _, v := range append(l.Weights.RawData(), l.Bias.RawData()...) {
			assert.GreaterOrEqual(t, v, -0.1)
			assert.Less(t, v, 0.1)
		}
	}
	zeros := p.ZerosLike()
	assert.False(t, matrix.Equal(p.Layers[1].Weights, zeros.Layers[1].Weights))
	assert.Equal(t, p.Sizes(), zeros.Sizes())
}

func TestNewParamsRejectsBadTopology(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := NewParams(rng, 3, nil, 0.1)
	require.ErrorIs(t, err, ErrInvalidParams)
	_, err = NewParams(rng, 0, []int{2}, 0.1)
	require.ErrorIs(t, err, ErrInvalidParams)
	_, err = NewParams(rng, 3, []int{2, 0}, 0.1)
	require.ErrorIs(t, err, ErrInvalidParams)
	_, err = NewParamsWithActivations(rng, 3, []int{2}, nil, 0.1)
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestValidateDetectsBrokenChain(t *testing.T) {
	p := smallNet(t)
	p.Layers[1].Weights = dense(t, 2, 2, 1, 1, 1, 1)
	require.ErrorIs(t, p.Validate(), ErrInvalidParams)

	p = smallNet(t)
	p.Layers[0].Bias = dense(t, 2, 1, 0, 0)
	require.ErrorIs(t, p.Validate(), ErrInvalidParams)

	require.ErrorIs(t, (&Params{}).Validate(), ErrInvalidParams)
}

func TestForwardShapeLaw(t *testing.T) {
	p, err := NewParams(rand.New(rand.NewSource(2)), 6, []int{5, 4, 3}, 0.5)
	require.NoError(t, err)
	x, err := matrix.NewRandom(rand.New(rand.NewSource(3)), 6, 7, 0, 1)
	require.NoError(t, err)

	acts, err := NewActivations(p, 7)
	require.NoError(t, err)
	Forward(p, x, acts)

	out := acts.Output()
	assert.Equal(t, 3, out.Rows())
	assert.Equal(t, 7, out.Cols())
	for j := 0; j < out.Cols(); j++ {
		sum := 0.0
		for _, v := range out.Col(j) {
			sum += v
		}
		assert.InDelta(t, 1, sum, 1e-9)
	}
	for _, a := range acts.A[:2] {
		for _, v := range a.RawData() {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestForwardRescalesReLUColumns(t *testing.T) {
	p := &Params{Layers: []Layer{
		{Weights: dense(t, 2, 2, 3, 0, 0, 1), Bias: dense(t, 2, 1, 0, 0), Activation: activation.ReLU},
		{Weights: dense(t, 2, 2, 1, 0, 0, 1), Bias: dense(t, 2, 1, 0, 0), Activation: activation.Softmax},
	}}
	x := dense(t, 2, 2,
		1, 0.5,
		1, 0.2,
	)
	acts, err := NewActivations(p, 2)
	require.NoError(t, err)
	Forward(p, x, acts)

	hidden := acts.A[0]
	assert.InDelta(t, 1, hidden.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0/3, hidden.At(1, 0), 1e-12)
	assert.InDelta(t, 1, hidden.At(0, 1), 1e-12)
	assert.InDelta(t, 0.2/1.5, hidden.At(1, 1), 1e-12)
}

func TestForwardRejectsWrongInputWidth(t *testing.T) {
	p := smallNet(t)
	acts, err := NewActivations(p, 3)
	require.NoError(t, err)
	err = matrix.Guard(func() { Forward(p, dense(t, 3, 3, make([]float64, 9)...), acts) })
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

func TestBackwardMatchesFiniteDifferences(t *testing.T) {
	p := smallNet(t)
	b := smallBatch(t)
	acts, err := NewActivations(p, b.Size())
	require.NoError(t, err)

	origin := flatten(p)
	loss := func(v []float64) float64 {
		unflatten(p, v)
		Forward(p, b.X, acts)
		return CrossEntropy(acts.Output(), b.Y)
	}
	point := append([]float64(nil), origin...)
	want := fd.Gradient(nil, loss, point, &fd.Settings{Formula: fd.Central})

	unflatten(p, origin)
	grads := p.ZerosLike()
	Forward(p, b.X, acts)
	Backward(p, b.X, b.Y, acts, grads)

	got := flatten(grads)
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6, "parameter %d", i)
	}
}

func TestBackwardOutputLayerShortcut(t *testing.T) {
	p := &Params{Layers: []Layer{
		{Weights: dense(t, 2, 2, 0, 0, 0, 0), Bias: dense(t, 2, 1, 0, 0), Activation: activation.Softmax},
	}}
	x := dense(t, 2, 2,
		1, 2,
		3, 4,
	)
	y := dense(t, 2, 2,
		1, 0,
		0, 1,
	)
	acts, err := NewActivations(p, 2)
	require.NoError(t, err)
	grads := p.ZerosLike()
	Forward(p, x, acts)
	Backward(p, x, y, acts, grads)

	// A = 0.5 everywhere, so dZ = [[-0.5, 0.5], [0.5, -0.5]].
	dW := grads.Layers[0].Weights
	assert.InDelta(t, (-0.5*1+0.5*2)/2, dW.At(0, 0), 1e-12)
	assert.InDelta(t, (-0.5*3+0.5*4)/2, dW.At(0, 1), 1e-12)
	assert.InDelta(t, (0.5*1-0.5*2)/2, dW.At(1, 0), 1e-12)
	assert.Equal(t, []float64{0, 0}, grads.Layers[0].Bias.RawData())
}

func TestUpdateIsPlainGradientStep(t *testing.T) {
	p := smallNet(t)
	before := p.Clone()
	grads := p.ZerosLike()
	grads.Layers[0].Weights.Fill(1)
	grads.Layers[1].Bias.Fill(-2)
	w := p.Layers[0].Weights

	Update(p, grads, 0.5)

	assert.Same(t, w, p.Layers[0].Weights, "update must not reallocate")
	for i, v := range p.Layers[0].Weights.RawData() {
		assert.Equal(t, before.Layers[0].Weights.RawData()[i]-0.5, v)
	}
	for i, v := range p.Layers[1].Bias.RawData() {
		assert.Equal(t, before.Layers[1].Bias.RawData()[i]+1, v)
	}
	assert.True(t, matrix.Equal(before.Layers[1].Weights, p.Layers[1].Weights))
}

func TestTrainStepReducesLoss(t *testing.T) {
	p, err := NewParams(rand.New(rand.NewSource(4)), 2, []int{4, 2}, 0.1)
	require.NoError(t, err)
	net, err := NewNetwork(p, 0.5)
	require.NoError(t, err)

	batch := Batch{
		X: dense(t, 2, 4,
			0, 0, 1, 1,
			0, 1, 0, 1,
		),
		Y: dense(t, 2, 4,
			1, 1, 0, 0,
			0, 0, 1, 1,
		),
	}
	first, err := net.TrainStep(batch)
	require.NoError(t, err)
	last := first
	for i := 0; i < 300; i++ {
		last, err = net.TrainStep(batch)
		require.NoError(t, err)
	}
	assert.Less(t, last, first)
	assert.NotNil(t, net.Output())
	assert.Same(t, p, net.Params())

	net.Release()
	assert.Nil(t, net.Output())
	_, err = net.TrainStep(batch)
	assert.Error(t, err)
}

func TestTrainStepMismatchLeavesParamsUntouched(t *testing.T) {
	p := smallNet(t)
	before := p.Clone()
	net, err := NewNetwork(p, 0.1)
	require.NoError(t, err)

	b := smallBatch(t)
	b.Y = dense(t, 3, 3, make([]float64, 9)...)
	_, err = net.TrainStep(b)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
	assert.True(t, Equal(before, p))

	_, err = net.TrainStep(Batch{})
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

func TestPredict(t *testing.T) {
	p := &Params{Layers: []Layer{
		{Weights: dense(t, 3, 2, 0, 0, 0, 0, 0, 0), Bias: dense(t, 3, 1, 0, 0, 0), Activation: activation.Softmax},
	}}
	x := dense(t, 2, 1, 1, 1)
	class, err := PredictClass(p, x)
	require.NoError(t, err)
	assert.Equal(t, 0, class, "first index wins ties")

	p.Layers[0].Bias = dense(t, 3, 1, 0, 0, 2)
	class, err = PredictClass(p, x)
	require.NoError(t, err)
	assert.Equal(t, 2, class)

	_, err = PredictClass(p, dense(t, 2, 2, 1, 1, 1, 1))
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	classes, err := PredictClasses(p, dense(t, 2, 2, 1, 1, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, classes)

	_, err = Predict(p, dense(t, 3, 1, 1, 1, 1))
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

func TestLossAndAccuracy(t *testing.T) {
	a := dense(t, 2, 4,
		0.9, 0.4, 0.5, 0.2,
		0.1, 0.6, 0.5, 0.8,
	)
	y := dense(t, 2, 4,
		1, 1, 0, 0,
		0, 0, 1, 1,
	)
	assert.Equal(t, 0.75, BatchAccuracy(a, y))
	assert.Equal(t, 0.5, Accuracy(a, y))

	perfect := dense(t, 2, 1, 1, 0)
	assert.Equal(t, 0.0, CrossEntropy(perfect, dense(t, 2, 1, 1, 0)))
	assert.InDelta(t, 27.631, CrossEntropy(perfect, dense(t, 2, 1, 0, 1)), 1e-3)
}
