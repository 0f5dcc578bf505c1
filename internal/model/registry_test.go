package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{ScaleLayerName, FocalLossName}, DefaultRegistry().Names())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("x", NewScaleLayer))
	assert.ErrorIs(t, r.Register("x", NewScaleLayer), ErrDuplicateCustomObject)
	assert.Error(t, r.Register("", NewScaleLayer))
	assert.Panics(t, func() { r.MustRegister("x", NewScaleLayer) })
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()

	obj, err := r.Resolve(CustomObjectSpec{Name: ScaleLayerName})
	require.NoError(t, err)
	layer := obj.(*ScaleLayer)
	assert.Equal(t, 1.0, layer.Scale)
	assert.Equal(t, 0.0, layer.Offset)

	_, err = r.Resolve(CustomObjectSpec{Name: "Mystery"})
	assert.ErrorIs(t, err, ErrUnknownCustomObject)

	_, err = r.Resolve(CustomObjectSpec{Name: FocalLossName, Config: map[string]any{"gamma": "two"}})
	assert.ErrorContains(t, err, "expected a number")

	_, err = r.Resolve(CustomObjectSpec{Name: FocalLossName, Config: map[string]any{"alpha": 1.5}})
	assert.Error(t, err)
}

func TestScaleLayer(t *testing.T) {
	t.Parallel()

	l := &ScaleLayer{Scale: 0.5, Offset: 1}
	assert.Equal(t, 3.0, l.Apply(4))
	assert.Equal(t, 4.0, l.Merge(2, 4))
}

func TestFocalLoss(t *testing.T) {
	t.Parallel()

	f := &FocalLoss{Gamma: 2, Alpha: 0.25}

	// confident and right costs almost nothing, confident and wrong costs a lot
	assert.Less(t, f.Loss(1, 0.99), 1e-4)
	assert.Greater(t, f.Loss(1, 0.01), 1.0)

	// gamma=0, alpha=0.5 reduces to half the binary cross entropy
	ce := &FocalLoss{Gamma: 0, Alpha: 0.5}
	assert.InDelta(t, -0.5*math.Log(0.8), ce.Loss(1, 0.8), 1e-12)
	assert.InDelta(t, -0.5*math.Log(0.8), ce.Loss(0, 0.2), 1e-12)

	// clipping keeps the loss finite
	assert.False(t, math.IsInf(f.Loss(1, 0), 0))

	assert.InDelta(t, (f.Loss(1, 0.9)+f.Loss(0, 0.3))/2, f.Mean([]float64{1, 0}, []float64{0.9, 0.3}), 1e-12)
	assert.Zero(t, f.Mean(nil, nil))
}

func TestMetadataScoreClass(t *testing.T) {
	t.Parallel()

	m := DefaultMetadata()
	assert.Equal(t, ClassNormal, m.ScoreClass())
	assert.Equal(t, 300*300*3, m.InputSize())
	require.NoError(t, m.Validate())

	m.Classes = []string{ClassNormal, ClassFaulty}
	assert.Equal(t, ClassFaulty, m.ScoreClass())
}
