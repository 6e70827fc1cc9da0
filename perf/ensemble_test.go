package perf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stump splits on feature 0 at 2.5.
func stump(left, right float64) *Tree {
	return &Tree{Nodes: []Node{
		{Feature: 0, Threshold: 2.5, Left: 1, Right: 2},
		{Leaf: true, Value: left},
		{Leaf: true, Value: right},
	}}
}

func TestTree_Evaluate_ThresholdGoesLeft(t *testing.T) {
	tree := stump(-3, 11)
	assert.Equal(t, -3.0, tree.Evaluate([]float64{1}))
	assert.Equal(t, -3.0, tree.Evaluate([]float64{2.5}))
	assert.Equal(t, 11.0, tree.Evaluate([]float64{5}))
}

func TestTree_DepthTwo(t *testing.T) {
	tree := &Tree{Nodes: []Node{
		{Feature: 0, Threshold: 2.5, Left: 1, Right: 2},
		{Feature: 1, Threshold: 0, Left: 3, Right: 4},
		{Leaf: true, Value: 7},
		{Leaf: true, Value: 1},
		{Leaf: true, Value: 2},
	}}
	assert.Equal(t, 2, tree.Depth())
	assert.Equal(t, 3, tree.Leaves())
	assert.Equal(t, 1.0, tree.Evaluate([]float64{1, -1}))
	assert.Equal(t, 2.0, tree.Evaluate([]float64{1, 1}))
	assert.Equal(t, 7.0, tree.Evaluate([]float64{5, 0}))
}

func TestNewEnsemble_UniformWeightZeroBias(t *testing.T) {
	// GIVEN three trees
	e := NewEnsemble([]*Tree{stump(0, 3), stump(3, 6), stump(6, 9)}, []string{"arg1"})

	// THEN weights sum to one and the bias is zero
	assert.InDelta(t, 1.0, e.Weight*float64(len(e.Trees)), 1e-12)
	assert.Equal(t, 0.0, e.Bias)

	// AND prediction is the mean of the tree outputs
	assert.InDelta(t, 3.0, e.Predict([]float64{1}), 1e-12)
	assert.InDelta(t, 6.0, e.Predict([]float64{4}), 1e-12)
}

func TestNewTrainer_Unregistered_Errors(t *testing.T) {
	saved := NewTrainerFunc
	NewTrainerFunc = nil
	defer func() { NewTrainerFunc = saved }()

	_, err := NewTrainer(StrategyBagged)
	require.Error(t, err)
}

func TestFormatFloat_RoundTrips(t *testing.T) {
	for _, v := range []float64{0, 1, 0.1, 1.0 / 3.0, -2.5e-9, 123456789.125} {
		assert.Equal(t, v, mustParse(t, FormatFloat(v)))
	}
}
