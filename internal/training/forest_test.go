package training_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/service"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/infrastructure/forest"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/training"
)

// separable labels rows by sex alone.
func separable() ([]service.FeatureVector, []int) {
	var x []service.FeatureVector
	var y []int
	for i := range 40 {
		var v service.FeatureVector
		v[service.FeatureClass] = float64(1 + i%3)
		v[service.FeatureSex] = float64(i % 2)
		v[service.FeatureAge] = float64(10 + i)
		v[service.FeatureFare] = float64(5 + i*3)
		x = append(x, v)
		y = append(y, i%2)
	}
	return x, y
}

func TestFitForest_LearnsSeparableData(t *testing.T) {
	x, y := separable()

	m, err := training.FitForest(context.Background(), x, y, training.ForestParams{NEstimators: 15, MaxDepth: 4, Seed: 1})
	require.NoError(t, err)

	require.NoError(t, m.Validate(service.NumFeatures))
	assert.Len(t, m.Trees, 15)
	assert.GreaterOrEqual(t, training.Accuracy(&m, x, y), 0.95)

	_, err = forest.NewClassifier(&m)
	assert.NoError(t, err, "fitted forests satisfy the serving adapter")
}

func TestFitForest_Deterministic(t *testing.T) {
	ds, err := training.LoadCSV("testdata/train.csv")
	require.NoError(t, err)
	x, err := training.Encode(ds, mustImputation(t, ds))
	require.NoError(t, err)

	p := training.ForestParams{NEstimators: 10, MaxDepth: 6, Seed: 42}
	a, err := training.FitForest(context.Background(), x, ds.Labels, p)
	require.NoError(t, err)
	b, err := training.FitForest(context.Background(), x, ds.Labels, p)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestFitForest_MaxDepth(t *testing.T) {
	ds, err := training.LoadCSV("testdata/train.csv")
	require.NoError(t, err)
	x, err := training.Encode(ds, mustImputation(t, ds))
	require.NoError(t, err)

	m, err := training.FitForest(context.Background(), x, ds.Labels, training.ForestParams{NEstimators: 5, MaxDepth: 2, Seed: 3})
	require.NoError(t, err)

	for _, tree := range m.Trees {
		// A depth-2 binary tree has at most 7 nodes.
		assert.LessOrEqual(t, len(tree.Nodes), 7)
	}
}

func TestFitForest_Errors(t *testing.T) {
	x, y := separable()
	ctx := context.Background()

	_, err := training.FitForest(ctx, nil, nil, training.ForestParams{NEstimators: 1})
	assert.Error(t, err)

	_, err = training.FitForest(ctx, x, y[:3], training.ForestParams{NEstimators: 1})
	assert.Error(t, err)

	_, err = training.FitForest(ctx, x, y, training.ForestParams{NEstimators: 0})
	assert.Error(t, err)

	bad := append([]int(nil), y...)
	bad[0] = 2
	_, err = training.FitForest(ctx, x, bad, training.ForestParams{NEstimators: 1})
	assert.Error(t, err)
}

func TestFitForest_Cancelled(t *testing.T) {
	x, y := separable()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := training.FitForest(ctx, x, y, training.ForestParams{NEstimators: 3})
	assert.ErrorIs(t, err, context.Canceled)
}
