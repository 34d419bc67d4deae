package training

import (
	"context"
	"errors"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/service"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/infrastructure/forest"
)

// ForestParams are the hyperparameters of a random forest fit.
type ForestParams struct {
	NEstimators int
	MaxDepth    int
	Seed        int64
}

// FitForest grows NEstimators bootstrap trees, each splitting on a random
// sqrt(features) subset. Tree i draws from its own stream of Seed, so the
// result does not depend on scheduling.
func FitForest(ctx context.Context, x []service.FeatureVector, y []int, p ForestParams) (forest.Model, error) {
	if len(x) == 0 || len(x) != len(y) {
		return forest.Model{}, errors.New("training data is empty or misaligned")
	}
	if p.NEstimators < 1 {
		return forest.Model{}, errors.New("n_estimators must be positive")
	}

	nClasses := 2
	for _, label := range y {
		if label < 0 || label >= nClasses {
			return forest.Model{}, errors.New("labels must be 0 or 1")
		}
	}
	maxFeatures := max(1, int(math.Sqrt(float64(service.NumFeatures))))

	trees := make([]forest.Tree, p.NEstimators)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := newRand(p.Seed, uint64(i)+2)
			sample := make([]int, len(x))
			for k := range sample {
				sample[k] = rng.IntN(len(x))
			}
			b := &treeBuilder{
				x:           x,
				y:           y,
				nClasses:    nClasses,
				maxDepth:    p.MaxDepth,
				maxFeatures: maxFeatures,
				rng:         rng,
			}
			b.build(sample, 0)
			trees[i] = forest.Tree{Nodes: b.nodes}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return forest.Model{}, err
	}
	return forest.Model{NClasses: nClasses, Trees: trees}, nil
}

// Accuracy is the share of rows the model labels correctly.
func Accuracy(m *forest.Model, x []service.FeatureVector, y []int) float64 {
	if len(x) == 0 {
		return 0
	}
	correct := 0
	for i := range x {
		if m.Predict(x[i][:]) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x))
}
