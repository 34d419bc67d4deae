package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultFolds is the number of cross-validation folds used by Tune.
const DefaultFolds = 3

// Candidate is one grid point and its mean cross-validated accuracy.
type Candidate struct {
	NEstimators int
	MaxDepth    int
	Score       float64
}

// TuneResult holds every evaluated candidate and the best one.
type TuneResult struct {
	Candidates []Candidate
	Best       Candidate
}

// Tune grid-searches the tuning_config grid with stratified k-fold
// cross-validation on the training split. Ties keep the earlier grid point.
func Tune(ctx context.Context, params *Params, ds *Dataset, folds int, logger *slog.Logger) (*TuneResult, error) {
	grid := params.Tuning
	if len(grid.NEstimators) == 0 || len(grid.MaxDepth) == 0 {
		return nil, errors.New("tuning_config grid is empty")
	}
	if folds < 2 {
		return nil, fmt.Errorf("need at least 2 folds, got %d", folds)
	}

	trainIdx, _ := StratifiedSplit(ds.Labels, params.Preprocessing.TestRatio, params.Preprocessing.RandomState)
	trainSet := ds.Subset(trainIdx)
	foldIdx := StratifiedKFold(trainSet.Labels, folds, params.Preprocessing.RandomState)

	logger.Info("starting grid search",
		"n_estimators", grid.NEstimators,
		"max_depth", grid.MaxDepth,
		"folds", folds,
	)

	result := &TuneResult{Best: Candidate{Score: -1}}
	for _, n := range grid.NEstimators {
		for _, d := range grid.MaxDepth {
			score, err := crossValidate(ctx, trainSet, foldIdx, ForestParams{
				NEstimators: n,
				MaxDepth:    d,
				Seed:        params.Model.RandomState,
			})
			if err != nil {
				return nil, fmt.Errorf("n_estimators=%d max_depth=%d: %w", n, d, err)
			}
			c := Candidate{NEstimators: n, MaxDepth: d, Score: score}
			result.Candidates = append(result.Candidates, c)
			logger.Debug("candidate scored", "n_estimators", n, "max_depth", d, "score", score)
			if c.Score > result.Best.Score {
				result.Best = c
			}
		}
	}

	logger.Info("grid search finished",
		"best_score", result.Best.Score,
		"best_n_estimators", result.Best.NEstimators,
		"best_max_depth", result.Best.MaxDepth,
	)
	return result, nil
}

// crossValidate returns the mean validation accuracy over the folds. The
// imputation constants are refitted on each fold's training rows.
func crossValidate(ctx context.Context, ds *Dataset, folds [][]int, p ForestParams) (float64, error) {
	var total float64
	for k, val := range folds {
		var train []int
		for j, f := range folds {
			if j != k {
				train = append(train, f...)
			}
		}
		trainSet, valSet := ds.Subset(train), ds.Subset(val)

		imp, err := ComputeImputation(trainSet)
		if err != nil {
			return 0, err
		}
		xTrain, err := Encode(trainSet, imp)
		if err != nil {
			return 0, err
		}
		xVal, err := Encode(valSet, imp)
		if err != nil {
			return 0, err
		}
		model, err := FitForest(ctx, xTrain, trainSet.Labels, p)
		if err != nil {
			return 0, err
		}
		total += Accuracy(&model, xVal, valSet.Labels)
	}
	return total / float64(len(folds)), nil
}
