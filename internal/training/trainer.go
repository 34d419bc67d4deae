package training

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/infrastructure/artifact"
)

// Report summarises a training run.
type Report struct {
	ModelPath    string
	ModelVersion string
	TrainRows    int
	TestRows     int
	Accuracy     float64
	Duration     time.Duration
}

// Trainer fits the pipeline described by Params.
type Trainer struct {
	params *Params
	logger *slog.Logger
}

// NewTrainer creates a new Trainer.
func NewTrainer(params *Params, logger *slog.Logger) *Trainer {
	return &Trainer{params: params, logger: logger}
}

// Run loads the dataset, fits the forest and writes the artifact.
func (t *Trainer) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	t.logger.Info("loading dataset", "path", t.params.ExternalData.CSV)
	ds, err := LoadCSV(t.params.ExternalData.CSV)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	doc, err := t.Fit(ctx, ds)
	if err != nil {
		return nil, err
	}

	path := t.params.ModelPath()
	if err := artifact.Save(path, doc); err != nil {
		return nil, fmt.Errorf("failed to save artifact: %w", err)
	}
	// Reload so the written file is checked the way the server will read it.
	pipeline, err := artifact.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reload artifact: %w", err)
	}

	report := &Report{
		ModelPath:    path,
		ModelVersion: pipeline.Version(),
		TrainRows:    doc.Training.TrainRows,
		TestRows:     doc.Training.TestRows,
		Accuracy:     doc.Training.Accuracy,
		Duration:     time.Since(start),
	}
	t.logger.Info("artifact written",
		"path", report.ModelPath,
		"model_version", report.ModelVersion,
		"accuracy", report.Accuracy,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

// Fit splits ds, computes imputation constants on the training split, fits
// the forest and scores it on the held-out split.
func (t *Trainer) Fit(ctx context.Context, ds *Dataset) (*artifact.Document, error) {
	trainIdx, testIdx := StratifiedSplit(ds.Labels, t.params.Preprocessing.TestRatio, t.params.Preprocessing.RandomState)
	trainSet, testSet := ds.Subset(trainIdx), ds.Subset(testIdx)

	imputation, err := ComputeImputation(trainSet)
	if err != nil {
		return nil, fmt.Errorf("failed to compute imputation: %w", err)
	}
	xTrain, err := Encode(trainSet, imputation)
	if err != nil {
		return nil, fmt.Errorf("failed to encode training split: %w", err)
	}
	xTest, err := Encode(testSet, imputation)
	if err != nil {
		return nil, fmt.Errorf("failed to encode test split: %w", err)
	}

	mc := t.params.Model
	t.logger.Info("fitting random forest",
		"n_estimators", mc.NEstimators,
		"max_depth", mc.MaxDepth,
		"train_rows", len(xTrain),
		"test_rows", len(xTest),
	)
	model, err := FitForest(ctx, xTrain, trainSet.Labels, ForestParams{
		NEstimators: mc.NEstimators,
		MaxDepth:    mc.MaxDepth,
		Seed:        mc.RandomState,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fit forest: %w", err)
	}

	accuracy := Accuracy(&model, xTest, testSet.Labels)
	t.logger.Info("model evaluated", "accuracy", accuracy)

	return artifact.NewDocument(imputation, model, artifact.TrainingInfo{
		NEstimators: mc.NEstimators,
		MaxDepth:    mc.MaxDepth,
		RandomState: mc.RandomState,
		TrainRows:   len(xTrain),
		TestRows:    len(xTest),
		Accuracy:    accuracy,
	}), nil
}
