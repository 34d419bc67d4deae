package service

import (
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/model"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/valueobject"
)

// Pipeline composes the feature transform and the classifier into one call.
// It performs no I/O and never retries.
type Pipeline struct {
	transformer *FeatureTransformer
	classifier  Classifier
	version     string
}

// NewPipeline creates a pipeline. A nil classifier yields a pipeline whose
// every run fails with ModelUnavailableError.
func NewPipeline(transformer *FeatureTransformer, classifier Classifier, version string) *Pipeline {
	return &Pipeline{
		transformer: transformer,
		classifier:  classifier,
		version:     version,
	}
}

// Version identifies the artifact the pipeline was built from.
func (p *Pipeline) Version() string {
	return p.version
}

// Transformer returns the feature transform stage.
func (p *Pipeline) Transformer() *FeatureTransformer {
	return p.transformer
}

// Run transforms the record and predicts its label. The result is tagged
// with the model source.
func (p *Pipeline) Run(record *model.PassengerRecord) (*model.PredictionResult, error) {
	if p == nil || p.classifier == nil || p.transformer == nil {
		return nil, &model.ModelUnavailableError{Reason: "no classifier loaded"}
	}

	features, err := p.transformer.Transform(record)
	if err != nil {
		return nil, err
	}

	label, err := p.classifier.PredictRow(features)
	if err != nil {
		return nil, err
	}

	return model.NewPredictionResult(record.Name(), label, valueobject.SourceModel), nil
}
