package service

import "github.com/enesgulerml/titanic-mlops-k8s/internal/domain/valueobject"

// Classifier predicts a survival label for a single feature vector. The
// underlying algorithm is hidden behind this contract.
type Classifier interface {
	PredictRow(features FeatureVector) (valueobject.Survival, error)
}
