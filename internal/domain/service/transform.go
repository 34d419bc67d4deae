package service

import (
	"fmt"
	"math"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/model"
)

// Feature positions inside a FeatureVector.
const (
	FeatureClass = iota
	FeatureSex
	FeatureAge
	FeatureSiblingsSpouses
	FeatureParentsChildren
	FeatureFare
	FeatureEmbarked

	NumFeatures
)

// FeatureNames lists the model input columns in vector order.
var FeatureNames = [NumFeatures]string{"Pclass", "Sex", "Age", "SibSp", "Parch", "Fare", "Embarked"}

// FeatureVector is the numeric model input derived from a PassengerRecord.
type FeatureVector [NumFeatures]float64

// SexEncoding and EmbarkedEncoding are the fixed categorical mappings the
// classifier was trained against.
var (
	SexEncoding      = map[string]float64{"male": 0, "female": 1}
	EmbarkedEncoding = map[string]float64{"S": 0, "C": 1, "Q": 2}
)

// TransformConstants are the imputation values fixed at training time.
type TransformConstants struct {
	AgeMean      float64
	EmbarkedMode string
}

// Validate checks that the constants can be applied to any record.
func (c TransformConstants) Validate() error {
	if math.IsNaN(c.AgeMean) || math.IsInf(c.AgeMean, 0) || c.AgeMean < 0 {
		return fmt.Errorf("invalid age mean %v", c.AgeMean)
	}
	if _, ok := EmbarkedEncoding[c.EmbarkedMode]; !ok {
		return fmt.Errorf("invalid embarked mode %q", c.EmbarkedMode)
	}
	return nil
}

// FeatureTransformer drops identifier and free-text fields, imputes missing
// values and encodes categoricals. It holds no mutable state.
type FeatureTransformer struct {
	constants TransformConstants
}

// NewFeatureTransformer creates a transformer bound to training-time constants.
func NewFeatureTransformer(constants TransformConstants) (*FeatureTransformer, error) {
	if err := constants.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create feature transformer: %w", err)
	}
	return &FeatureTransformer{constants: constants}, nil
}

// Constants returns the imputation constants.
func (t *FeatureTransformer) Constants() TransformConstants {
	return t.constants
}

// Transform maps a record to its feature vector. Unsupported categorical
// values are rejected with a ValidationError.
func (t *FeatureTransformer) Transform(record *model.PassengerRecord) (FeatureVector, error) {
	var v FeatureVector

	sex, ok := SexEncoding[record.Sex()]
	if !ok {
		return v, model.NewValidationError("Sex", fmt.Sprintf("unsupported value %q", record.Sex()))
	}

	port, present := record.EmbarkationPort()
	if !present {
		port = t.constants.EmbarkedMode
	}
	embarked, ok := EmbarkedEncoding[port]
	if !ok {
		return v, model.NewValidationError("Embarked", fmt.Sprintf("unsupported value %q", port))
	}

	age, present := record.Age()
	if !present {
		age = t.constants.AgeMean
	}

	v[FeatureClass] = float64(record.Class())
	v[FeatureSex] = sex
	v[FeatureAge] = age
	v[FeatureSiblingsSpouses] = float64(record.SiblingsSpouses())
	v[FeatureParentsChildren] = float64(record.ParentsChildren())
	v[FeatureFare] = record.Fare()
	v[FeatureEmbarked] = embarked
	return v, nil
}
