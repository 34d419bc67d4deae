package training

import (
	"errors"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/service"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/infrastructure/artifact"
)

// portOrder breaks mode ties deterministically.
var portOrder = []string{"S", "C", "Q"}

// ComputeImputation derives the Age mean and Embarked mode from the rows
// that have those values.
func ComputeImputation(ds *Dataset) (artifact.Imputation, error) {
	var sum float64
	var n int
	counts := map[string]int{}
	for _, r := range ds.Records {
		if age, ok := r.Age(); ok {
			sum += age
			n++
		}
		if port, ok := r.EmbarkationPort(); ok {
			counts[port]++
		}
	}
	if n == 0 {
		return artifact.Imputation{}, errors.New("no Age values to impute from")
	}

	mode, best := "", 0
	for _, p := range portOrder {
		if counts[p] > best {
			mode, best = p, counts[p]
		}
	}
	if mode == "" {
		return artifact.Imputation{}, errors.New("no Embarked values to impute from")
	}

	return artifact.Imputation{AgeMean: sum / float64(n), EmbarkedMode: mode}, nil
}

// Encode transforms every row with the imputation constants.
func Encode(ds *Dataset, imp artifact.Imputation) ([]service.FeatureVector, error) {
	t, err := service.NewFeatureTransformer(service.TransformConstants{
		AgeMean:      imp.AgeMean,
		EmbarkedMode: imp.EmbarkedMode,
	})
	if err != nil {
		return nil, err
	}
	out := make([]service.FeatureVector, ds.Len())
	for i, r := range ds.Records {
		if out[i], err = t.Transform(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}
