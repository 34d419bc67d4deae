package model

import "github.com/enesgulerml/titanic-mlops-k8s/internal/domain/valueobject"

// PredictionResult is the immutable outcome of a single prediction request.
type PredictionResult struct {
	passengerName string
	label         valueobject.Survival
	source        valueobject.Source
}

// NewPredictionResult creates a prediction result.
func NewPredictionResult(passengerName string, label valueobject.Survival, source valueobject.Source) *PredictionResult {
	return &PredictionResult{
		passengerName: passengerName,
		label:         label,
		source:        source,
	}
}

// WithSource returns a copy of the result tagged with another source.
func (p *PredictionResult) WithSource(source valueobject.Source) *PredictionResult {
	return &PredictionResult{
		passengerName: p.passengerName,
		label:         p.label,
		source:        source,
	}
}

func (p *PredictionResult) PassengerName() string       { return p.passengerName }
func (p *PredictionResult) Label() valueobject.Survival { return p.label }
func (p *PredictionResult) Source() valueobject.Source  { return p.source }
