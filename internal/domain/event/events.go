package event

import (
	"time"

	"github.com/google/uuid"
)

// EventTypePredictionCompleted is emitted after the model serves a prediction.
const EventTypePredictionCompleted = "titanic.prediction.completed"

// DomainEvent is implemented by every event the service publishes.
type DomainEvent interface {
	EventType() string
	AggregateID() string
}

// PredictionCompleted is published when a prediction has been computed by the
// model. Cache hits do not emit events.
type PredictionCompleted struct {
	EventID      uuid.UUID `json:"event_id"`
	PassengerID  int64     `json:"passenger_id"`
	Fingerprint  string    `json:"fingerprint"`
	Prediction   int       `json:"prediction"`
	Source       string    `json:"source"`
	ModelVersion string    `json:"model_version"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewPredictionCompleted creates the event with a fresh identifier.
func NewPredictionCompleted(passengerID int64, fingerprint string, prediction int, source, modelVersion string) PredictionCompleted {
	return PredictionCompleted{
		EventID:      uuid.New(),
		PassengerID:  passengerID,
		Fingerprint:  fingerprint,
		Prediction:   prediction,
		Source:       source,
		ModelVersion: modelVersion,
		OccurredAt:   time.Now().UTC(),
	}
}

// EventType returns the event type identifier.
func (e PredictionCompleted) EventType() string {
	return EventTypePredictionCompleted
}

// AggregateID returns the request fingerprint, which keys the partition.
func (e PredictionCompleted) AggregateID() string {
	return e.Fingerprint
}
