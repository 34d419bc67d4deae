package dto

import (
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/model"
)

// Request-model defaults applied when a field is absent from the body.
const (
	DefaultSiblingsSpouses = 0
	DefaultParentsChildren = 0
	DefaultTicket          = "Unknown"
	DefaultEmbarked        = "S"
)

// PredictRequest is the inbound passenger payload. Pointer fields distinguish
// absent values from zero values. An explicit null Age or Embarked is imputed
// by the model's training-time constants. Nil fields are omitted when
// encoding so a decoder's defaults apply.
type PredictRequest struct {
	PassengerID *int64   `json:"PassengerId,omitempty" validate:"required"`
	Name        *string  `json:"Name,omitempty" validate:"required"`
	Pclass      *int     `json:"Pclass,omitempty" validate:"required,oneof=1 2 3"`
	Sex         *string  `json:"Sex,omitempty" validate:"required,oneof=male female"`
	Age         *float64 `json:"Age,omitempty" validate:"omitempty,gte=0,lte=120"`
	SibSp       *int     `json:"SibSp,omitempty" validate:"required,gte=0"`
	Parch       *int     `json:"Parch,omitempty" validate:"required,gte=0"`
	Ticket      *string  `json:"Ticket,omitempty" validate:"required"`
	Fare        *float64 `json:"Fare,omitempty" validate:"required,gte=0"`
	Cabin       *string  `json:"Cabin,omitempty"`
	Embarked    *string  `json:"Embarked,omitempty" validate:"omitempty,oneof=S C Q"`
}

// NewPredictRequest returns a request pre-filled with the defaults, ready to
// be decoded into.
func NewPredictRequest() *PredictRequest {
	sibSp, parch := DefaultSiblingsSpouses, DefaultParentsChildren
	ticket, embarked := DefaultTicket, DefaultEmbarked
	return &PredictRequest{
		SibSp:    &sibSp,
		Parch:    &parch,
		Ticket:   &ticket,
		Embarked: &embarked,
	}
}

// ToRecord builds the domain record. The request must have passed
// validation, so required pointers are non-nil.
func (r *PredictRequest) ToRecord() (*model.PassengerRecord, error) {
	return model.NewPassengerRecord(model.PassengerAttributes{
		ID:              *r.PassengerID,
		Name:            *r.Name,
		Class:           *r.Pclass,
		Sex:             *r.Sex,
		Age:             r.Age,
		SiblingsSpouses: *r.SibSp,
		ParentsChildren: *r.Parch,
		Ticket:          *r.Ticket,
		Fare:            *r.Fare,
		Cabin:           r.Cabin,
		EmbarkationPort: r.Embarked,
	})
}

// PredictResponse is the prediction payload returned to clients.
type PredictResponse struct {
	PassengerName string `json:"passenger_name"`
	Prediction    int    `json:"prediction"`
	Success       bool   `json:"success"`
	Source        string `json:"source"`
}

// FromResult maps a domain prediction to the response DTO.
func FromResult(r *model.PredictionResult) PredictResponse {
	return PredictResponse{
		PassengerName: r.PassengerName(),
		Prediction:    r.Label().Int(),
		Success:       true,
		Source:        r.Source().String(),
	}
}

// HealthResponse is the fixed payload of the root health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// ErrorResponse is returned for rejected requests.
type ErrorResponse struct {
	Error   string             `json:"error"`
	Details []model.FieldError `json:"details,omitempty"`
}
