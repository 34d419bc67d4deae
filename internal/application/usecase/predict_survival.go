package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/application/dto"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/application/lifecycle"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/model"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/port"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/valueobject"
)

// Predictor serves predictions from the loaded model.
type Predictor interface {
	Predict(ctx context.Context, record *model.PassengerRecord) (*model.PredictionResult, error)
	Status() lifecycle.Status
}

// PredictSurvival is the use case for predicting a passenger's survival.
type PredictSurvival struct {
	predictor   Predictor
	validator   *dto.Validator
	recorder    *recorder
	logger      *slog.Logger
	predictions metric.Int64Counter
	latency     metric.Float64Histogram
	dropped     metric.Int64Counter
}

// NewPredictSurvival creates a new PredictSurvival use case. repo and
// publisher are optional. Audit records and events are written in the
// background; call Close to flush them.
func NewPredictSurvival(
	predictor Predictor,
	validator *dto.Validator,
	repo port.PredictionRepository,
	publisher port.EventPublisher,
	meter metric.Meter,
	logger *slog.Logger,
) (*PredictSurvival, error) {
	predictions, err := meter.Int64Counter("titanic_predictions_total",
		metric.WithDescription("Prediction requests by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction counter: %w", err)
	}
	latency, err := meter.Float64Histogram("titanic_prediction_duration_seconds",
		metric.WithDescription("Prediction latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction histogram: %w", err)
	}
	dropped, err := meter.Int64Counter("titanic_side_channel_dropped_total",
		metric.WithDescription("Predictions not audited or published because the queue was full or closed"))
	if err != nil {
		return nil, fmt.Errorf("failed to create side channel counter: %w", err)
	}
	uc := &PredictSurvival{
		predictor:   predictor,
		validator:   validator,
		logger:      logger,
		predictions: predictions,
		latency:     latency,
		dropped:     dropped,
	}
	if repo != nil || publisher != nil {
		uc.recorder = newRecorder(repo, publisher, logger)
	}
	return uc, nil
}

// Execute validates the request, predicts and records the outcome.
func (uc *PredictSurvival) Execute(ctx context.Context, req *dto.PredictRequest) (dto.PredictResponse, error) {
	start := time.Now()

	resp, source, err := uc.execute(ctx, req)

	outcome := "ok"
	var verr *model.ValidationError
	var merr *model.ModelUnavailableError
	switch {
	case errors.As(err, &verr):
		outcome = "invalid"
	case errors.As(err, &merr):
		outcome = "unavailable"
	case err != nil:
		outcome = "error"
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome), attribute.String("source", source))
	uc.predictions.Add(ctx, 1, attrs)
	uc.latency.Record(ctx, time.Since(start).Seconds(), attrs)

	return resp, err
}

func (uc *PredictSurvival) execute(ctx context.Context, req *dto.PredictRequest) (dto.PredictResponse, string, error) {
	// 1. Validate at the request boundary.
	if err := uc.validator.Struct(req); err != nil {
		return dto.PredictResponse{}, "", err
	}

	// 2. Build the immutable domain record.
	record, err := req.ToRecord()
	if err != nil {
		return dto.PredictResponse{}, "", err
	}

	// 3. Predict through the cache-aside layer.
	result, err := uc.predictor.Predict(ctx, record)
	if err != nil {
		return dto.PredictResponse{}, "", err
	}

	// 4. Fresh predictions go to the audit log and event stream in the background.
	if result.Source().Equal(valueobject.SourceModel) {
		uc.record(ctx, record, result)
	}

	return dto.FromResult(result), result.Source().String(), nil
}

// record queues a fresh prediction for the side channels.
func (uc *PredictSurvival) record(ctx context.Context, record *model.PassengerRecord, result *model.PredictionResult) {
	if uc.recorder == nil {
		return
	}
	accepted := uc.recorder.enqueue(recordJob{
		ctx:          context.WithoutCancel(ctx),
		record:       record,
		result:       result,
		modelVersion: uc.predictor.Status().ModelVersion,
		createdAt:    time.Now().UTC(),
	})
	if !accepted {
		uc.dropped.Add(ctx, 1)
		uc.logger.Warn("side channel queue full or closed, dropping audit and event",
			"passenger_id", record.ID(),
		)
	}
}

// Close waits for queued audit records and events to be written.
func (uc *PredictSurvival) Close(ctx context.Context) error {
	if uc.recorder == nil {
		return nil
	}
	return uc.recorder.close(ctx)
}
