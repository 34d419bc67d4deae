package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/application/dto"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/model"
)

// Compile-time assertion that PredictionHandler implements PredictionServiceServer.
var _ PredictionServiceServer = (*PredictionHandler)(nil)

// PredictExecutor runs the prediction use case.
type PredictExecutor interface {
	Execute(ctx context.Context, req *dto.PredictRequest) (dto.PredictResponse, error)
}

// PredictionHandler implements the gRPC PredictionServiceServer interface.
type PredictionHandler struct {
	UnimplementedPredictionServiceServer
	predict PredictExecutor
	logger  *slog.Logger
}

// NewPredictionHandler creates a new gRPC handler.
func NewPredictionHandler(predict PredictExecutor, logger *slog.Logger) *PredictionHandler {
	return &PredictionHandler{predict: predict, logger: logger}
}

// Predict handles the Predict RPC.
func (h *PredictionHandler) Predict(ctx context.Context, req *dto.PredictRequest) (*dto.PredictResponse, error) {
	resp, err := h.predict.Execute(ctx, req)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &resp, nil
}

// toStatus maps domain errors to gRPC status codes.
func (h *PredictionHandler) toStatus(err error) error {
	var verr *model.ValidationError
	var merr *model.ModelUnavailableError
	switch {
	case errors.As(err, &verr):
		fields := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, fmt.Sprintf("%s: %s", f.Field, f.Reason))
		}
		return status.Error(codes.InvalidArgument, strings.Join(fields, "; "))
	case errors.As(err, &merr):
		h.logger.Error("prediction unavailable", "error", err)
		return status.Error(codes.Unavailable, merr.Error())
	default:
		h.logger.Error("prediction failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
