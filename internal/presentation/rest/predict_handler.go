package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/application/dto"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/model"
)

const maxBodyBytes = 1 << 20

// PredictExecutor runs the prediction use case.
type PredictExecutor interface {
	Execute(ctx context.Context, req *dto.PredictRequest) (dto.PredictResponse, error)
}

// PredictHandler serves POST /predict.
type PredictHandler struct {
	predict PredictExecutor
	logger  *slog.Logger
}

// NewPredictHandler creates a new prediction handler.
func NewPredictHandler(predict PredictExecutor, logger *slog.Logger) *PredictHandler {
	return &PredictHandler{predict: predict, logger: logger}
}

// RegisterRoutes registers the prediction endpoint on the provided ServeMux.
func (h *PredictHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", h.Predict)
}

// Predict decodes a passenger record and returns the survival prediction.
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	req := dto.NewPredictRequest()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(req); err != nil {
		h.writeDecodeError(w, err)
		return
	}

	resp, err := h.predict.Execute(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeDecodeError maps body decoding failures. A wrong JSON type on a known
// field is a field-level rejection; anything else is a malformed body.
func (h *PredictHandler) writeDecodeError(w http.ResponseWriter, err error) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		writeJSON(w, http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error: "validation failed",
			Details: []model.FieldError{{
				Field:  typeErr.Field,
				Reason: "must be a " + typeErr.Type.String(),
			}},
		})
		return
	}
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "malformed JSON body"})
}

func (h *PredictHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *model.ValidationError
	var merr *model.ModelUnavailableError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error:   "validation failed",
			Details: verr.Fields,
		})
	case errors.As(err, &merr):
		h.logger.Error("prediction unavailable",
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: merr.Error()})
	default:
		h.logger.Error("prediction failed",
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
