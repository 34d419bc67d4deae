package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/application/dto"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/application/lifecycle"
)

// Root health payload. Clients match on these literals.
const (
	ServiceName    = "Titanic API"
	ServiceVersion = "1.0.0"
)

// StatusReporter exposes the serving state.
type StatusReporter interface {
	Status() lifecycle.Status
}

// HealthHandler provides the root, liveness and readiness endpoints.
type HealthHandler struct {
	status    StatusReporter
	logger    *slog.Logger
	startTime time.Time
}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler(status StatusReporter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		status:    status,
		logger:    logger,
		startTime: time.Now(),
	}
}

// LivenessResponse is the JSON response for liveness checks.
type LivenessResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the JSON response for readiness checks.
type ReadinessResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	ModelVersion string            `json:"model_version,omitempty"`
	Checks       map[string]string `json:"checks"`
}

// RegisterRoutes registers health endpoints on the provided ServeMux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// Root returns the fixed service banner. It does not consult model state.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.HealthResponse{
		Status:  "healthy",
		Service: ServiceName,
		Version: ServiceVersion,
	})
}

// Healthz handles liveness checks.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "healthy",
		Service: ServiceName,
		Uptime:  time.Since(h.startTime).String(),
	})
}

// Readyz reports 503 until a model is loaded and the service is ready.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	st := h.status.Status()

	checks := map[string]string{
		"lifecycle": st.State.String(),
		"model":     "missing",
		"cache":     "disabled",
	}
	if st.ModelLoaded {
		checks["model"] = "ok"
	}
	if st.CacheEnabled {
		checks["cache"] = "ok"
	}

	resp := ReadinessResponse{
		Status:       "ready",
		Service:      ServiceName,
		ModelVersion: st.ModelVersion,
		Checks:       checks,
	}
	code := http.StatusOK
	if !st.Ready() {
		resp.Status = "not_ready"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}
