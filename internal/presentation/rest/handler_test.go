package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/application/dto"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/application/lifecycle"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/model"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/presentation/rest"
)

// --- Mocks ---

type mockPredictor struct {
	executeFunc func(ctx context.Context, req *dto.PredictRequest) (dto.PredictResponse, error)
	last        *dto.PredictRequest
}

func (m *mockPredictor) Execute(ctx context.Context, req *dto.PredictRequest) (dto.PredictResponse, error) {
	m.last = req
	if m.executeFunc != nil {
		return m.executeFunc(ctx, req)
	}
	return dto.PredictResponse{PassengerName: *req.Name, Prediction: 1, Success: true, Source: "model"}, nil
}

type mockStatus struct {
	status lifecycle.Status
}

func (m *mockStatus) Status() lifecycle.Status { return m.status }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(p *mockPredictor, s *mockStatus, cfg rest.RouterConfig) http.Handler {
	logger := testLogger()
	return rest.NewRouter(
		rest.NewHealthHandler(s, logger),
		rest.NewPredictHandler(p, logger),
		cfg,
		logger,
	)
}

func readyStatus() *mockStatus {
	return &mockStatus{status: lifecycle.Status{
		State:        lifecycle.StateReady,
		ModelLoaded:  true,
		ModelVersion: "random_forest@abc",
		CacheEnabled: true,
	}}
}

const exampleBody = `{"PassengerId":1,"Name":"Braund, Mr. Owen Harris","Pclass":3,"Sex":"male","Age":22,"SibSp":1,"Parch":0,"Ticket":"A/5 21171","Fare":7.25,"Cabin":null,"Embarked":"S"}`

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestRoot_FixedPayload(t *testing.T) {
	h := newTestRouter(&mockPredictor{}, &mockStatus{}, rest.RouterConfig{})

	rec := do(t, h, http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"Titanic API","version":"1.0.0"}`, rec.Body.String())
}

func TestRoot_UnknownPathIsNotFound(t *testing.T) {
	h := newTestRouter(&mockPredictor{}, readyStatus(), rest.RouterConfig{})

	rec := do(t, h, http.MethodGet, "/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(&mockPredictor{}, &mockStatus{}, rest.RouterConfig{})

	rec := do(t, h, http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp rest.LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Uptime)
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name     string
		status   lifecycle.Status
		wantCode int
		wantBody string
	}{
		{"ready", readyStatus().status, http.StatusOK, "ready"},
		{"no model", lifecycle.Status{State: lifecycle.StateReady}, http.StatusServiceUnavailable, "not_ready"},
		{"draining", lifecycle.Status{State: lifecycle.StateDraining, ModelLoaded: true}, http.StatusServiceUnavailable, "not_ready"},
		{"uninitialized", lifecycle.Status{}, http.StatusServiceUnavailable, "not_ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&mockPredictor{}, &mockStatus{status: tt.status}, rest.RouterConfig{})

			rec := do(t, h, http.MethodGet, "/readyz", "")

			require.Equal(t, tt.wantCode, rec.Code)
			var resp rest.ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantBody, resp.Status)
			assert.Equal(t, tt.status.State.String(), resp.Checks["lifecycle"])
		})
	}
}

func TestPredict_Success(t *testing.T) {
	p := &mockPredictor{}
	h := newTestRouter(p, readyStatus(), rest.RouterConfig{})

	rec := do(t, h, http.MethodPost, "/predict", exampleBody)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"passenger_name":"Braund, Mr. Owen Harris","prediction":1,"success":true,"source":"model"}`, rec.Body.String())
	require.NotNil(t, p.last)
	assert.Nil(t, p.last.Cabin)
	assert.Equal(t, 22.0, *p.last.Age)
}

func TestPredict_AppliesDefaults(t *testing.T) {
	p := &mockPredictor{}
	h := newTestRouter(p, readyStatus(), rest.RouterConfig{})

	rec := do(t, h, http.MethodPost, "/predict",
		`{"PassengerId":7,"Name":"X","Pclass":2,"Sex":"female","Fare":10}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.DefaultSiblingsSpouses, *p.last.SibSp)
	assert.Equal(t, dto.DefaultParentsChildren, *p.last.Parch)
	assert.Equal(t, dto.DefaultTicket, *p.last.Ticket)
	assert.Equal(t, dto.DefaultEmbarked, *p.last.Embarked)
	assert.Nil(t, p.last.Age)
}

func TestPredict_MalformedJSON(t *testing.T) {
	p := &mockPredictor{}
	h := newTestRouter(p, readyStatus(), rest.RouterConfig{})

	rec := do(t, h, http.MethodPost, "/predict", `{"PassengerId":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, p.last)
}

func TestPredict_WrongFieldType(t *testing.T) {
	p := &mockPredictor{}
	h := newTestRouter(p, readyStatus(), rest.RouterConfig{})

	rec := do(t, h, http.MethodPost, "/predict", `{"PassengerId":1,"Name":"X","Pclass":"first"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Details, 1)
	assert.Equal(t, "Pclass", resp.Details[0].Field)
}

func TestPredict_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"validation", model.NewValidationError("Sex", "must be one of [male female]"), http.StatusUnprocessableEntity},
		{"model unavailable", &model.ModelUnavailableError{Reason: "model artifact not loaded"}, http.StatusInternalServerError},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockPredictor{executeFunc: func(context.Context, *dto.PredictRequest) (dto.PredictResponse, error) {
				return dto.PredictResponse{}, tt.err
			}}
			h := newTestRouter(p, readyStatus(), rest.RouterConfig{})

			rec := do(t, h, http.MethodPost, "/predict", exampleBody)

			require.Equal(t, tt.wantCode, rec.Code)
			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestPredict_ValidationDetails(t *testing.T) {
	p := &mockPredictor{executeFunc: func(context.Context, *dto.PredictRequest) (dto.PredictResponse, error) {
		return dto.PredictResponse{}, model.NewValidationError("Embarked", "must be one of [S C Q]")
	}}
	h := newTestRouter(p, readyStatus(), rest.RouterConfig{})

	rec := do(t, h, http.MethodPost, "/predict", exampleBody)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t,
		`{"error":"validation failed","details":[{"field":"Embarked","reason":"must be one of [S C Q]"}]}`,
		rec.Body.String())
}

func TestPredict_MethodNotAllowed(t *testing.T) {
	h := newTestRouter(&mockPredictor{}, readyStatus(), rest.RouterConfig{})

	rec := do(t, h, http.MethodGet, "/predict", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	h := newTestRouter(&mockPredictor{}, readyStatus(), rest.RouterConfig{Metrics: metrics})

	rec := do(t, h, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}
