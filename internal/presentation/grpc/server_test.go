package grpc_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/application/dto"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/model"
	grpcpresentation "github.com/enesgulerml/titanic-mlops-k8s/internal/presentation/grpc"
)

// --- Mocks ---

type mockPredictor struct {
	executeFunc func(ctx context.Context, req *dto.PredictRequest) (dto.PredictResponse, error)
}

func (m *mockPredictor) Execute(ctx context.Context, req *dto.PredictRequest) (dto.PredictResponse, error) {
	if m.executeFunc != nil {
		return m.executeFunc(ctx, req)
	}
	return dto.PredictResponse{PassengerName: *req.Name, Prediction: 0, Success: true, Source: "model"}, nil
}

// --- Helpers ---

func startServer(t *testing.T, p *mockPredictor) (*grpcpresentation.Server, *grpclib.ClientConn) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := grpcpresentation.NewServer(
		grpcpresentation.NewPredictionHandler(p, logger),
		grpcpresentation.ServerConfig{},
		logger,
	)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpclib.NewClient("passthrough:///bufnet",
		grpclib.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpclib.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return srv, conn
}

func ptr[T any](v T) *T { return &v }

func exampleRequest() *dto.PredictRequest {
	req := dto.NewPredictRequest()
	req.PassengerID = ptr[int64](1)
	req.Name = ptr("Braund, Mr. Owen Harris")
	req.Pclass = ptr(3)
	req.Sex = ptr("male")
	req.Age = ptr(22.0)
	req.SibSp = ptr(1)
	req.Fare = ptr(7.25)
	return req
}

// --- Tests ---

func TestPredict_RoundTrip(t *testing.T) {
	var got *dto.PredictRequest
	p := &mockPredictor{executeFunc: func(_ context.Context, req *dto.PredictRequest) (dto.PredictResponse, error) {
		got = req
		return dto.PredictResponse{PassengerName: *req.Name, Prediction: 0, Success: true, Source: "cache"}, nil
	}}
	_, conn := startServer(t, p)
	client := grpcpresentation.NewPredictionServiceClient(conn)

	resp, err := client.Predict(context.Background(), exampleRequest())

	require.NoError(t, err)
	assert.Equal(t, "Braund, Mr. Owen Harris", resp.PassengerName)
	assert.Equal(t, 0, resp.Prediction)
	assert.True(t, resp.Success)
	assert.Equal(t, "cache", resp.Source)
	require.NotNil(t, got)
	assert.Equal(t, 1, *got.SibSp)
}

func TestPredict_DefaultsAppliedServerSide(t *testing.T) {
	var got *dto.PredictRequest
	p := &mockPredictor{executeFunc: func(_ context.Context, req *dto.PredictRequest) (dto.PredictResponse, error) {
		got = req
		return dto.PredictResponse{Success: true}, nil
	}}
	_, conn := startServer(t, p)
	client := grpcpresentation.NewPredictionServiceClient(conn)

	req := &dto.PredictRequest{
		PassengerID: ptr[int64](2),
		Name:        ptr("Y"),
		Pclass:      ptr(1),
		Sex:         ptr("female"),
		Fare:        ptr(50.0),
	}
	_, err := client.Predict(context.Background(), req)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, dto.DefaultTicket, *got.Ticket)
	assert.Equal(t, dto.DefaultEmbarked, *got.Embarked)
}

func TestPredict_ErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"validation", model.NewValidationError("Sex", "must be one of [male female]"), codes.InvalidArgument},
		{"model unavailable", &model.ModelUnavailableError{Reason: "service is draining"}, codes.Unavailable},
		{"unexpected", errors.New("boom"), codes.Internal},
		{"panic", nil, codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockPredictor{executeFunc: func(context.Context, *dto.PredictRequest) (dto.PredictResponse, error) {
				if tt.err == nil {
					panic("boom")
				}
				return dto.PredictResponse{}, tt.err
			}}
			_, conn := startServer(t, p)
			client := grpcpresentation.NewPredictionServiceClient(conn)

			_, err := client.Predict(context.Background(), exampleRequest())

			require.Error(t, err)
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}

func TestPredict_ValidationMessageNamesField(t *testing.T) {
	p := &mockPredictor{executeFunc: func(context.Context, *dto.PredictRequest) (dto.PredictResponse, error) {
		return dto.PredictResponse{}, model.NewValidationError("Embarked", "must be one of [S C Q]")
	}}
	_, conn := startServer(t, p)
	client := grpcpresentation.NewPredictionServiceClient(conn)

	_, err := client.Predict(context.Background(), exampleRequest())

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Contains(t, st.Message(), "Embarked")
}

func TestHealth_FollowsServingState(t *testing.T) {
	srv, conn := startServer(t, &mockPredictor{})
	health := healthpb.NewHealthClient(conn)
	req := &healthpb.HealthCheckRequest{Service: grpcpresentation.HealthServiceName}

	resp, err := health.Check(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	srv.SetServing(true)

	resp, err = health.Check(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestNewServer_BadTLSFiles(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := grpcpresentation.NewServer(
		grpcpresentation.NewPredictionHandler(&mockPredictor{}, logger),
		grpcpresentation.ServerConfig{TLSCertFile: "/missing/cert.pem", TLSKeyFile: "/missing/key.pem"},
		logger,
	)
	assert.Error(t, err)
}
