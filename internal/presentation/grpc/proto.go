package grpc

// Service descriptor for titanic.v1.PredictionService. Messages travel as JSON
// through the codec in codec.go and share the REST wire shape.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/application/dto"
)

// Full method names.
const (
	ServiceName         = "titanic.v1.PredictionService"
	PredictFullMethod   = "/" + ServiceName + "/Predict"
	predictMethodSuffix = "Predict"
)

// PredictionServiceServer is the server API for PredictionService.
type PredictionServiceServer interface {
	Predict(context.Context, *dto.PredictRequest) (*dto.PredictResponse, error)
	mustEmbedUnimplementedPredictionServiceServer()
}

// UnimplementedPredictionServiceServer provides forward-compatible default implementations.
type UnimplementedPredictionServiceServer struct{}

func (UnimplementedPredictionServiceServer) Predict(context.Context, *dto.PredictRequest) (*dto.PredictResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Predict not implemented")
}
func (UnimplementedPredictionServiceServer) mustEmbedUnimplementedPredictionServiceServer() {}

// RegisterPredictionServiceServer registers the PredictionServiceServer with the gRPC server.
func RegisterPredictionServiceServer(s grpclib.ServiceRegistrar, srv PredictionServiceServer) {
	s.RegisterService(&predictionServiceDesc, srv)
}

var predictionServiceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PredictionServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: predictMethodSuffix, Handler: predictHandler},
	},
	Streams:  []grpclib.StreamDesc{},
	Metadata: "titanic/v1/prediction.proto",
}

func predictHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
	// Decode over the defaults so omitted optional fields match REST.
	req := dto.NewPredictRequest()
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PredictionServiceServer).Predict(ctx, req)
	}
	info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: PredictFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PredictionServiceServer).Predict(ctx, req.(*dto.PredictRequest))
	}
	return interceptor(ctx, req, info, handler)
}

// PredictionServiceClient is the client API for PredictionService.
type PredictionServiceClient interface {
	Predict(ctx context.Context, in *dto.PredictRequest, opts ...grpclib.CallOption) (*dto.PredictResponse, error)
}

type predictionServiceClient struct {
	cc grpclib.ClientConnInterface
}

// NewPredictionServiceClient creates a client that speaks the JSON codec.
func NewPredictionServiceClient(cc grpclib.ClientConnInterface) PredictionServiceClient {
	return &predictionServiceClient{cc: cc}
}

func (c *predictionServiceClient) Predict(ctx context.Context, in *dto.PredictRequest, opts ...grpclib.CallOption) (*dto.PredictResponse, error) {
	out := new(dto.PredictResponse)
	opts = append([]grpclib.CallOption{grpclib.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, PredictFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
