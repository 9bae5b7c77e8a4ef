package service

import (
	"context"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// CompressorClient is the client API for the Compressor service.
type CompressorClient interface {
	Compress(ctx context.Context, in *CompressRequest, opts ...grpc.CallOption) (*CompressResponse, error)
	// Healthy reports whether the server's compressor is serving
	Healthy(ctx context.Context, opts ...grpc.CallOption) (bool, error)
}

type compressorClient struct {
	cc grpc.ClientConnInterface
}

// NewCompressorClient returns a client that talks JSON over cc
func NewCompressorClient(cc grpc.ClientConnInterface) CompressorClient {
	return &compressorClient{cc: cc}
}

func (c *compressorClient) Compress(ctx context.Context, in *CompressRequest, opts ...grpc.CallOption) (*CompressResponse, error) {
	out := new(CompressResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, compressMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *compressorClient) Healthy(ctx context.Context, opts ...grpc.CallOption) (bool, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	resp, err := healthpb.NewHealthClient(c.cc).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName}, opts...)
	if err != nil {
		return false, err
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}
