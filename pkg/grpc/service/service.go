// Package service exposes the compression pipeline over gRPC.
package service

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/KevoDB/blockvid/pkg/block"
	"github.com/KevoDB/blockvid/pkg/common/log"
	"github.com/KevoDB/blockvid/pkg/compaction"
	"github.com/KevoDB/blockvid/pkg/config"
	"github.com/KevoDB/blockvid/pkg/lesson"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "blockvid.Compressor"

// CompressRequest carries sampled frames to compress.
type CompressRequest struct {
	Frames [][][]bool `json:"frames"`
	FPS    int        `json:"fps"`
	// Partitions overrides the configured partition count when positive
	Partitions int `json:"partitions,omitempty"`
}

// CompressResponse carries the lesson video of a compressed request.
type CompressResponse struct {
	Video  *lesson.LessonVideo `json:"video"`
	Pixels int                 `json:"pixels"`
	Blocks int                 `json:"blocks"`
	Ratio  float64             `json:"ratio"`
}

// CompressorServer is the server API for the Compressor service.
type CompressorServer interface {
	Compress(context.Context, *CompressRequest) (*CompressResponse, error)
}

// CompressorService implements CompressorServer on top of a coordinator
type CompressorService struct {
	coordinator *compaction.Coordinator
	cfg         *config.Config
	logger      log.Logger
	health      *health.Server
}

// NewCompressorService creates a service that compresses with coordinator
// and maps blocks to lessons according to cfg
func NewCompressorService(coordinator *compaction.Coordinator, cfg *config.Config, logger log.Logger) *CompressorService {
	if logger == nil {
		logger = log.GetDefaultLogger().WithField("component", "service")
	}
	return &CompressorService{
		coordinator: coordinator,
		cfg:         cfg,
		logger:      logger,
		health:      health.NewServer(),
	}
}

// Register adds the compressor and health services to s
func (s *CompressorService) Register(gs *grpc.Server) {
	RegisterCompressorServer(gs, s)
	healthpb.RegisterHealthServer(gs, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
}

// Shutdown marks every service as not serving
func (s *CompressorService) Shutdown() {
	s.health.Shutdown()
}

// Compress runs the pipeline on the request frames
func (s *CompressorService) Compress(ctx context.Context, req *CompressRequest) (*CompressResponse, error) {
	if req.FPS <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "fps must be positive, got %d", req.FPS)
	}

	partitions := s.cfg.Partitions
	if req.Partitions != 0 {
		partitions = req.Partitions
	}
	if partitions <= 0 || partitions > config.MaxPartitions {
		return nil, status.Errorf(codes.InvalidArgument, "partitions must be between 1 and %d", config.MaxPartitions)
	}

	seq, err := s.coordinator.CompressPartitions(ctx, req.Frames, req.FPS, partitions)
	if err != nil {
		return nil, toStatus(err)
	}

	video, err := lesson.NewBuilder(lesson.OptionsFromConfig(s.cfg)).Build(seq)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &CompressResponse{
		Video:  video,
		Pixels: seq.Pixels(),
		Blocks: seq.BlockCount(),
		Ratio:  seq.Ratio(),
	}
	s.logger.Debug("Compressed %d frames into %d blocks", seq.FrameCount, resp.Blocks)
	return resp, nil
}

func toStatus(err error) error {
	switch {
	case block.ConfigurationError.Has(err), block.DimensionMismatch.Has(err),
		errors.Is(err, lesson.ErrWindowTooTall), errors.Is(err, lesson.ErrNoDay):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, fmt.Sprintf("compression failed: %v", err))
	}
}

// RegisterCompressorServer registers srv with s
func RegisterCompressorServer(s grpc.ServiceRegistrar, srv CompressorServer) {
	s.RegisterService(&CompressorServiceDesc, srv)
}

func compressHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CompressRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CompressorServer).Compress(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: compressMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CompressorServer).Compress(ctx, req.(*CompressRequest))
	}
	return interceptor(ctx, in, info, handler)
}

const compressMethod = "/" + ServiceName + "/Compress"

// CompressorServiceDesc describes the Compressor service
var CompressorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CompressorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Compress",
			Handler:    compressHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "blockvid/compressor",
}
