package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/KevoDB/blockvid/pkg/common/log"
	"github.com/KevoDB/blockvid/pkg/config"
	"github.com/KevoDB/blockvid/pkg/grpc/service"
	"github.com/KevoDB/blockvid/pkg/grpc/transport"
	"github.com/KevoDB/blockvid/pkg/telemetry"
)

// Frames travel as JSON booleans, so requests are large.
const maxMessageSize = 256 << 20

// Server represents the blockvid gRPC server
type Server struct {
	cfg        *config.Config
	opts       Options
	logger     log.Logger
	pipeline   *pipeline
	listener   net.Listener
	grpcServer *grpc.Server
	service    *service.CompressorService
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts Options) *Server {
	return &Server{
		cfg:    cfg,
		opts:   opts,
		logger: log.GetDefaultLogger().WithField("component", telemetry.ComponentService),
	}
}

// Start initializes the server and binds its listener
func (s *Server) Start() error {
	p, err := newPipeline(s.cfg, s.logger)
	if err != nil {
		return err
	}
	s.pipeline = p

	s.listener, err = net.Listen("tcp", s.opts.ListenAddr)
	if err != nil {
		p.Close()
		return fmt.Errorf("failed to listen on %s: %w", s.opts.ListenAddr, err)
	}

	serverOpts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(maxMessageSize),
		grpc.MaxSendMsgSize(maxMessageSize),
	}

	creds, err := transport.ServerCredentials(s.opts.TLS)
	if err != nil {
		s.listener.Close()
		p.Close()
		return err
	}
	if creds != nil {
		serverOpts = append(serverOpts, creds)
	}

	kaProps := keepalive.ServerParameters{
		MaxConnectionIdle:     60 * time.Second,
		MaxConnectionAge:      5 * time.Minute,
		MaxConnectionAgeGrace: 5 * time.Second,
		Time:                  15 * time.Second,
		Timeout:               5 * time.Second,
	}

	kaPolicy := keepalive.EnforcementPolicy{
		MinTime:             5 * time.Second,
		PermitWithoutStream: true,
	}

	serverOpts = append(serverOpts,
		grpc.KeepaliveParams(kaProps),
		grpc.KeepaliveEnforcementPolicy(kaPolicy),
	)

	s.grpcServer = grpc.NewServer(serverOpts...)
	s.service = service.NewCompressorService(p.coordinator, s.cfg, s.logger)
	s.service.Register(s.grpcServer)

	s.logger.Info("Listening on %s", s.listener.Addr())
	return nil
}

// Addr returns the bound listener address
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve starts serving requests (blocking)
func (s *Server) Serve() error {
	if s.grpcServer == nil {
		return fmt.Errorf("server not initialized, call Start() first")
	}
	return s.grpcServer.Serve(s.listener)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.service != nil {
		s.service.Shutdown()
	}

	if s.grpcServer != nil {
		stopped := make(chan struct{})
		go func() {
			s.grpcServer.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
			s.logger.Info("gRPC server stopped gracefully")
		case <-ctx.Done():
			s.logger.Warn("Context deadline exceeded, forcing server stop")
			s.grpcServer.Stop()
		}
	}

	if s.pipeline != nil {
		if err := s.pipeline.Close(); err != nil {
			return fmt.Errorf("failed to shut down telemetry: %w", err)
		}
	}

	return nil
}

// runServer runs the server until SIGINT or SIGTERM
func runServer(cfg *config.Config, opts Options) error {
	server := NewServer(cfg, opts)
	if err := server.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve()
	}()

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		server.logger.Info("Received signal %v, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	return <-errChan
}
