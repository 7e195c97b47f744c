package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const (
	defaultPort           = 50051
	defaultMaxRecvMsgSize = 4 << 20
)

type Option func(*Options)

type Options struct {
	port           int
	logger         *zap.Logger
	reflection     bool
	enableLogging  bool
	requestTimeout time.Duration
	maxRecvMsgSize int
}

func WithPort(port int) Option {
	return func(o *Options) { o.port = port }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.logger = logger }
}

func WithReflection(enabled bool) Option {
	return func(o *Options) { o.reflection = enabled }
}

func WithLogging(enabled bool) Option {
	return func(o *Options) { o.enableLogging = enabled }
}

// WithRequestTimeout bounds every unary call; zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) { o.requestTimeout = d }
}

// WithMaxRecvMsgSize caps inbound messages, which for digest updates carry whole review batches.
func WithMaxRecvMsgSize(n int) Option {
	return func(o *Options) { o.maxRecvMsgSize = n }
}

// Server wraps a grpc.Server with its listener and health service.
type Server struct {
	grpcServer   *grpc.Server
	lis          net.Listener
	logger       *zap.Logger
	healthServer *health.Server
}

// New binds the listener eagerly so Addr is valid before Start. Port 0 picks a free port.
func New(opts ...Option) (*Server, error) {
	o := &Options{
		port:           defaultPort,
		maxRecvMsgSize: defaultMaxRecvMsgSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	if o.port < 0 || o.port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 0 and 65535", o.port)
	}
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", o.port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", o.port, err)
	}

	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(o.interceptors()...),
		grpc.MaxRecvMsgSize(o.maxRecvMsgSize),
	)
	if o.reflection {
		reflection.Register(gs)
	}

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return &Server{
		grpcServer:   gs,
		lis:          lis,
		logger:       o.logger.Named("grpc-server"),
		healthServer: hs,
	}, nil
}

// interceptors orders the chain outermost first: recovery wraps logging, logging wraps the deadline.
func (o *Options) interceptors() []grpc.UnaryServerInterceptor {
	chain := []grpc.UnaryServerInterceptor{RecoveryInterceptor(o.logger)}
	if o.enableLogging {
		chain = append(chain, LoggingInterceptor(o.logger))
	}
	if o.requestTimeout > 0 {
		chain = append(chain, TimeoutInterceptor(o.requestTimeout))
	}
	return chain
}

// RegisterServiceWithHealth registers a service and reports it as serving.
func (s *Server) RegisterServiceWithHealth(serviceName string, registerFunc func(s *grpc.Server)) {
	registerFunc(s.grpcServer)
	if serviceName != "" {
		s.SetServing(serviceName, true)
	}
}

// SetServing flips the health status reported for serviceName.
func (s *Server) SetServing(serviceName string, serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.healthServer.SetServingStatus(serviceName, st)
	s.logger.Info("service health updated",
		zap.String("service", serviceName),
		zap.String("status", st.String()))
}

// Start serves in a goroutine and returns immediately.
func (s *Server) Start() {
	addr := s.lis.Addr().String()
	go func() {
		if err := s.grpcServer.Serve(s.lis); err != nil {
			s.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()
	s.logger.Info("gRPC server started", zap.String("addr", addr))
}

// Shutdown drains in-flight calls and falls back to a hard stop when ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("gRPC server shutting down")
	s.healthServer.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("gRPC server stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("forced shutdown due to timeout")
		s.grpcServer.Stop()
		return ctx.Err()
	}
}

func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}
