package grpcserver

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rzbill/rtstream/internal/runtime"
	"github.com/rzbill/rtstream/pkg/log"
	"github.com/rzbill/rtstream/pkg/stream"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "rtstream.Stream"

// Server serves grpc.health.v1 for one runtime. Status follows the client
// connection: SERVING while open, NOT_SERVING otherwise.
type Server struct {
	rt     *runtime.Runtime
	health *health.Server
	grpc   *grpc.Server
	lis    net.Listener
	sub    *stream.Subscription
	logger log.Logger
}

// New constructs a gRPC server and registers the health service.
func New(rt *runtime.Runtime, logger log.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	s := &Server{
		rt:     rt,
		health: health.NewServer(),
		grpc:   grpc.NewServer(opts...),
		logger: logger.WithComponent("grpc-health"),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.setStatus(rt.Client().State())
	s.sub = rt.Client().OnStateChange(func(ch stream.StateChange) { s.setStatus(ch.To) })
	return s
}

func (s *Server) setStatus(st stream.State) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if st == stream.StateOpen {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve serves on l until ctx is done.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.lis = l
	s.logger.Info("grpc health listening", log.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(l) }()
	select {
	case <-ctx.Done():
		s.Close()
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops tracking the client and stops the server.
func (s *Server) Close() {
	s.sub.Unsubscribe()
	s.health.Shutdown()
	s.grpc.GracefulStop()
	if s.lis != nil {
		_ = s.lis.Close()
	}
}
