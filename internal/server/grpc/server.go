package grpcserver

import (
	"context"
	"net"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rzbill/battlelog/internal/runtime"
	battlesvc "github.com/rzbill/battlelog/internal/services/battles"
)

// Server owns the gRPC server instance and runtime.
type Server struct {
	rt   *runtime.Runtime
	svc  *battlesvc.Service
	grpc *grpc.Server
	lis  net.Listener
}

// New constructs a gRPC server and registers services.
func New(rt *runtime.Runtime, svc *battlesvc.Service, opts ...grpc.ServerOption) *Server {
	s := &Server{rt: rt, svc: svc, grpc: grpc.NewServer(opts...)}
	healthpb.RegisterHealthServer(s.grpc, &healthSvc{rt: rt})
	s.grpc.RegisterService(&BattlesServiceDesc, &battlesSvc{svc: svc})
	return s
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
	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(l) }()
	select {
	case <-ctx.Done():
		s.grpc.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops the server and closes the listener.
func (s *Server) Close() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
	if s.lis != nil {
		_ = s.lis.Close()
	}
}
