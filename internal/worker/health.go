package worker

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer reports the worker's liveness over the standard gRPC health protocol.
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	log    *zap.Logger
}

// NewHealthServer creates a health server that reports NOT_SERVING until SetServing is called.
func NewHealthServer(log *zap.Logger) *HealthServer {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &HealthServer{grpc: srv, health: hs, log: log}
}

// SetServing flips the overall status.
func (s *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}

// Serve listens on addr until ctx is cancelled.
func (s *HealthServer) Serve(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.ServeListener(ctx, lis)
}

// ServeListener serves on lis until ctx is cancelled.
func (s *HealthServer) ServeListener(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpc.GracefulStop()
	}()

	s.log.Info("worker health server running", zap.String("address", lis.Addr().String()))
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

// Supervise runs w and reports SERVING from the first time it reaches its queue
// until Run returns.
func Supervise(ctx context.Context, w *Worker, hs *HealthServer) error {
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-w.Ready():
		hs.SetServing(true)
		hs.log.Info("worker reached its queue, reporting SERVING")
		err := <-done
		hs.SetServing(false)
		return err
	case err := <-done:
		return err
	}
}
