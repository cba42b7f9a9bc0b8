package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"treko/internal/adapter/gin/middleware"
)

// Server wraps the HTTP server and its graceful shutdown.
type Server struct {
	HTTP            *http.Server
	Logger          *zap.Logger
	ShutdownTimeout time.Duration
}

// New creates an HTTP server for handler. Each request is bounded by requestTimeout.
func New(addr string, handler http.Handler, requestTimeout, shutdownTimeout time.Duration, l *zap.Logger) *Server {
	writeTimeout := 10 * time.Second
	if requestTimeout > 0 {
		writeTimeout = requestTimeout + 5*time.Second
	}

	return &Server{
		HTTP: &http.Server{
			Addr:              addr,
			Handler:           middleware.Timeout(handler, requestTimeout),
			ReadHeaderTimeout: 2 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       120 * time.Second,
		},
		Logger:          l,
		ShutdownTimeout: shutdownTimeout,
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", s.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is cancelled, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.Logger.Info("HTTP server running", zap.String("address", lis.Addr().String()))

	errChan := make(chan error, 1)
	go func() {
		if err := s.HTTP.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case err, ok := <-errChan:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.Logger.Info("shutting down HTTP server...",
		zap.Duration("timeout", s.ShutdownTimeout),
	)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()

	if err := s.HTTP.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}
