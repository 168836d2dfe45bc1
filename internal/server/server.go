// Package server exposes the assistant over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rcliao/sorma/internal/assistant"
	"github.com/rcliao/sorma/internal/auth"
	"github.com/rcliao/sorma/internal/metrics"
)

// SessionHeader carries the session token issued by POST /api/auth.
const SessionHeader = "X-Session-ID"

// Options wires a Server.
type Options struct {
	Addr       string
	Assistant  *assistant.Assistant
	SessionTTL time.Duration
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Server is the sorma HTTP API server.
type Server struct {
	asst     *assistant.Assistant
	sessions *auth.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
	http     *http.Server
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		asst:     opts.Assistant,
		sessions: auth.NewRegistry(opts.SessionTTL),
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.withLogging(withCORS(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Sessions returns the session registry.
func (s *Server) Sessions() *auth.Registry { return s.sessions }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.logger.Info("sorma server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown error", "error", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
