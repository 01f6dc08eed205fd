// Package server exposes snapshots of a commit history over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/histree/pkg/observability"
	"github.com/Sumatoshi-tech/histree/pkg/snapshot"
)

// Default timeouts for the HTTP server.
const (
	DefaultReadTimeout  = 15 * time.Second
	DefaultWriteTimeout = 60 * time.Second
	defaultIdleTimeout  = 120 * time.Second
	shutdownGrace       = 10 * time.Second
)

// Options configures a Server. Zero values are usable.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *slog.Logger
	Tracer       trace.Tracer
	RED          *observability.REDMetrics
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	// Location is used for period grouping when a request names no tz.
	Location *time.Location
}

// Server serves the snapshot API.
type Server struct {
	svc      *snapshot.Service
	opts     Options
	logger   *slog.Logger
	handler  http.Handler
	listener net.Listener
}

// New builds the routes for svc.
func New(svc *snapshot.Service, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("histree")
	}

	if opts.Location == nil {
		opts.Location = time.Local
	}

	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}

	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}

	s := &Server{svc: svc, opts: opts, logger: opts.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/v1/contributors", s.handleContributors)
	mux.HandleFunc("GET /api/v1/periods", s.handlePeriods)
	mux.HandleFunc("GET /api/v1/diff", s.handleDiff)
	mux.HandleFunc("GET /api/v1/info", s.handleInfo)
	mux.Handle("GET /healthz", observability.HealthHandler())
	mux.Handle("GET /readyz", observability.ReadyHandler(svc.Ready))

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	s.handler = observability.HTTPMiddleware(opts.Tracer, opts.RED, opts.Logger, mux)

	return s
}

// Handler returns the instrumented route tree.
func (s *Server) Handler() http.Handler { return s.handler }

// Addr returns the bound address once Serve has started listening.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.opts.Addr
	}

	return s.listener.Addr().String()
}

// Listen binds the configured address.
func (s *Server) Listen(ctx context.Context) error {
	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}

	s.listener = listener

	return nil
}

// Serve answers requests until ctx is cancelled, then shuts down gracefully.
// It listens first when Listen was not called.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		err := s.Listen(ctx)
		if err != nil {
			return err
		}
	}

	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Serve(s.listener)
	}()

	s.logger.InfoContext(ctx, "histree server listening", "addr", s.Addr())

	select {
	case serveErr := <-errCh:
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", serveErr)
		}

		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	s.logger.InfoContext(ctx, "histree server stopped")

	return nil
}
