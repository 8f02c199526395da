// Package server provides the gatewise HTTP frontend: the admission
// middleware, the protected demo endpoints, and the operational endpoints
// for probes and metrics.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gatewise-hq/gatewise/pkg/admission"
	"gatewise-hq/gatewise/pkg/admission/policy"
	"gatewise-hq/gatewise/pkg/config"
	"gatewise-hq/gatewise/pkg/telemetry/health"
	"gatewise-hq/gatewise/pkg/telemetry/logging"
	"gatewise-hq/gatewise/pkg/usagelog"
)

// Server is the gatewise HTTP server.
type Server struct {
	cfg config.ServerConfig
	log *logging.Logger

	handler    http.Handler
	httpServer *http.Server

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.Mutex
	isRunning    bool
}

// Options wires the server's collaborators.
type Options struct {
	Config   config.Config
	Gate     *admission.Gate
	Checker  *health.Checker
	Recorder *usagelog.Recorder
	Registry *prometheus.Registry
	Logger   *logging.Logger
}

// New assembles the route table and returns an unstarted server.
func New(opts Options) (*Server, error) {
	if opts.Gate == nil {
		return nil, fmt.Errorf("admission gate is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Checker == nil {
		opts.Checker = health.New(0)
	}

	s := &Server{
		cfg:          opts.Config.Server,
		log:          opts.Logger,
		shutdownChan: make(chan struct{}),
	}
	s.handler = s.routes(opts)
	return s, nil
}

// Handler exposes the assembled route table, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes(opts Options) http.Handler {
	mux := http.NewServeMux()

	admit := func(class policy.Class, h http.Handler) http.Handler {
		return Admit(opts.Gate, class, opts.Recorder, opts.Logger)(h)
	}

	mux.Handle("/v1/public/echo", admit(policy.ClassPublic, echoHandler()))
	mux.Handle("/v1/search", admit(policy.ClassSearch, searchHandler()))
	mux.Handle("/v1/ai/query", admit(policy.ClassAI, aiQueryHandler()))

	mux.HandleFunc("/healthz", opts.Checker.LivenessHandler())
	mux.HandleFunc("/readyz", opts.Checker.ReadinessHandler())

	if opts.Config.Telemetry.Metrics.Enabled && opts.Registry != nil {
		mux.Handle(opts.Config.Telemetry.Metrics.Path, promhttp.HandlerFor(
			opts.Registry,
			promhttp.HandlerOpts{EnableOpenMetrics: true},
		))
	}

	return RequestID(mux)
}

// Start starts the HTTP server and blocks until shutdown, either from the
// context, a SIGINT/SIGTERM, or an explicit Shutdown call.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddress,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting server", "address", s.cfg.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.log.Info("Context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.log.Info("Received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return nil
	}
}

// Shutdown gracefully stops the server, letting in-flight requests finish
// within the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		defer close(s.shutdownChan)

		s.mu.Lock()
		running := s.isRunning
		s.isRunning = false
		s.mu.Unlock()
		if !running || s.httpServer == nil {
			return
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()

		s.log.Info("Shutting down server")
		err = s.httpServer.Shutdown(shutdownCtx)
	})
	return err
}
