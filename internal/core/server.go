// Package core provides the HTTP chassis for the site API. It creates a chi
// router, enforces cross-cutting concerns -- security, logging,
// observability, and error handling -- before requests reach domain
// handlers, and gates the private Lab surface behind the admin resolver.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"

	"labsite/internal/auth"
	"labsite/internal/config"
	"labsite/internal/types"
)

// MetricsCollector defines the interface for recording API telemetry.
// Implementations record request latency and count metrics to CloudWatch
// or equivalent backends.
type MetricsCollector interface {
	// RecordRequest records API request metrics including latency and count.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// Server encapsulates all dependencies for the site API, allowing for easy
// injection during testing and distinct configuration for different
// environments.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   MetricsCollector
	Clock     types.Clock
	Admin     *auth.AdminResolver // Resolves session + allowlist to AdminState; injected for testability.

	// V1RouteRegistrars are populated by the application entry point so
	// handler packages can register routes without importing core from
	// both directions.
	V1RouteRegistrars []func(chi.Router)

	// HealthProbes are the subsystem checks executed by GET /health.
	HealthProbes []HealthProbe

	// Cleanup functions run during Shutdown, in registration order.
	// The entry point registers the database pool close here.
	Cleanup []func() error

	// Internal router
	router *chi.Mux
}

// NewServer initializes dependencies, sets up the router, and prepares the
// server for route mounting. It performs a fail-fast check on critical
// dependencies.
//
// The caller is responsible for mounting routes (via MountRoutes or
// equivalent) after construction; tests use this to customize registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	s := &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		Clock:     types.RealClock{},
		router:    chi.NewRouter(),
	}

	return s, nil
}

// Handler returns the router wrapped with transparent gzip compression.
// Used by http.ListenAndServe.
func (s *Server) Handler() http.Handler {
	return gzhttp.GzipHandler(s.router)
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// now returns the current time from the injected clock, falling back to the
// real clock when none was set.
func (s *Server) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return types.RealClock{}.Now()
}

// Shutdown performs a graceful termination of server resources, running all
// registered cleanup functions. The first failure is returned after every
// function has run.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	var firstErr error
	for _, fn := range s.Cleanup {
		if err := fn(); err != nil {
			s.Logger.Error("cleanup failed during shutdown", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	s.Logger.Info("server shutdown complete")
	return firstErr
}
