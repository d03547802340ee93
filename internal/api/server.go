// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/scholaris/scholaris/internal/abac"
	"github.com/scholaris/scholaris/internal/academic/course"
	"github.com/scholaris/scholaris/internal/academic/student"
	"github.com/scholaris/scholaris/internal/billing/plan"
	"github.com/scholaris/scholaris/internal/iam/auth"
	"github.com/scholaris/scholaris/internal/iam/role"
	"github.com/scholaris/scholaris/internal/platform/config"
	"github.com/scholaris/scholaris/internal/platform/constants"
	"github.com/scholaris/scholaris/internal/platform/metrics"
	"github.com/scholaris/scholaris/internal/platform/middleware"
	"github.com/scholaris/scholaris/internal/tenant"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles registration, login, token refresh, and password flows.
	Auth *auth.Handler

	// Institution manages tenants and platform administration.
	Institution *tenant.Handler

	// Plan exposes the public billing plan catalog.
	Plan *plan.Handler

	// Role manages role assignments within an institution.
	Role *role.Handler

	// Student manages the institution's student roster.
	Student *student.Handler

	// Course manages the institution's course catalog.
	Course *course.Handler

	// Access exposes quota reports and AI usage spending.
	Access *abac.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(appCtx context.Context, cfg *config.Config, log *slog.Logger,
	resolver middleware.IdentityResolver, tenants *tenant.Service, h Handlers) *Server {

	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(metrics.Instrument)
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(appCtx))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated probes for container orchestration and scraping.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	r.Handle("/metrics", metrics.Handler())

	// # Application API
	// Domain-specific route groups mounted under versioned prefix.
	r.Route("/api/v1", func(api chi.Router) {
		// Public surface
		api.Route("/auth", h.Auth.RegisterRoutes)
		api.Route("/plans", h.Plan.RegisterRoutes)

		// Authenticated surface
		api.Group(func(authed chi.Router) {
			authed.Use(middleware.Authenticate(resolver))

			authed.Route("/institutions", h.Institution.RegisterRoutes)
			authed.Route("/roles", h.Role.RegisterRoutes)

			// Tenant-scoped surface. Without an explicit institution in the
			// path the tenant resolves to the principal's own institution.
			authed.Group(func(scoped chi.Router) {
				scoped.Use(tenant.Require(tenants))

				scoped.Route("/students", h.Student.RegisterRoutes)
				scoped.Route("/courses", h.Course.RegisterRoutes)
				h.Access.RegisterQuotaRoutes(scoped)
				scoped.Route("/ai", h.Access.RegisterUsageRoutes)
			})
		})
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
