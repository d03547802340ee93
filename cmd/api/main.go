// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

// Command api is the entry point for the Scholaris HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire domain services and HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/scholaris/scholaris/internal/abac"
	"github.com/scholaris/scholaris/internal/academic/course"
	"github.com/scholaris/scholaris/internal/academic/student"
	"github.com/scholaris/scholaris/internal/api"
	"github.com/scholaris/scholaris/internal/billing/plan"
	"github.com/scholaris/scholaris/internal/iam/auth"
	"github.com/scholaris/scholaris/internal/iam/identity"
	"github.com/scholaris/scholaris/internal/iam/role"
	"github.com/scholaris/scholaris/internal/platform/audit"
	"github.com/scholaris/scholaris/internal/platform/config"
	"github.com/scholaris/scholaris/internal/platform/constants"
	"github.com/scholaris/scholaris/internal/platform/metrics"
	"github.com/scholaris/scholaris/internal/platform/migration"
	pgstore "github.com/scholaris/scholaris/internal/platform/postgres"
	redisstore "github.com/scholaris/scholaris/internal/platform/redis"
	"github.com/scholaris/scholaris/internal/platform/sec"
	"github.com/scholaris/scholaris/internal/tenant"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	// A local .env is a development convenience; missing is not an error.
	if err := godotenv.Load(); err == nil {
		log.Info("dotenv_loaded")
	}

	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	metrics.Init()

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Security Primitives ────────────────────────────────────────────
	vault, err := sec.NewPasswordVault(cfg.PasswordHashCost, cfg.PasswordRequireSpecial)
	must(log, err, "initialize password vault")

	tokens, err := sec.NewTokenService(
		cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		constants.AuthIssuer, constants.AuthAudience,
		sec.WithAccessTTL(cfg.AccessTokenTTL),
		sec.WithRefreshTTL(cfg.RefreshTokenTTL),
	)
	must(log, err, "initialize token service")

	auditor := audit.NewRecorder(log)

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	roleRepository := role.NewPostgresRepository(pool)
	authRepository := auth.NewPostgresRepository(pool, roleRepository)
	resetTokenRepository := auth.NewPostgresResetTokenRepository(pool)
	loginThrottle := auth.NewRedisLoginThrottle(rdb)
	institutionRepository := tenant.NewPostgresRepository(pool)
	planRepository := plan.NewPostgresRepository(pool)
	countRepository := abac.NewPostgresCountRepository(pool)
	usageRepository := abac.NewPostgresUsageRepository(pool)
	studentRepository := student.NewPostgresRepository(pool)
	courseRepository := course.NewPostgresRepository(pool)

	resolver := identity.NewResolver(tokens, authRepository, auditor, log)

	tenantService := tenant.NewService(institutionRepository, institutionRepository, auditor, log)
	evaluator := abac.NewEvaluator(planRepository, countRepository, auditor, log)

	authService := auth.NewService(
		authRepository, resetTokenRepository, loginThrottle,
		roleRepository, institutionRepository,
		vault, tokens, auditor, log,
	)
	roleService := role.NewService(roleRepository, log)
	studentService := student.NewService(studentRepository, tenantService, evaluator, log)
	courseService := course.NewService(courseRepository, tenantService, evaluator, log)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:    liveness,
		Readiness:   readiness,
		Auth:        auth.NewHandler(authService, resolver),
		Institution: tenant.NewHandler(tenantService),
		Plan:        plan.NewHandler(planRepository),
		Role:        role.NewHandler(roleService),
		Student:     student.NewHandler(studentService),
		Course:      course.NewHandler(courseService),
		Access:      abac.NewHandler(evaluator, usageRepository),
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	server := api.NewServer(appCtx, cfg, log, resolver, tenantService, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
