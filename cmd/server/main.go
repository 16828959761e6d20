package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/requirements-evaluator/configs"
	"github.com/avatarctic/requirements-evaluator/internal/application/services"
	"github.com/avatarctic/requirements-evaluator/internal/core/ports"
	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/db"
	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/health"
	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/httpserver"
	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/llm"
	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/logging"
	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/metrics"
	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/redis"
	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/repositories"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := logging.NewLogger(&cfg.Log)
	logger.WithFields(logrus.Fields{
		"version":    version,
		"provider":   cfg.Model.Provider,
		"model":      cfg.Model.ModelID,
		"rl_backend": cfg.RateLimit.Backend,
	}).Info("Starting requirements evaluator...")

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	var hcSlice []ports.HealthChecker

	// Database is optional: it backs the postgres rate limit store and the audit trail.
	var database *db.Database
	if cfg.Database.Enabled {
		database, err = db.NewDatabaseWithConfig(&cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database:", err)
		}
		defer database.Close()
		logger.Info("Connected to database successfully")

		if err := database.Migrate(); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		hcSlice = append(hcSlice, health.NewDBHealthChecker(database))
	}

	evalMetrics := metrics.NewPrometheus(prometheus.DefaultRegisterer)

	store, storeHC, cleanup, err := newUsageStore(rootCtx, cfg, database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize rate limit store")
	}
	defer cleanup()
	if storeHC != nil {
		hcSlice = append(hcSlice, storeHC)
	}

	rateLimiterService := services.NewRateLimiterService(store, &services.RateLimiterConfig{
		MaxPerWindow:   cfg.RateLimit.MaxPerWindow,
		Window:         cfg.RateLimit.Window,
		KeyPrefix:      cfg.RateLimit.KeyPrefix,
		StoreTimeout:   cfg.RateLimit.StoreTimeout,
		Skip:           cfg.RateLimit.Skip,
		HashIdentities: cfg.RateLimit.HashIdentities,
	}, evalMetrics, logger)
	if cfg.RateLimit.Skip {
		logger.Warn("Rate limiting disabled by SKIP_RATE_LIMIT")
	}

	model, err := llm.NewModelClient(rootCtx, &cfg.Model)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize model client")
	}

	normalizer := services.NewNormalizer(&services.NormalizerConfig{MaxSuggestions: cfg.Validation.MaxSuggestions}, logger)

	var auditRepo ports.AuditRepository
	if database != nil {
		auditRepo = repositories.NewAuditRepository(database, logger)
	} else {
		auditRepo = repositories.NewLogAuditRepository(logger)
	}
	auditService := services.NewAuditService(auditRepo, cfg.Audit.Enabled, logger)

	evaluationService := services.NewEvaluationService(rateLimiterService, model, normalizer, auditService, evalMetrics, &services.EvaluationConfig{
		MinLength:      cfg.Validation.MinLength,
		MaxLength:      cfg.Validation.MaxLength,
		MaxSuggestions: cfg.Validation.MaxSuggestions,
		ModelTimeout:   cfg.Model.Timeout,
	}, logger)

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Environment:    cfg.Server.Environment,
		BodyLimit:      cfg.Server.BodyLimit,
		TrustProxy:     cfg.Server.TrustProxy,
		Version:        version,
	}

	server := httpserver.NewServer(serverConfig, logger, httpserver.ServerDeps{
		EvaluationService:  evaluationService,
		RateLimiterService: rateLimiterService,
		HealthCheckers:     hcSlice,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Info("Server stopped")
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

// newUsageStore builds the configured rate limit store. The health checker is nil when
// the store has no external dependency of its own.
func newUsageStore(ctx context.Context, cfg *config.Config, database *db.Database, logger *logrus.Logger) (ports.UsageStore, ports.HealthChecker, func(), error) {
	noop := func() {}
	switch cfg.RateLimit.Backend {
	case config.BackendRedis:
		client, err := redis.NewRedisClient(ctx, &cfg.Redis, logger)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("configure redis: %w", err)
		}
		return repositories.NewRateLimitRedisRepository(client), health.NewRedisHealthChecker(client), func() { _ = client.Close() }, nil
	case config.BackendPostgres:
		if database == nil {
			return nil, nil, noop, fmt.Errorf("postgres rate limit backend requires DB_ENABLED=true")
		}
		repo := repositories.NewRateLimitPostgresRepository(database, logger)
		repositories.StartUsageJanitor(ctx, repo, cfg.RateLimit.JanitorEvery, logger)
		return repo, nil, noop, nil
	case config.BackendMemory:
		logger.Warn("Using in-memory rate limit store; counters are not shared between replicas")
		repo := repositories.NewRateLimitMemoryRepository()
		repositories.StartUsageJanitor(ctx, repo, cfg.RateLimit.JanitorEvery, logger)
		return repo, nil, noop, nil
	}
	return nil, nil, noop, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimit.Backend)
}
