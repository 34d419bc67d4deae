package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/application/dto"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/application/lifecycle"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/application/usecase"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/port"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/infrastructure/artifact"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/infrastructure/config"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/infrastructure/kafka"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/infrastructure/messaging"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/infrastructure/postgres"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/infrastructure/redis"
	grpcpresentation "github.com/enesgulerml/titanic-mlops-k8s/internal/presentation/grpc"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/presentation/rest"
	pkgkafka "github.com/enesgulerml/titanic-mlops-k8s/pkg/kafka"
	"github.com/enesgulerml/titanic-mlops-k8s/pkg/observability"
	pgpkg "github.com/enesgulerml/titanic-mlops-k8s/pkg/postgres"
	"github.com/enesgulerml/titanic-mlops-k8s/pkg/tlsutil"
)

const serviceName = "titanic-api"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize structured logger via shared observability package.
	logger, closeLog, err := observability.InitLogger(observability.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Dir:    cfg.LogDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer closeLog()

	logger.Info("starting "+serviceName,
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"model_path", cfg.ModelPath,
	)

	// Initialize tracing.
	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: rest.ServiceVersion,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       true,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	// Initialize metrics.
	meterProvider, metricsHandler, err := observability.InitMetrics(ctx, observability.MetricsConfig{
		ServiceName:    serviceName,
		ServiceVersion: rest.ServiceVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	meter := meterProvider.Meter("github.com/enesgulerml/titanic-mlops-k8s")

	// Serving lifecycle: model artifact and prediction cache.
	manager := lifecycle.NewManager(
		lifecycle.Config{ModelPath: cfg.ModelPath, CacheTTL: cfg.CacheTTL},
		artifact.Load,
		cacheConnector(cfg, logger),
		meter,
		logger,
	)

	// Optional side channels. Both fail open.
	repo := auditRepository(ctx, cfg, manager, logger)
	publisher := eventPublisher(cfg, manager, logger)

	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start serving lifecycle: %w", err)
	}

	// Wire use cases.
	predictUC, err := usecase.NewPredictSurvival(manager, dto.NewValidator(), repo, publisher, meter, logger)
	if err != nil {
		return fmt.Errorf("failed to create predict use case: %w", err)
	}
	// Registered last so queued audit records and events flush before the
	// pool and producer close.
	manager.OnShutdown("side channels", predictUC.Close)

	// gRPC server.
	grpcServer, err := grpcpresentation.NewServer(
		grpcpresentation.NewPredictionHandler(predictUC, logger),
		grpcpresentation.ServerConfig{
			Address:     cfg.GRPCAddress(),
			TLSCertFile: cfg.GRPCTLSCertFile,
			TLSKeyFile:  cfg.GRPCTLSKeyFile,
			Reflection:  cfg.Environment == "development",
		},
		logger,
	)
	if err != nil {
		return err
	}
	grpcServer.SetServing(manager.Status().Ready())

	// HTTP server.
	router := rest.NewRouter(
		rest.NewHealthHandler(manager, logger),
		rest.NewPredictHandler(predictUC, logger),
		rest.RouterConfig{
			RateLimit: cfg.RateLimit,
			Burst:     cfg.RateBurst,
			Metrics:   metricsHandler,
		},
		logger,
	)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start servers.
	errCh := make(chan error, 2)

	go func() {
		if err := grpcServer.Start(); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server starting", "address", cfg.HTTPAddress())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info(serviceName+" started",
		"grpc_address", cfg.GRPCAddress(),
		"http_address", cfg.HTTPAddress(),
		"environment", cfg.Environment,
		"model_version", manager.Status().ModelVersion,
	)

	// Wait for shutdown signal.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	// Graceful shutdown.
	logger.Info("shutting down " + serviceName)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	grpcServer.Stop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error("lifecycle shutdown error", "error", err)
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error("meter provider shutdown error", "error", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("tracer shutdown error", "error", err)
	}

	logger.Info(serviceName + " stopped")
	return nil
}

// cacheConnector returns nil when caching is disabled.
func cacheConnector(cfg *config.Config, logger *slog.Logger) lifecycle.CacheConnector {
	if cfg.CacheDisabled {
		return nil
	}
	return func(ctx context.Context) (port.CacheStore, error) {
		opts := redis.Options{
			Addr:     cfg.RedisAddress(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
		if cfg.RedisTLSCAFile != "" {
			tlsCfg, err := tlsutil.ClientConfig(cfg.RedisTLSCAFile)
			if err != nil {
				return nil, err
			}
			opts.TLSConfig = tlsCfg
			logger.Info("redis TLS enabled", "ca_file", cfg.RedisTLSCAFile)
		}
		return redis.NewCacheStore(opts), nil
	}
}

func auditRepository(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, logger *slog.Logger) port.PredictionRepository {
	if !cfg.AuditEnabled() {
		logger.Info("DATABASE_URL not set, prediction audit disabled")
		return nil
	}

	if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
		logger.Warn("failed to run audit migrations, prediction audit disabled", "error", err)
		return nil
	}

	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dbCancel()

	pool, err := pgpkg.NewPool(dbCtx, pgpkg.Config{URL: cfg.DatabaseURL})
	if err != nil {
		logger.Warn("failed to connect to database, prediction audit disabled", "error", err)
		return nil
	}
	manager.OnShutdown("postgres", func(context.Context) error {
		pool.Close()
		return nil
	})
	logger.Info("connected to database")
	return postgres.NewPredictionRepository(pool)
}

func eventPublisher(cfg *config.Config, manager *lifecycle.Manager, logger *slog.Logger) port.EventPublisher {
	if !cfg.EventsEnabled() {
		logger.Info("KAFKA_BROKERS not set, prediction events go to the log")
		return messaging.NewLogPublisher(logger)
	}

	kcfg := pkgkafka.Config{
		Brokers:  cfg.KafkaBrokers,
		ClientID: serviceName,
		Async:    true,
		Logger:   logger,
	}
	if cfg.KafkaTLSCAFile != "" {
		tlsCfg, err := tlsutil.ClientConfig(cfg.KafkaTLSCAFile)
		if err != nil {
			logger.Warn("failed to load kafka TLS config, prediction events go to the log", "error", err)
			return messaging.NewLogPublisher(logger)
		}
		kcfg.TLS = tlsCfg
		logger.Info("kafka TLS enabled", "ca_file", cfg.KafkaTLSCAFile)
	}

	producer := pkgkafka.NewProducer(kcfg)
	manager.OnShutdown("kafka", func(context.Context) error {
		return producer.Close()
	})
	logger.Info("publishing prediction events to kafka",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaTopic,
	)
	return kafka.NewPublisher(producer, cfg.KafkaTopic, logger)
}
