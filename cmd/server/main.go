package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hostedpay/saferpay-service/internal/adapters/memory"
	"github.com/hostedpay/saferpay-service/internal/adapters/postgres"
	"github.com/hostedpay/saferpay-service/internal/adapters/saferpay"
	"github.com/hostedpay/saferpay-service/internal/config"
	"github.com/hostedpay/saferpay-service/internal/domain/ports"
	paymentHandler "github.com/hostedpay/saferpay-service/internal/handlers/payment"
	paymentService "github.com/hostedpay/saferpay-service/internal/services/payment"
	pkghttp "github.com/hostedpay/saferpay-service/pkg/http"
	"github.com/hostedpay/saferpay-service/pkg/logging"
	"github.com/hostedpay/saferpay-service/pkg/middleware"
	"github.com/hostedpay/saferpay-service/pkg/observability"
	"github.com/hostedpay/saferpay-service/pkg/resilience"
	"github.com/hostedpay/saferpay-service/pkg/shutdown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger := initLogger(cfg.Logger)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting saferpay service",
		zap.Bool("sandbox", cfg.Gateway.Sandbox),
	)

	// Payment store: postgres when configured, in-memory otherwise
	var repo ports.PaymentRepository
	var dbPool *pgxpool.Pool
	if cfg.Database.Host != "" {
		dbPool, err = initDatabase(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize database", zap.Error(err))
		}
		repo = postgres.NewPaymentRepository(dbPool)
		logger.Info("Database connection established",
			zap.String("database", cfg.Database.Database),
		)
	} else {
		repo = memory.NewPaymentRepository()
		logger.Info("Using in-memory payment store")
	}

	// Gateway client with a pooled, bounded-timeout HTTP transport
	httpClient := pkghttp.NewHTTPClient(
		pkghttp.GatewayClientConfig(),
		time.Duration(cfg.Gateway.Timeout)*time.Second,
	)
	gateway := saferpay.NewClient(
		saferpay.Config{
			CustomerID: cfg.Gateway.CustomerID,
			TerminalID: cfg.Gateway.TerminalID,
			BaseURL:    saferpay.BaseURLFor(cfg.Gateway.Sandbox),
		},
		saferpay.BasicCredentials{
			Username: cfg.Gateway.Username,
			Password: cfg.Gateway.Password,
		},
		httpClient,
		logging.NewZapLogger(logger),
	)

	service := paymentService.NewService(gateway, repo, logging.NewZapLogger(logger))

	// HTTP surface
	mux := http.NewServeMux()
	handler := paymentHandler.NewHandler(service, logger, cfg.Server.PublicBaseURL)
	handler.Register(mux)

	rateLimiter := middleware.NewRateLimiter(50, 100)
	gzipHandler := middleware.GzipHandler(middleware.GzipDefaultLevel, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      rateLimiter.Middleware(gzipHandler(mux)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Metrics and health
	healthChecker := observability.NewHealthChecker(dbPool)
	metricsServer := observability.StartMetricsServer(strconv.Itoa(cfg.Server.MetricsPort), healthChecker)
	logger.Info("Metrics server listening", zap.Int("port", cfg.Server.MetricsPort))

	// Graceful shutdown runs in reverse registration order: the HTTP server
	// stops accepting requests first, the database pool closes last.
	manager := shutdown.NewManager(logger, 30*time.Second)
	if dbPool != nil {
		manager.Register("database", func(ctx context.Context) error {
			dbPool.Close()
			return nil
		})
	}
	manager.Register("rate_limiter", func(ctx context.Context) error {
		rateLimiter.Shutdown()
		return nil
	})
	manager.Register("metrics_server", func(ctx context.Context) error {
		return observability.ShutdownMetricsServer(metricsServer)
	})
	manager.Register("http_server", server.Shutdown)

	manager.WaitForShutdown()
}

func initLogger(cfg config.LoggerConfig) *zap.Logger {
	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}

func initDatabase(cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns

	// The database may still be coming up when the service starts; retry the
	// initial connection with backoff before giving up.
	backoff := resilience.DatabaseBackoff()
	const maxAttempts = 5

	var pool *pgxpool.Pool
	for attempt := 0; attempt < maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			err = pool.Ping(ctx)
			if err != nil {
				pool.Close()
			}
		}
		cancel()

		if err == nil {
			return pool, nil
		}

		if attempt < maxAttempts-1 {
			delay := backoff.NextDelay(attempt)
			logger.Warn("Database connection failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Duration("retry_in", delay),
				zap.Error(err),
			)
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("connect to database after %d attempts: %w", maxAttempts, err)
}
