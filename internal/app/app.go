package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ayokunle/totopool/internal/api"
	"github.com/ayokunle/totopool/internal/api/handler"
	"github.com/ayokunle/totopool/internal/api/middleware"
	"github.com/ayokunle/totopool/internal/cache"
	"github.com/ayokunle/totopool/internal/config"
	"github.com/ayokunle/totopool/internal/db"
	"github.com/ayokunle/totopool/internal/deposit"
	"github.com/ayokunle/totopool/internal/domain"
	"github.com/ayokunle/totopool/internal/events"
	"github.com/ayokunle/totopool/internal/gateway"
	"github.com/ayokunle/totopool/internal/idempotency"
	"github.com/ayokunle/totopool/internal/observability"
	"github.com/ayokunle/totopool/internal/repository"
	"github.com/ayokunle/totopool/internal/slip"
	"github.com/ayokunle/totopool/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// upstream bundles the four collaborator roles the pool platform plays.
type upstream interface {
	gateway.GameCatalog
	slip.Submitter
	deposit.Initiator
	deposit.StatusChecker
}

// Run bootstraps the HTTP server and background workers, blocking until
// shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	baseCostMicros, err := domain.ParseAmount(cfg.BaseCost)
	if err != nil {
		return fmt.Errorf("parse base cost: %w", err)
	}
	baseCost := domain.NewMoney(baseCostMicros, cfg.Currency)

	var platform upstream
	if cfg.UpstreamBaseURL == "" {
		logger.Warn("no upstream configured, using the mock gateway")
		platform = gateway.NewMockGateway()
	} else {
		platform = gateway.NewClient(gateway.Config{
			BaseURL:         cfg.UpstreamBaseURL,
			APIKey:          cfg.UpstreamAPIKey,
			Timeout:         cfg.UpstreamTimeout,
			SendCredentials: cfg.UpstreamSendCredentials,
		})
	}

	idemStore := idempotency.NewStore(redisClient, pool, cfg.IdempotencyTTL)
	repo := repository.NewRepository(pool)
	gamesCache := cache.NewGamesCache(redisClient, 2*cfg.CatalogRefreshInterval)
	publisher := events.NewPublisher(cfg.KafkaBrokers)
	defer publisher.Close()

	slipRegistry := slip.NewRegistry()
	depositRegistry := deposit.NewRegistry()

	gamesHandler := handler.NewGamesHandler(platform, gamesCache)
	slipHandler := handler.NewSlipHandler(gamesHandler, slipRegistry, platform, repo, publisher, baseCost)
	depositHandler := handler.NewDepositHandler(ctx, platform, platform, depositRegistry, repo, publisher,
		cfg.DepositPollInterval, cfg.DepositWindow)

	catalogWorker := worker.NewCatalogWorker(platform, gamesCache).WithInterval(cfg.CatalogRefreshInterval)
	sweepWorker := worker.NewSweepWorker(slipRegistry, depositRegistry).
		WithInterval(cfg.SweepInterval).
		WithRetention(cfg.SweepRetention)

	stopCatalog := catalogWorker.Run(ctx)
	stopSweep := sweepWorker.Run(ctx)
	logger.Info("workers started",
		zap.Duration("catalog_refresh", cfg.CatalogRefreshInterval),
		zap.Duration("sweep_interval", cfg.SweepInterval))

	router := api.NewRouter(cfg, logger, pool, idemStore, redisClient, gamesHandler, slipHandler, depositHandler)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping workers")
	stopCatalog()
	stopSweep()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
