package api

import (
	"github.com/ayokunle/totopool/internal/api/handler"
	"github.com/ayokunle/totopool/internal/api/middleware"
	"github.com/ayokunle/totopool/internal/api/spec"
	"github.com/ayokunle/totopool/internal/config"
	"github.com/ayokunle/totopool/internal/idempotency"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Router struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *pgxpool.Pool
	idem     *idempotency.Store
	redis    redis.Cmdable
	games    *handler.GamesHandler
	slips    *handler.SlipHandler
	deposits *handler.DepositHandler
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db *pgxpool.Pool, idemStore *idempotency.Store, redisClient redis.Cmdable, games *handler.GamesHandler, slips *handler.SlipHandler, deposits *handler.DepositHandler) *Router {
	return &Router{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		idem:     idemStore,
		redis:    redisClient,
		games:    games,
		slips:    slips,
		deposits: deposits,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	healthHandler := handler.NewHealthHandler(api.db, api.redis)
	r.Get("/healthz/live", healthHandler.Live)
	r.Get("/healthz/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())

	idem := middleware.IdempotencyMiddleware(api.idem, api.logger)

	// Public Routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Get("/v1/games", api.games.List)
	})

	// Protected Routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		// Slips
		r.With(idem).Post("/v1/slips", api.slips.Create)
		r.Get("/v1/slips", api.slips.List)
		r.Get("/v1/slips/{id}", api.slips.Get)
		r.Post("/v1/slips/{id}/selections", api.slips.Toggle)
		r.With(idem).Post("/v1/slips/{id}/submit", api.slips.Submit)
		r.Delete("/v1/slips/{id}", api.slips.Delete)

		// Deposits
		r.With(idem).Post("/v1/deposits", api.deposits.Create)
		r.Get("/v1/deposits", api.deposits.List)
		r.Get("/v1/deposits/{id}", api.deposits.Get)
		r.Delete("/v1/deposits/{id}", api.deposits.Delete)
	})

	return r
}
