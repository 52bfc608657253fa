package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ayokunle/totopool/internal/cache"
	"github.com/ayokunle/totopool/internal/gateway"
	"github.com/ayokunle/totopool/internal/observability"
	"go.uber.org/zap"
)

// CatalogWorker keeps the open-games cache warm so reads rarely hit the
// upstream catalog.
type CatalogWorker struct {
	catalog  gateway.GameCatalog
	cache    *cache.GamesCache
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCatalogWorker constructs a worker with a default one-minute refresh.
func NewCatalogWorker(catalog gateway.GameCatalog, gamesCache *cache.GamesCache) *CatalogWorker {
	return &CatalogWorker{
		catalog:  catalog,
		cache:    gamesCache,
		interval: time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the refresh interval.
func (w *CatalogWorker) WithInterval(interval time.Duration) *CatalogWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and refreshes the catalog at the configured interval.
func (w *CatalogWorker) Start(ctx context.Context) {
	zap.L().Info("catalog worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Warm the cache immediately at startup.
	w.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("catalog worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("catalog worker stop signal received")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *CatalogWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *CatalogWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *CatalogWorker) refresh(ctx context.Context) {
	games, err := w.catalog.OpenGames(ctx)
	if err != nil {
		observability.IncrementWorkerRun("catalog", "failed")
		zap.L().Warn("catalog refresh failed", zap.Error(err))
		return
	}
	if err := w.cache.Set(ctx, games); err != nil {
		observability.IncrementWorkerRun("catalog", "failed")
		zap.L().Warn("catalog cache write failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("catalog", "success")
	zap.L().Debug("catalog refreshed", zap.Int("games", len(games)))
}
