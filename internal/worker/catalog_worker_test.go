package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ayokunle/totopool/internal/cache"
	"github.com/ayokunle/totopool/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCatalog struct {
	calls atomic.Int64
}

func (c *countingCatalog) OpenGames(ctx context.Context) ([]domain.Game, error) {
	c.calls.Add(1)
	return []domain.Game{{ID: "game-1", Name: "Round 1"}}, nil
}

func TestCatalogWorkerRefreshes(t *testing.T) {
	catalog := &countingCatalog{}
	w := NewCatalogWorker(catalog, cache.NewGamesCache(nil, time.Minute)).WithInterval(10 * time.Millisecond)

	stop := w.Run(context.Background())
	defer stop()

	require.Eventually(t, func() bool {
		return catalog.calls.Load() >= 3
	}, time.Second, 5*time.Millisecond, "expected startup refresh plus periodic ticks")
}

func TestCatalogWorkerStops(t *testing.T) {
	catalog := &countingCatalog{}
	w := NewCatalogWorker(catalog, cache.NewGamesCache(nil, time.Minute)).WithInterval(5 * time.Millisecond)

	stop := w.Run(context.Background())
	require.Eventually(t, func() bool { return catalog.calls.Load() > 0 }, time.Second, time.Millisecond)

	stop()
	stop() // stopping twice is safe
	settled := catalog.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, catalog.calls.Load(), settled+1, "no further refreshes after stop")
}
