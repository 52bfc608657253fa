package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayokunle/totopool/internal/domain"
	"github.com/redis/go-redis/v9"
)

const openGamesKey = "games:open"

// ErrMiss is returned when the catalog is not cached.
var ErrMiss = errors.New("games cache miss")

// GamesCache keeps the open-games catalog in Redis so the API does not
// hit the upstream lookup on every request. The catalog refresh worker
// repopulates it; reads fall back to the upstream on a miss.
type GamesCache struct {
	redis redis.Cmdable
	ttl   time.Duration
}

// NewGamesCache creates a cache wrapper. A nil client disables caching;
// every Get then misses and Set is a no-op.
func NewGamesCache(client redis.Cmdable, ttl time.Duration) *GamesCache {
	return &GamesCache{redis: client, ttl: ttl}
}

// Get returns the cached catalog or ErrMiss.
func (c *GamesCache) Get(ctx context.Context) ([]domain.Game, error) {
	if c.redis == nil {
		return nil, ErrMiss
	}
	raw, err := c.redis.Get(ctx, openGamesKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("games cache get: %w", err)
	}
	var games []domain.Game
	if err := json.Unmarshal(raw, &games); err != nil {
		return nil, fmt.Errorf("decode cached games: %w", err)
	}
	return games, nil
}

// Set replaces the cached catalog.
func (c *GamesCache) Set(ctx context.Context, games []domain.Game) error {
	if c.redis == nil {
		return nil
	}
	raw, err := json.Marshal(games)
	if err != nil {
		return fmt.Errorf("encode games: %w", err)
	}
	if err := c.redis.Set(ctx, openGamesKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("games cache set: %w", err)
	}
	return nil
}
