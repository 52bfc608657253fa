package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/ayokunle/totopool/internal/cache"
	"github.com/ayokunle/totopool/internal/domain"
	"github.com/ayokunle/totopool/internal/gateway"
	"go.uber.org/zap"
)

// GamesHandler serves the open-games catalog, cache first.
type GamesHandler struct {
	catalog gateway.GameCatalog
	cache   *cache.GamesCache
}

func NewGamesHandler(catalog gateway.GameCatalog, gamesCache *cache.GamesCache) *GamesHandler {
	return &GamesHandler{catalog: catalog, cache: gamesCache}
}

type listGamesResponse struct {
	Games []domain.Game `json:"games"`
}

// List returns the currently open pool games.
func (h *GamesHandler) List(w http.ResponseWriter, r *http.Request) {
	games, err := h.openGames(r.Context())
	if err != nil {
		RespondError(w, r, http.StatusBadGateway, "games/upstream-unavailable", "game catalog is unavailable")
		return
	}
	RespondJSON(w, http.StatusOK, listGamesResponse{Games: games})
}

// openGames resolves the catalog through the cache, falling back to the
// upstream lookup and repopulating the cache on a miss.
func (h *GamesHandler) openGames(ctx context.Context) ([]domain.Game, error) {
	if h.cache != nil {
		games, err := h.cache.Get(ctx)
		if err == nil {
			return games, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			zap.L().Warn("games cache read failed", zap.Error(err))
		}
	}

	games, err := h.catalog.OpenGames(ctx)
	if err != nil {
		return nil, err
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, games); err != nil {
			zap.L().Warn("games cache write failed", zap.Error(err))
		}
	}
	return games, nil
}

// findGame resolves one open game by id.
func (h *GamesHandler) findGame(ctx context.Context, gameID string) (*domain.Game, error) {
	games, err := h.openGames(ctx)
	if err != nil {
		return nil, err
	}
	for i := range games {
		if games[i].ID == gameID {
			return &games[i], nil
		}
	}
	return nil, nil
}
