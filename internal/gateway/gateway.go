package gateway

import (
	"context"
	"time"

	"github.com/ayokunle/totopool/internal/domain"
)

// GameCatalog is the upstream open-games lookup.
type GameCatalog interface {
	OpenGames(ctx context.Context) ([]domain.Game, error)
}

// Config holds the upstream connection settings. It is injected into the
// client explicitly; nothing here lives in package-global state.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// SendCredentials controls whether the API key header accompanies
	// requests. Off for anonymous catalog reads against public mirrors.
	SendCredentials bool
}
