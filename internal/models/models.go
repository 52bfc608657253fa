package models

import (
	"errors"
	"time"

	"github.com/ayokunle/totopool/internal/domain"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// SlipRecord is a submitted slip as stored for history. Selections are
// the canonical per-match outcome lists that were sent on the wire.
type SlipRecord struct {
	ID          uuid.UUID                   `json:"id"`
	UserID      string                      `json:"user_id"`
	GameID      string                      `json:"game_id"`
	Selections  map[string][]domain.Outcome `json:"selections"`
	PriceMicros int64                       `json:"price_micros"`
	Currency    string                      `json:"currency"`
	FormID      string                      `json:"form_id"`
	CreatedAt   time.Time                   `json:"created_at"`
}

// DepositRecord tracks one deposit lifecycle for history and audit.
type DepositRecord struct {
	ID            uuid.UUID  `json:"id"`
	DepositID     string     `json:"deposit_id"`
	UserID        string     `json:"user_id"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	Network       string     `json:"network"`
	WalletAddress string     `json:"wallet_address"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`
}
