package repository

import (
	"context"
	"os"
	"testing"

	"github.com/ayokunle/totopool/internal/domain"
	"github.com/ayokunle/totopool/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB is a helper to connect to the DB and clean it up.
// NOTE: This assumes a running Postgres instance via docker-compose on localhost:5432.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set; skipping repository tests")
	}
	db, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	ensureSchema(t, db)

	_, err = db.Exec(context.Background(), "TRUNCATE TABLE slips, deposits CASCADE")
	if err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}

	return db
}

func ensureSchema(t *testing.T, db *pgxpool.Pool) {
	t.Helper()
	ddl := `
CREATE TABLE IF NOT EXISTS slips (
	id UUID PRIMARY KEY,
	user_id TEXT NOT NULL,
	game_id TEXT NOT NULL,
	selections JSONB NOT NULL,
	price_micros BIGINT NOT NULL,
	currency TEXT NOT NULL,
	form_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS deposits (
	id UUID PRIMARY KEY,
	deposit_id TEXT NOT NULL UNIQUE,
	user_id TEXT NOT NULL,
	amount TEXT NOT NULL,
	currency TEXT NOT NULL,
	network TEXT NOT NULL,
	wallet_address TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	settled_at TIMESTAMPTZ
);
`
	if _, err := db.Exec(context.Background(), ddl); err != nil {
		t.Fatalf("Failed to ensure schema: %v", err)
	}
}

func TestSlipRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewRepository(db)
	ctx := context.Background()

	rec := &models.SlipRecord{
		ID:     uuid.New(),
		UserID: "user-1",
		GameID: "game-9",
		Selections: map[string][]domain.Outcome{
			"m1": {domain.OutcomeHome, domain.OutcomeDraw},
			"m2": {domain.OutcomeAway},
		},
		PriceMicros: 2_000_000,
		Currency:    "USD",
		FormID:      "FORM-55",
	}
	require.NoError(t, repo.CreateSlip(ctx, rec))
	require.False(t, rec.CreatedAt.IsZero())

	got, err := repo.GetSlip(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Selections, got.Selections)
	assert.Equal(t, int64(2_000_000), got.PriceMicros)
	assert.Equal(t, "FORM-55", got.FormID)

	list, err := repo.ListSlipsByUser(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = repo.GetSlip(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDepositSettleOnce(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewRepository(db)
	ctx := context.Background()

	rec := &models.DepositRecord{
		ID:            uuid.New(),
		DepositID:     "dep-77",
		UserID:        "user-1",
		Amount:        "0.015",
		Currency:      "BTC",
		Network:       "bitcoin",
		WalletAddress: "bc1qexample",
		Status:        "PENDING",
	}
	require.NoError(t, repo.CreateDeposit(ctx, rec))

	require.NoError(t, repo.SettleDeposit(ctx, "dep-77", "EXPIRED"))
	// A later settlement attempt (e.g. a racing confirmed poll) is a no-op.
	require.NoError(t, repo.SettleDeposit(ctx, "dep-77", "CONFIRMED"))

	got, err := repo.GetDeposit(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "EXPIRED", got.Status)
	require.NotNil(t, got.SettledAt)
}
