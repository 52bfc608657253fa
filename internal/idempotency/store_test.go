package idempotency

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set; skipping idempotency tests")
	}
	db, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}
	t.Cleanup(db.Close)

	ddl := `
CREATE TABLE IF NOT EXISTS idempotency_keys (
	idempotency_key TEXT PRIMARY KEY,
	request_hash TEXT NOT NULL,
	method TEXT NOT NULL,
	path TEXT NOT NULL,
	response_status INTEGER,
	response_body BYTEA,
	content_type TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ
);
`
	_, err = db.Exec(context.Background(), ddl)
	require.NoError(t, err)

	return NewStore(nil, db, time.Hour)
}

func TestReserveAndFinalize(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	key := uuid.NewString()

	_, err := store.Lookup(ctx, key, "hash-1")
	assert.ErrorIs(t, err, ErrNotFound)

	reserved, err := store.Reserve(ctx, key, "hash-1", "POST", "/v1/slips")
	require.NoError(t, err)
	assert.True(t, reserved)

	// Reserved but not finalized reads as in progress.
	_, err = store.Lookup(ctx, key, "hash-1")
	assert.ErrorIs(t, err, ErrInProgress)

	// A second reservation loses.
	reserved, err = store.Reserve(ctx, key, "hash-1", "POST", "/v1/slips")
	require.NoError(t, err)
	assert.False(t, reserved)

	_, err = store.Finalize(ctx, key, "hash-1", 201, []byte(`{"ok":true}`), "application/json")
	require.NoError(t, err)

	rec, err := store.Lookup(ctx, key, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, 201, rec.Status)
	assert.Equal(t, []byte(`{"ok":true}`), rec.Body)
	assert.Equal(t, "postgres", rec.ServedBy)
}

func TestLookupHashMismatch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	key := uuid.NewString()

	reserved, err := store.Reserve(ctx, key, "hash-a", "POST", "/v1/deposits")
	require.NoError(t, err)
	require.True(t, reserved)

	_, err = store.Lookup(ctx, key, "hash-b")
	assert.ErrorIs(t, err, ErrHashMismatch)
}

func TestWaitForCompletion(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	key := uuid.NewString()

	reserved, err := store.Reserve(ctx, key, "hash-1", "POST", "/v1/slips")
	require.NoError(t, err)
	require.True(t, reserved)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_, _ = store.Finalize(ctx, key, "hash-1", 200, []byte("done"), "text/plain")
	}()

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	rec, err := store.WaitForCompletion(waitCtx, key, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Status)
}
