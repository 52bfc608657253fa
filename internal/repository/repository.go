package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayokunle/totopool/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// RunInTx executes fn within a database transaction.
func (r *Repository) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) CreateSlip(ctx context.Context, rec *models.SlipRecord) error {
	selections, err := json.Marshal(rec.Selections)
	if err != nil {
		return fmt.Errorf("encode selections: %w", err)
	}
	query := `INSERT INTO slips (id, user_id, game_id, selections, price_micros, currency, form_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) RETURNING created_at`
	err = r.db.QueryRow(ctx, query,
		rec.ID, rec.UserID, rec.GameID, selections, rec.PriceMicros, rec.Currency, rec.FormID,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create slip: %w", err)
	}
	return nil
}

func (r *Repository) GetSlip(ctx context.Context, id uuid.UUID) (*models.SlipRecord, error) {
	rec := &models.SlipRecord{}
	var selections []byte
	query := `SELECT id, user_id, game_id, selections, price_micros, currency, form_id, created_at
		FROM slips WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.UserID, &rec.GameID, &selections, &rec.PriceMicros, &rec.Currency, &rec.FormID, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get slip: %w", err)
	}
	if err := json.Unmarshal(selections, &rec.Selections); err != nil {
		return nil, fmt.Errorf("decode selections: %w", err)
	}
	return rec, nil
}

func (r *Repository) ListSlipsByUser(ctx context.Context, userID string, limit, offset int) ([]models.SlipRecord, error) {
	query := `
		SELECT id, user_id, game_id, selections, price_micros, currency, form_id, created_at
		FROM slips
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list slips: %w", err)
	}
	defer rows.Close()

	var records []models.SlipRecord
	for rows.Next() {
		var rec models.SlipRecord
		var selections []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.GameID, &selections, &rec.PriceMicros, &rec.Currency, &rec.FormID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan slip: %w", err)
		}
		if err := json.Unmarshal(selections, &rec.Selections); err != nil {
			return nil, fmt.Errorf("decode selections: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) CreateDeposit(ctx context.Context, rec *models.DepositRecord) error {
	query := `INSERT INTO deposits (id, deposit_id, user_id, amount, currency, network, wallet_address, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING created_at`
	err := r.db.QueryRow(ctx, query,
		rec.ID, rec.DepositID, rec.UserID, rec.Amount, rec.Currency, rec.Network, rec.WalletAddress, rec.Status,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create deposit: %w", err)
	}
	return nil
}

// SettleDeposit records the terminal status of a deposit. Only the first
// settlement wins; a second write for the same deposit is a no-op, which
// mirrors the monitor's compare-and-set transition.
func (r *Repository) SettleDeposit(ctx context.Context, depositID, status string) error {
	query := `UPDATE deposits SET status = $1, settled_at = NOW()
		WHERE deposit_id = $2 AND settled_at IS NULL`
	if _, err := r.db.Exec(ctx, query, status, depositID); err != nil {
		return fmt.Errorf("failed to settle deposit: %w", err)
	}
	return nil
}

func (r *Repository) GetDeposit(ctx context.Context, id uuid.UUID) (*models.DepositRecord, error) {
	rec := &models.DepositRecord{}
	query := `SELECT id, deposit_id, user_id, amount, currency, network, wallet_address, status, created_at, settled_at
		FROM deposits WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.DepositID, &rec.UserID, &rec.Amount, &rec.Currency, &rec.Network,
		&rec.WalletAddress, &rec.Status, &rec.CreatedAt, &rec.SettledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}
	return rec, nil
}

func (r *Repository) ListDepositsByUser(ctx context.Context, userID string, limit, offset int) ([]models.DepositRecord, error) {
	query := `
		SELECT id, deposit_id, user_id, amount, currency, network, wallet_address, status, created_at, settled_at
		FROM deposits
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	defer rows.Close()

	var records []models.DepositRecord
	for rows.Next() {
		var rec models.DepositRecord
		if err := rows.Scan(&rec.ID, &rec.DepositID, &rec.UserID, &rec.Amount, &rec.Currency, &rec.Network,
			&rec.WalletAddress, &rec.Status, &rec.CreatedAt, &rec.SettledAt); err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
