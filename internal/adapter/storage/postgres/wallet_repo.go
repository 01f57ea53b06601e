package postgres

import (
	"context"
	"errors"
	"fmt"

	"trust-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, owner_id, currency, kind, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.OwnerID, w.Currency, w.Kind, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, owner_id, currency, kind, created_at, deactivated_at
		FROM wallets WHERE id = $1`

	w := &domain.Wallet{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.OwnerID, &w.Currency, &w.Kind, &w.CreatedAt, &w.DeactivatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by id: %w", err)
	}
	return w, nil
}

// GetByIDForUpdate fetches a wallet by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, owner_id, currency, kind, created_at, deactivated_at
		FROM wallets WHERE id = $1 FOR UPDATE`

	w := &domain.Wallet{}
	err := tx.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.OwnerID, &w.Currency, &w.Kind, &w.CreatedAt, &w.DeactivatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet for update by id: %w", err)
	}
	return w, nil
}

// GetClearing fetches the system clearing wallet for a currency.
func (r *WalletRepo) GetClearing(ctx context.Context, currency string) (*domain.Wallet, error) {
	query := `SELECT id, owner_id, currency, kind, created_at, deactivated_at
		FROM wallets WHERE kind = $1 AND currency = $2`

	w := &domain.Wallet{}
	err := r.pool.QueryRow(ctx, query, domain.WalletKindClearing, currency).Scan(
		&w.ID, &w.OwnerID, &w.Currency, &w.Kind, &w.CreatedAt, &w.DeactivatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get clearing wallet: %w", err)
	}
	return w, nil
}

// Deactivate soft-deactivates a wallet. History is retained.
func (r *WalletRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE wallets SET deactivated_at = NOW() WHERE id = $1 AND deactivated_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found or already deactivated: %s", id)
	}
	return nil
}
