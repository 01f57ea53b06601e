package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trust-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// HoldRepo implements ports.HoldRepository. A partial unique index on
// (transaction_id) WHERE status = 'ACTIVE' enforces at most one live
// hold per transaction at the storage level.
type HoldRepo struct {
	pool Pool
}

// NewHoldRepo creates a new HoldRepo.
func NewHoldRepo(pool Pool) *HoldRepo {
	return &HoldRepo{pool: pool}
}

// Create inserts a new hold within a database transaction.
func (r *HoldRepo) Create(ctx context.Context, tx pgx.Tx, h *domain.Hold) error {
	query := `INSERT INTO holds (id, wallet_id, amount, transaction_id, status, reason, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		h.ID, h.WalletID, h.Amount, h.TransactionID,
		h.Status, h.Reason, h.CreatedAt, h.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert hold: %w", err)
	}
	return nil
}

// GetByID fetches a hold by UUID.
func (r *HoldRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Hold, error) {
	query := `SELECT id, wallet_id, amount, transaction_id, status, reason, created_at, expires_at
		FROM holds WHERE id = $1`

	return scanHold(r.pool.QueryRow(ctx, query, id))
}

// GetByTransactionID fetches the most recent hold for a transaction.
func (r *HoldRepo) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Hold, error) {
	query := `SELECT id, wallet_id, amount, transaction_id, status, reason, created_at, expires_at
		FROM holds WHERE transaction_id = $1 ORDER BY created_at DESC LIMIT 1`

	return scanHold(r.pool.QueryRow(ctx, query, transactionID))
}

// GetByTransactionIDForUpdate fetches and locks the most recent hold for
// a transaction. This MUST be called within a transaction.
func (r *HoldRepo) GetByTransactionIDForUpdate(ctx context.Context, tx pgx.Tx, transactionID string) (*domain.Hold, error) {
	query := `SELECT id, wallet_id, amount, transaction_id, status, reason, created_at, expires_at
		FROM holds WHERE transaction_id = $1 ORDER BY created_at DESC LIMIT 1 FOR UPDATE`

	return scanHold(tx.QueryRow(ctx, query, transactionID))
}

// ActiveTotal sums ACTIVE hold amounts for a wallet inside the caller's
// transaction.
func (r *HoldRepo) ActiveTotal(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM holds WHERE wallet_id = $1 AND status = $2`

	var total int64
	err := tx.QueryRow(ctx, query, walletID, domain.HoldStatusActive).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum active holds: %w", err)
	}
	return total, nil
}

// UpdateStatus performs a compare-and-set transition. Returns false when
// the hold was not in the expected status.
func (r *HoldRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.HoldStatus, reason string) (bool, error) {
	query := `UPDATE holds SET status = $1,
		reason = CASE WHEN $2 <> '' THEN $2 ELSE reason END
		WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query, to, reason, id, from)
	if err != nil {
		return false, fmt.Errorf("update hold status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListExpired returns ACTIVE holds whose TTL elapsed before the cutoff.
func (r *HoldRepo) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]domain.Hold, error) {
	query := `SELECT id, wallet_id, amount, transaction_id, status, reason, created_at, expires_at
		FROM holds WHERE status = $1 AND expires_at < $2 ORDER BY expires_at LIMIT $3`

	rows, err := r.pool.Query(ctx, query, domain.HoldStatusActive, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	defer rows.Close()

	var holds []domain.Hold
	for rows.Next() {
		h := domain.Hold{}
		err := rows.Scan(
			&h.ID, &h.WalletID, &h.Amount, &h.TransactionID,
			&h.Status, &h.Reason, &h.CreatedAt, &h.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan hold row: %w", err)
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hold rows: %w", err)
	}
	return holds, nil
}

func scanHold(row pgx.Row) (*domain.Hold, error) {
	h := &domain.Hold{}
	err := row.Scan(
		&h.ID, &h.WalletID, &h.Amount, &h.TransactionID,
		&h.Status, &h.Reason, &h.CreatedAt, &h.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan hold: %w", err)
	}
	return h, nil
}
