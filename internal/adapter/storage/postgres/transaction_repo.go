package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trust-ledger/internal/core/domain"
	"trust-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository. The primary
// key is the caller-supplied transaction id, so a duplicate begin fails
// on insert rather than creating a second record.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new transaction within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, wallet_id, amount, state, reason,
		created_at, held_at, settled_at, refunded_at, reversed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.WalletID, t.Amount, t.State, t.Reason,
		t.CreatedAt, t.HeldAt, t.SettledAt, t.RefundedAt, t.ReversedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by its idempotency key.
func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT id, wallet_id, amount, state, reason, created_at, held_at, settled_at, refunded_at, reversed_at
		FROM transactions WHERE id = $1`

	return scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches and locks a transaction row. This MUST be
// called within a transaction. Serializes concurrent settle/refund
// racing on the same id.
func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Transaction, error) {
	query := `SELECT id, wallet_id, amount, state, reason, created_at, held_at, settled_at, refunded_at, reversed_at
		FROM transactions WHERE id = $1 FOR UPDATE`

	return scanTransaction(tx.QueryRow(ctx, query, id))
}

// UpdateState performs a compare-and-set transition and stamps the
// timestamp column matching the target state. Returns false when the
// current state did not match.
func (r *TransactionRepo) UpdateState(ctx context.Context, tx pgx.Tx, id string, from, to domain.TransactionState, reason string) (bool, error) {
	query := `UPDATE transactions SET state = $1,
		reason = CASE WHEN $2 <> '' THEN $2 ELSE reason END,
		held_at = CASE WHEN $1 = 'HELD' THEN NOW() ELSE held_at END,
		settled_at = CASE WHEN $1 = 'SETTLED' THEN NOW() ELSE settled_at END,
		refunded_at = CASE WHEN $1 = 'REFUNDED' THEN NOW() ELSE refunded_at END
		WHERE id = $3 AND state = $4`

	tag, err := tx.Exec(ctx, query, to, reason, id, from)
	if err != nil {
		return false, fmt.Errorf("update transaction state: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkReversed stamps the reversal timestamp exactly once.
func (r *TransactionRepo) MarkReversed(ctx context.Context, tx pgx.Tx, id string) (bool, error) {
	query := `UPDATE transactions SET reversed_at = NOW()
		WHERE id = $1 AND state = 'SETTLED' AND reversed_at IS NULL`

	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("mark transaction reversed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListInState returns transactions currently in the given state, oldest
// first. Used by the startup recovery sweep.
func (r *TransactionRepo) ListInState(ctx context.Context, state domain.TransactionState, limit int) ([]domain.Transaction, error) {
	query := `SELECT id, wallet_id, amount, state, reason, created_at, held_at, settled_at, refunded_at, reversed_at
		FROM transactions WHERE state = $1 ORDER BY created_at LIMIT $2`

	rows, err := r.pool.Query(ctx, query, state, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions in state: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// List fetches transactions with filtering and pagination.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("wallet_id = $%d", argIdx))
	args = append(args, params.WalletID)
	argIdx++

	if params.State != nil {
		conditions = append(conditions, fmt.Sprintf("state = $%d", argIdx))
		args = append(args, *params.State)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= to_timestamp($%d)", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= to_timestamp($%d)", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT id, wallet_id, amount, state, reason, created_at, held_at, settled_at, refunded_at, reversed_at
		FROM transactions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns, err := scanTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.WalletID, &t.Amount, &t.State, &t.Reason,
		&t.CreatedAt, &t.HeldAt, &t.SettledAt, &t.RefundedAt, &t.ReversedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}

func scanTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		err := rows.Scan(
			&t.ID, &t.WalletID, &t.Amount, &t.State, &t.Reason,
			&t.CreatedAt, &t.HeldAt, &t.SettledAt, &t.RefundedAt, &t.ReversedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}
