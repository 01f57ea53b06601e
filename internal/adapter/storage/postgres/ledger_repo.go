package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trust-ledger/internal/core/domain"
	"trust-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository. The ledger_entries table
// is append-only: this type deliberately has no update or delete method.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// AppendEntries inserts a correlated entry set within a database
// transaction. The zero-sum check runs again here so a miswired caller
// cannot bypass it.
func (r *LedgerRepo) AppendEntries(ctx context.Context, tx pgx.Tx, entries []domain.LedgerEntry) error {
	if err := domain.ValidateBalanced(entries); err != nil {
		return fmt.Errorf("refusing unbalanced append: %w", err)
	}

	query := `INSERT INTO ledger_entries (id, wallet_id, amount, entry_type, transaction_id, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, e := range entries {
		_, err := tx.Exec(ctx, query,
			e.ID, e.WalletID, e.Amount, e.EntryType,
			e.TransactionID, e.BalanceAfter, e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}
	}
	return nil
}

// BalanceOf folds all entries for a wallet.
func (r *LedgerRepo) BalanceOf(ctx context.Context, walletID uuid.UUID) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE wallet_id = $1`

	var balance int64
	if err := r.pool.QueryRow(ctx, query, walletID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("fold wallet balance: %w", err)
	}
	return balance, nil
}

// BalanceOfForUpdate folds all entries inside the caller's transaction,
// after the wallet row has been locked.
func (r *LedgerRepo) BalanceOfForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE wallet_id = $1`

	var balance int64
	if err := tx.QueryRow(ctx, query, walletID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("fold wallet balance for update: %w", err)
	}
	return balance, nil
}

// DebitsSince sums the magnitude of DEBIT entries written at or after
// the cutoff. Feeds the rolling daily spend limit.
func (r *LedgerRepo) DebitsSince(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, since time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(-amount), 0) FROM ledger_entries
		WHERE wallet_id = $1 AND entry_type = $2 AND created_at >= $3`

	var total int64
	err := tx.QueryRow(ctx, query, walletID, domain.EntryTypeDebit, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum debits since cutoff: %w", err)
	}
	return total, nil
}

// GetByTransactionID fetches every entry correlated to one transaction.
func (r *LedgerRepo) GetByTransactionID(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	query := `SELECT id, wallet_id, amount, entry_type, transaction_id, balance_after, created_at
		FROM ledger_entries WHERE transaction_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("get entries by transaction: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// GetByTransactionIDForUpdate is the in-transaction variant used by the
// settle reconcile path.
func (r *LedgerRepo) GetByTransactionIDForUpdate(ctx context.Context, tx pgx.Tx, transactionID string) ([]domain.LedgerEntry, error) {
	query := `SELECT id, wallet_id, amount, entry_type, transaction_id, balance_after, created_at
		FROM ledger_entries WHERE transaction_id = $1 ORDER BY created_at`

	rows, err := tx.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("get entries by transaction for update: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListByWallet fetches a wallet statement with filtering and pagination.
func (r *LedgerRepo) ListByWallet(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("wallet_id = $%d", argIdx))
	args = append(args, params.WalletID)
	argIdx++

	if params.EntryType != nil {
		conditions = append(conditions, fmt.Sprintf("entry_type = $%d", argIdx))
		args = append(args, *params.EntryType)
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

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM ledger_entries %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT id, wallet_id, amount, entry_type, transaction_id, balance_after, created_at
		FROM ledger_entries %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func scanEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		e := domain.LedgerEntry{}
		err := rows.Scan(
			&e.ID, &e.WalletID, &e.Amount, &e.EntryType,
			&e.TransactionID, &e.BalanceAfter, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entry rows: %w", err)
	}
	return entries, nil
}
