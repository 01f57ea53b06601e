package ports

import (
	"context"
	"time"

	"trust-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	GetClearing(ctx context.Context, currency string) (*domain.Wallet, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// LedgerRepository defines persistence for the append-only ledger.
// There are no update or delete operations by construction.
type LedgerRepository interface {
	// AppendEntries writes a correlated entry set atomically. The set must
	// already satisfy the zero-sum check for multi-entry sets.
	AppendEntries(ctx context.Context, tx pgx.Tx, entries []domain.LedgerEntry) error
	// BalanceOf folds all entries for a wallet. The authoritative balance.
	BalanceOf(ctx context.Context, walletID uuid.UUID) (int64, error)
	BalanceOfForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (int64, error)
	// DebitsSince sums the magnitude of debit entries written at or after
	// the cutoff. Used for the rolling daily spend limit.
	DebitsSince(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, since time.Time) (int64, error)
	GetByTransactionID(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error)
	GetByTransactionIDForUpdate(ctx context.Context, tx pgx.Tx, transactionID string) ([]domain.LedgerEntry, error)
	// Statement queries
	ListByWallet(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
}

// LedgerListParams holds filter + pagination for statement reads.
type LedgerListParams struct {
	WalletID  uuid.UUID
	EntryType *domain.EntryType
	From      *int64 // Unix timestamp
	To        *int64 // Unix timestamp
	Page      int
	PageSize  int
}

// HoldRepository defines persistence operations for holds.
type HoldRepository interface {
	Create(ctx context.Context, tx pgx.Tx, hold *domain.Hold) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Hold, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Hold, error)
	GetByTransactionIDForUpdate(ctx context.Context, tx pgx.Tx, transactionID string) (*domain.Hold, error)
	// ActiveTotal sums ACTIVE hold amounts for a wallet inside the caller's
	// transaction, so available balance is computed under the row lock.
	ActiveTotal(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (int64, error)
	// UpdateStatus performs a compare-and-set transition. Returns false if
	// the hold was not in the expected status (lost race, already terminal).
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.HoldStatus, reason string) (bool, error)
	// ListExpired returns ACTIVE holds whose TTL elapsed before the cutoff.
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]domain.Hold, error)
}

// TransactionRepository defines persistence for the transaction record.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Transaction, error)
	// UpdateState performs a compare-and-set transition and stamps the
	// matching timestamp column. Returns false if the current state did not
	// match, which callers treat as a lost race, not an error.
	UpdateState(ctx context.Context, tx pgx.Tx, id string, from, to domain.TransactionState, reason string) (bool, error)
	MarkReversed(ctx context.Context, tx pgx.Tx, id string) (bool, error)
	// ListInState returns non-terminal transactions for the startup sweep.
	ListInState(ctx context.Context, state domain.TransactionState, limit int) ([]domain.Transaction, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	WalletID uuid.UUID
	State    *domain.TransactionState
	From     *int64 // Unix timestamp
	To       *int64 // Unix timestamp
	Page     int
	PageSize int
}

// AuditRepository defines persistence for audit events.
type AuditRepository interface {
	InsertBatch(ctx context.Context, events []domain.AuditEvent) error
	Query(ctx context.Context, params AuditQueryParams) ([]domain.AuditEvent, int64, error)
}

// AuditQueryParams holds filter + pagination for audit reads.
type AuditQueryParams struct {
	TransactionID string
	WalletID      *uuid.UUID
	Action        *domain.AuditAction
	Page          int
	PageSize      int
}

// CaregiverRepository defines persistence operations for caregiver accounts.
type CaregiverRepository interface {
	Create(ctx context.Context, caregiver *domain.Caregiver) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Caregiver, error)
	GetByUsername(ctx context.Context, username string) (*domain.Caregiver, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
