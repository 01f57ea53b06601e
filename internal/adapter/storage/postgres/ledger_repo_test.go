package postgres

import (
	"context"
	"testing"
	"time"

	"trust-ledger/internal/core/domain"
	"trust-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerColumns() []string {
	return []string{"id", "wallet_id", "amount", "entry_type", "transaction_id", "balance_after", "created_at"}
}

func newEntryPair(walletID, clearingID uuid.UUID, amount int64, txnID string) []domain.LedgerEntry {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return []domain.LedgerEntry{
		{ID: uuid.New(), WalletID: walletID, Amount: -amount, EntryType: domain.EntryTypeDebit, TransactionID: txnID, BalanceAfter: 88000, CreatedAt: now},
		{ID: uuid.New(), WalletID: clearingID, Amount: amount, EntryType: domain.EntryTypeCredit, TransactionID: txnID, BalanceAfter: 12000, CreatedAt: now},
	}
}

func TestLedgerRepo_AppendEntries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	entries := newEntryPair(uuid.New(), uuid.New(), 12000, "txn-append")

	mock.ExpectBegin()
	for _, e := range entries {
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(e.ID, e.WalletID, e.Amount, e.EntryType, e.TransactionID, e.BalanceAfter, e.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.AppendEntries(context.Background(), tx, entries)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_AppendEntries_RejectsUnbalancedSet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	entries := newEntryPair(uuid.New(), uuid.New(), 12000, "txn-bad")
	entries[1].Amount = 11000 // break the pair

	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.AppendEntries(context.Background(), tx, entries)
	assert.Error(t, err)
	// No INSERT was expected: nothing may reach the table.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_BalanceOf(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	walletID := uuid.New()

	mock.ExpectQuery("SELECT COALESCE.+ FROM ledger_entries WHERE wallet_id").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(88000)))

	balance, err := repo.BalanceOf(context.Background(), walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(88000), balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_DebitsSince(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	walletID := uuid.New()
	since := time.Now().UTC().Truncate(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COALESCE.+ FROM ledger_entries").
		WithArgs(walletID, domain.EntryTypeDebit, since).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(350000)))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	total, err := repo.DebitsSince(context.Background(), tx, walletID, since)
	require.NoError(t, err)
	assert.Equal(t, int64(350000), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_GetByTransactionID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	entries := newEntryPair(uuid.New(), uuid.New(), 12000, "txn-get")

	rows := pgxmock.NewRows(ledgerColumns())
	for _, e := range entries {
		rows.AddRow(e.ID, e.WalletID, e.Amount, e.EntryType, e.TransactionID, e.BalanceAfter, e.CreatedAt)
	}

	mock.ExpectQuery("SELECT .+ FROM ledger_entries WHERE transaction_id").
		WithArgs("txn-get").
		WillReturnRows(rows)

	result, err := repo.GetByTransactionID(context.Background(), "txn-get")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, int64(-12000), result[0].Amount)
	assert.Equal(t, int64(12000), result[1].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_ListByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	walletID := uuid.New()
	entries := newEntryPair(walletID, uuid.New(), 12000, "txn-list")

	mock.ExpectQuery("SELECT COUNT.+ FROM ledger_entries").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

	rows := pgxmock.NewRows(ledgerColumns()).AddRow(
		entries[0].ID, entries[0].WalletID, entries[0].Amount, entries[0].EntryType,
		entries[0].TransactionID, entries[0].BalanceAfter, entries[0].CreatedAt,
	)
	mock.ExpectQuery("SELECT .+ FROM ledger_entries .+ ORDER BY created_at DESC").
		WithArgs(walletID, 20, 0).
		WillReturnRows(rows)

	params := ports.LedgerListParams{WalletID: walletID, Page: 1, PageSize: 20}
	result, total, err := repo.ListByWallet(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, result, 1)
	assert.Equal(t, walletID, result[0].WalletID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
