package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntryType represents the kind of ledger entry.
type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
	// EntryTypeRefund marks the correction pair appended when a settled
	// transaction is reversed. Prior entries are never touched.
	EntryTypeRefund EntryType = "REFUND"
)

// LedgerEntry is an immutable, append-only record of money movement.
// Amount is signed: negative debits the wallet, positive credits it.
// Entries are never updated or deleted; corrections are new entries.
type LedgerEntry struct {
	ID            uuid.UUID `json:"id"`
	WalletID      uuid.UUID `json:"wallet_id"`
	Amount        int64     `json:"amount"` // signed, minor units
	EntryType     EntryType `json:"entry_type"`
	TransactionID string    `json:"transaction_id"`
	BalanceAfter  int64     `json:"balance_after"` // audit snapshot, not authoritative
	CreatedAt     time.Time `json:"created_at"`
}

// ValidateBalanced checks the double-entry invariant: a multi-entry set
// correlated to one transaction must sum to zero. A violation is fatal
// and must abort the append.
func ValidateBalanced(entries []LedgerEntry) error {
	if len(entries) < 2 {
		return nil // single credits (topup) have no counterparty requirement
	}
	var sum int64
	for _, e := range entries {
		sum += e.Amount
	}
	if sum != 0 {
		return fmt.Errorf("entry set for transaction %s sums to %d, want 0", entries[0].TransactionID, sum)
	}
	return nil
}
