package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateBalanced(t *testing.T) {
	walletID := uuid.New()
	clearingID := uuid.New()

	t.Run("BalancedPairPasses", func(t *testing.T) {
		entries := []LedgerEntry{
			{WalletID: walletID, Amount: -12000, EntryType: EntryTypeDebit, TransactionID: "txn-1"},
			{WalletID: clearingID, Amount: 12000, EntryType: EntryTypeCredit, TransactionID: "txn-1"},
		}
		assert.NoError(t, ValidateBalanced(entries))
	})

	t.Run("UnbalancedPairFails", func(t *testing.T) {
		entries := []LedgerEntry{
			{WalletID: walletID, Amount: -12000, EntryType: EntryTypeDebit, TransactionID: "txn-2"},
			{WalletID: clearingID, Amount: 11000, EntryType: EntryTypeCredit, TransactionID: "txn-2"},
		}
		err := ValidateBalanced(entries)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "txn-2")
	})

	t.Run("SingleTopupEntryPasses", func(t *testing.T) {
		entries := []LedgerEntry{
			{WalletID: walletID, Amount: 100000, EntryType: EntryTypeCredit, TransactionID: "topup-1"},
		}
		assert.NoError(t, ValidateBalanced(entries))
	})
}

func TestHoldLifecycle(t *testing.T) {
	now := time.Now()

	t.Run("ActiveHoldIsNotTerminal", func(t *testing.T) {
		h := Hold{Status: HoldStatusActive, ExpiresAt: now.Add(10 * time.Minute)}
		assert.False(t, h.IsTerminal())
		assert.False(t, h.IsExpired(now))
	})

	t.Run("ActiveHoldPastTTLIsExpired", func(t *testing.T) {
		h := Hold{Status: HoldStatusActive, ExpiresAt: now.Add(-time.Second)}
		assert.True(t, h.IsExpired(now))
	})

	t.Run("CommittedHoldNeverExpires", func(t *testing.T) {
		h := Hold{Status: HoldStatusCommitted, ExpiresAt: now.Add(-time.Hour)}
		assert.True(t, h.IsTerminal())
		assert.False(t, h.IsExpired(now))
	})
}

func TestTransactionStates(t *testing.T) {
	t.Run("TerminalStates", func(t *testing.T) {
		for _, s := range []TransactionState{TransactionStateSettled, TransactionStateRefunded, TransactionStateFailed} {
			txn := Transaction{State: s}
			assert.True(t, txn.IsTerminal(), "state %s", s)
		}
		for _, s := range []TransactionState{TransactionStateRequested, TransactionStateHeld} {
			txn := Transaction{State: s}
			assert.False(t, txn.IsTerminal(), "state %s", s)
		}
	})

	t.Run("OnlySettledUnreversedIsReversible", func(t *testing.T) {
		txn := Transaction{State: TransactionStateSettled}
		assert.True(t, txn.IsReversible())

		reversedAt := time.Now()
		txn.ReversedAt = &reversedAt
		assert.False(t, txn.IsReversible())

		held := Transaction{State: TransactionStateHeld}
		assert.False(t, held.IsReversible())
	})
}

func TestWalletIsActive(t *testing.T) {
	w := Wallet{ID: uuid.New(), Kind: WalletKindUser}
	assert.True(t, w.IsActive())

	deactivated := time.Now()
	w.DeactivatedAt = &deactivated
	assert.False(t, w.IsActive())
}
