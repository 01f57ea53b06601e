package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionState represents the orchestrator-owned lifecycle state.
// REQUESTED -> HELD -> {SETTLED | REFUNDED}; FAILED when no hold could
// be acquired. There is no path back to REQUESTED.
type TransactionState string

const (
	TransactionStateRequested TransactionState = "REQUESTED"
	TransactionStateHeld      TransactionState = "HELD"
	TransactionStateSettled   TransactionState = "SETTLED"
	TransactionStateRefunded  TransactionState = "REFUNDED"
	TransactionStateFailed    TransactionState = "FAILED"
)

// Transaction correlates a hold with zero-or-one settlement. Its ID is
// the caller-supplied idempotency key: any operation retried with the
// same ID converges to the same terminal state.
type Transaction struct {
	ID         string           `json:"transaction_id"`
	WalletID   uuid.UUID        `json:"wallet_id"`
	Amount     int64            `json:"amount"`
	State      TransactionState `json:"state"`
	Reason     string           `json:"reason,omitempty"` // failure or refund reason
	CreatedAt  time.Time        `json:"created_at"`
	HeldAt     *time.Time       `json:"held_at,omitempty"`
	SettledAt  *time.Time       `json:"settled_at,omitempty"`
	RefundedAt *time.Time       `json:"refunded_at,omitempty"`
	ReversedAt *time.Time       `json:"reversed_at,omitempty"` // post-settlement correction
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.State == TransactionStateSettled ||
		t.State == TransactionStateRefunded ||
		t.State == TransactionStateFailed
}

// IsReversible returns true if a settled-transaction correction pair
// may still be appended.
func (t *Transaction) IsReversible() bool {
	return t.State == TransactionStateSettled && t.ReversedAt == nil
}
