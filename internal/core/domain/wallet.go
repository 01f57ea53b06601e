package domain

import (
	"time"

	"github.com/google/uuid"
)

// WalletKind distinguishes user wallets from system clearing accounts.
type WalletKind string

const (
	WalletKindUser WalletKind = "USER"
	// WalletKindClearing is the system-side counterparty of every settled
	// pair. One clearing wallet exists per currency.
	WalletKindClearing WalletKind = "CLEARING"
)

// Wallet is a prepaid, closed-loop wallet. Its balance is never stored:
// it is always derived as the fold of settled ledger entries.
type Wallet struct {
	ID            uuid.UUID  `json:"id"`
	OwnerID       string     `json:"owner_id"`
	Currency      string     `json:"currency"` // minor units, e.g. INR paise
	Kind          WalletKind `json:"kind"`
	CreatedAt     time.Time  `json:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// IsActive returns true if the wallet has not been soft-deactivated.
// Wallets are never deleted.
func (w *Wallet) IsActive() bool {
	return w.DeactivatedAt == nil
}

// Balance is the pair of derived balances returned to callers.
type Balance struct {
	Settled   int64  `json:"settled"`
	Available int64  `json:"available"`
	Currency  string `json:"currency"`
}
