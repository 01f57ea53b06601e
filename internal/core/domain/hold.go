package domain

import (
	"time"

	"github.com/google/uuid"
)

// HoldStatus represents the lifecycle state of a hold.
type HoldStatus string

const (
	HoldStatusActive    HoldStatus = "ACTIVE"
	HoldStatusCommitted HoldStatus = "COMMITTED"
	HoldStatusReleased  HoldStatus = "RELEASED"
	HoldStatusExpired   HoldStatus = "EXPIRED"
)

// Hold reserves wallet funds pending settlement or release. It reduces
// available balance immediately but never settled balance. At most one
// non-terminal hold may exist per transaction id.
type Hold struct {
	ID            uuid.UUID  `json:"id"`
	WalletID      uuid.UUID  `json:"wallet_id"`
	Amount        int64      `json:"amount"` // always positive
	TransactionID string     `json:"transaction_id"`
	Status        HoldStatus `json:"status"`
	Reason        string     `json:"reason,omitempty"` // release/expiry reason
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
}

// IsTerminal returns true once the hold can no longer change state.
func (h *Hold) IsTerminal() bool {
	return h.Status != HoldStatusActive
}

// IsExpired reports whether an ACTIVE hold has outlived its TTL.
func (h *Hold) IsExpired(now time.Time) bool {
	return h.Status == HoldStatusActive && now.After(h.ExpiresAt)
}
