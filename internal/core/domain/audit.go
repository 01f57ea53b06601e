package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited ledger event.
type AuditAction string

const (
	AuditActionHoldCreated   AuditAction = "HOLD_CREATED"
	AuditActionHoldCommitted AuditAction = "HOLD_COMMITTED"
	AuditActionHoldReleased  AuditAction = "HOLD_RELEASED"
	AuditActionHoldExpired   AuditAction = "HOLD_EXPIRED"
	AuditActionLedgerAppend  AuditAction = "LEDGER_APPEND"
	AuditActionStateChanged  AuditAction = "STATE_CHANGED"
	AuditActionRequestDenied AuditAction = "REQUEST_DENIED"
	AuditActionTopup         AuditAction = "TOPUP"
	AuditActionReversal      AuditAction = "REVERSAL"
	AuditActionRecoverySweep AuditAction = "RECOVERY_SWEEP"
)

// AuditEvent is a write-once record of a single state transition,
// ledger append, or rejected request. Queryable by transaction or
// wallet for reconciliation.
type AuditEvent struct {
	ID            uuid.UUID   `json:"id"`
	TransactionID string      `json:"transaction_id,omitempty"`
	WalletID      *uuid.UUID  `json:"wallet_id,omitempty"`
	Action        AuditAction `json:"action"`
	PriorState    string      `json:"prior_state,omitempty"`
	NewState      string      `json:"new_state,omitempty"`
	Detail        string      `json:"detail,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}
