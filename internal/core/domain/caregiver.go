package domain

import (
	"time"

	"github.com/google/uuid"
)

// Caregiver is a dashboard account that tops up and monitors wallets
// on behalf of the wallet owner. Transaction-time flows never touch
// caregiver credentials.
type Caregiver struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}
