package ports

import (
	"context"
	"time"

	"trust-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(caregiverID uuid.UUID, username string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	CaregiverID uuid.UUID
	Username    string
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NonceStore manages nonce uniqueness for replay attack prevention.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, callerID string, nonce string, ttl time.Duration) (bool, error)
}

// RateLimitStore counts requests per caller in a fixed window.
type RateLimitStore interface {
	// Allow checks if a request is within the rate limit for the key.
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// --- Service Ports (Business Logic) ---

// WalletService defines wallet lifecycle and read operations.
type WalletService interface {
	CreateWallet(ctx context.Context, req CreateWalletRequest) (*domain.Wallet, error)
	Topup(ctx context.Context, req TopupRequest) (*domain.Balance, error)
	GetBalance(ctx context.Context, walletID uuid.UUID) (*domain.Balance, error)
	Statement(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
	Deactivate(ctx context.Context, walletID uuid.UUID) error
}

// CreateWalletRequest holds validated input for wallet creation.
type CreateWalletRequest struct {
	OwnerID  string
	Currency string
}

// TopupRequest holds validated input for a caregiver-funded credit.
type TopupRequest struct {
	WalletID      uuid.UUID
	Amount        int64
	TransactionID string // idempotency key for the topup
}

// TransactionService orchestrates the hold-then-settle protocol. It is
// the only writer of transaction state.
type TransactionService interface {
	// Begin runs check-and-lock: validates the request, places a hold, and
	// moves the transaction to HELD, or to FAILED with a denial reason.
	// Retries with a known transaction id return the existing record.
	Begin(ctx context.Context, req BeginRequest) (*domain.Transaction, error)
	// Settle commits the hold and appends the balanced entry pair.
	Settle(ctx context.Context, transactionID string) (*domain.Transaction, error)
	// Refund releases the hold without any ledger write.
	Refund(ctx context.Context, transactionID string, reason string) (*domain.Transaction, error)
	// Reverse appends a correction pair for an already settled transaction.
	Reverse(ctx context.Context, transactionID string, reason string) (*domain.Transaction, error)
	Get(ctx context.Context, transactionID string) (*domain.Transaction, error)
	// List returns a page of transactions for a wallet, for dashboard
	// reconciliation reads.
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	// RecoverStartup re-drives non-terminal transactions after a restart.
	RecoverStartup(ctx context.Context) error
}

// BeginRequest holds validated input for starting a transaction.
type BeginRequest struct {
	TransactionID string
	WalletID      uuid.UUID
	Amount        int64
	ClientIP      string
}

// AuditService records events off the request path and serves queries.
type AuditService interface {
	// Record enqueues an event. It never blocks the calling flow.
	Record(event domain.AuditEvent)
	Query(ctx context.Context, params AuditQueryParams) ([]domain.AuditEvent, int64, error)
	// Close flushes buffered events and stops the writer.
	Close(ctx context.Context) error
}

// AuthService defines caregiver authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// RegisterRequest holds input for caregiver registration.
type RegisterRequest struct {
	Username string
	Password string
	Name     string
}

// RegisterResponse holds the registration result.
type RegisterResponse struct {
	CaregiverID uuid.UUID
	Username    string
}
