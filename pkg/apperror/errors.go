package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Retryable  bool   `json:"-"` // Caller may safely retry with the same transaction_id
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger Business Rules (LED) ----
// Rejection errors: terminal, reported immediately, no state mutation.

func ErrInsufficientFunds() *AppError {
	return New("LED_001", "Insufficient available balance", http.StatusPaymentRequired)
}

func ErrTransactionCapExceeded() *AppError {
	return New("LED_002", "Amount exceeds per-transaction cap", http.StatusUnprocessableEntity)
}

func ErrWalletNotFound() *AppError {
	return New("LED_003", "Wallet not found", http.StatusNotFound)
}

func ErrInvalidAmount() *AppError {
	return New("LED_004", "Invalid amount", http.StatusBadRequest)
}

func ErrDailyLimitExceeded() *AppError {
	return New("LED_005", "Daily spending limit exceeded", http.StatusUnprocessableEntity)
}

// ---- Conflict / Idempotency (TXN) ----
// Surfaced so the caller can reconcile; never mutate state.

func ErrInvalidState(current string) *AppError {
	return New("TXN_001", fmt.Sprintf("Transaction is in state %s", current), http.StatusConflict)
}

func ErrHoldNotActive() *AppError {
	return New("TXN_002", "Hold is not active", http.StatusConflict)
}

func ErrCannotReleaseSettled() *AppError {
	return New("TXN_003", "Hold has been committed and cannot be released", http.StatusConflict)
}

func ErrTransactionNotFound() *AppError {
	return New("TXN_004", "Transaction not found", http.StatusNotFound)
}

func ErrAlreadyReversed() *AppError {
	return New("TXN_005", "Transaction has already been reversed", http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("AUTH_003", "Invalid request signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New("AUTH_004", "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New("AUTH_005", "Nonce has already been used", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----
// Transient errors are retryable with the same transaction_id.

func ErrStoreUnavailable(err error) *AppError {
	e := Wrap("SYS_001", "Ledger store unavailable", http.StatusServiceUnavailable, err)
	e.Retryable = true
	return e
}

func ErrLockTimeout(err error) *AppError {
	e := Wrap("SYS_002", "Wallet lock acquisition timeout", http.StatusServiceUnavailable, err)
	e.Retryable = true
	return e
}

// ErrInvariantViolation marks a fatal bookkeeping violation (unbalanced
// entry set, negative settled balance at commit). Never retried, never
// silently corrected; requires manual reconciliation.
func ErrInvariantViolation(detail string) *AppError {
	return New("SYS_003", fmt.Sprintf("Ledger invariant violation: %s", detail), http.StatusInternalServerError)
}

// InternalError wraps an internal error as a SYS_000 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_000", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a LED_004-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("LED_004", message, http.StatusBadRequest)
}
