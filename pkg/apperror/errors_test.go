package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	e := New("LED_001", "Insufficient available balance", http.StatusPaymentRequired)
	assert.Equal(t, "[LED_001] Insufficient available balance", e.Error())
}

func TestAppError_ErrorWithWrapped(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	e := Wrap("SYS_001", "Ledger store unavailable", http.StatusServiceUnavailable, inner)
	assert.Contains(t, e.Error(), "SYS_001")
	assert.Contains(t, e.Error(), "connection refused")
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("pool exhausted")
	e := ErrStoreUnavailable(inner)
	assert.ErrorIs(t, e, inner)
}

func TestAppError_ErrorsAs(t *testing.T) {
	var err error = ErrInsufficientFunds()

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_001", appErr.Code)
	assert.Equal(t, http.StatusPaymentRequired, appErr.HTTPStatus)
}

func TestRejectionErrors_NotRetryable(t *testing.T) {
	for _, e := range []*AppError{
		ErrInsufficientFunds(),
		ErrTransactionCapExceeded(),
		ErrWalletNotFound(),
		ErrInvalidAmount(),
		ErrDailyLimitExceeded(),
	} {
		assert.False(t, e.Retryable, e.Code)
	}
}

func TestTransientErrors_Retryable(t *testing.T) {
	cause := errors.New("boom")
	assert.True(t, ErrStoreUnavailable(cause).Retryable)
	assert.True(t, ErrLockTimeout(cause).Retryable)
}

func TestErrInvalidState_IncludesCurrentState(t *testing.T) {
	e := ErrInvalidState("SETTLED")
	assert.Equal(t, "TXN_001", e.Code)
	assert.Contains(t, e.Message, "SETTLED")
	assert.Equal(t, http.StatusConflict, e.HTTPStatus)
}

func TestErrInvariantViolation(t *testing.T) {
	e := ErrInvariantViolation("entry set sums to 500, want 0")
	assert.Equal(t, "SYS_003", e.Code)
	assert.False(t, e.Retryable)
	assert.Contains(t, e.Message, "sums to 500")
}

func TestErrorCodeUniqueness(t *testing.T) {
	errs := []*AppError{
		ErrInsufficientFunds(), ErrTransactionCapExceeded(), ErrWalletNotFound(),
		ErrInvalidAmount(), ErrDailyLimitExceeded(), ErrInvalidState("HELD"),
		ErrHoldNotActive(), ErrCannotReleaseSettled(), ErrTransactionNotFound(),
		ErrAlreadyReversed(), ErrInvalidCredentials(), ErrInvalidToken(),
		ErrInvalidSignature(), ErrTimestampExpired(), ErrNonceUsed(),
		ErrRateLimitExceeded(), ErrInvariantViolation("x"),
	}
	seen := make(map[string]bool)
	for _, e := range errs {
		assert.False(t, seen[e.Code], "duplicate code %s", e.Code)
		seen[e.Code] = true
	}
}
