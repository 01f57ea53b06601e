package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trust-ledger/internal/adapter/http/dto"
	"trust-ledger/internal/core/domain"
	"trust-ledger/internal/core/ports"
	"trust-ledger/internal/core/ports/mocks"
	"trust-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Auth Handler Tests ---

func TestRegister_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	caregiverID := uuid.New()
	mockAuth.EXPECT().Register(gomock.Any(), ports.RegisterRequest{
		Username: "asha.k",
		Password: "S3cure!pass",
		Name:     "Asha K",
	}).Return(&ports.RegisterResponse{
		CaregiverID: caregiverID,
		Username:    "asha.k",
	}, nil)

	body, _ := json.Marshal(dto.RegisterRequest{
		Username: "asha.k",
		Password: "S3cure!pass",
		Name:     "Asha K",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, caregiverID.String(), data["caregiver_id"])
	assert.Equal(t, "asha.k", data["username"])
}

func TestRegister_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	// Empty body => binding error
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte("{}")))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	expiry := time.Now().Add(24 * time.Hour)
	mockAuth.EXPECT().Login(gomock.Any(), "asha.k", "S3cure!pass").Return("jwt-abc-123", expiry, nil)

	body, _ := json.Marshal(dto.LoginRequest{
		Username: "asha.k",
		Password: "S3cure!pass",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "jwt-abc-123", data["token"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Login(gomock.Any(), "bad", "badpassword").Return("", time.Time{}, apperror.ErrInvalidCredentials())

	body, _ := json.Marshal(dto.LoginRequest{
		Username: "bad",
		Password: "badpassword",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- Transaction Handler Tests ---

func TestBegin_Held(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTxn := mocks.NewMockTransactionService(ctrl)
	h := NewTransactionHandler(mockTxn)

	walletID := uuid.New()
	now := time.Now()
	mockTxn.EXPECT().Begin(gomock.Any(), gomock.Any()).Return(&domain.Transaction{
		ID:        "txn-001",
		WalletID:  walletID,
		Amount:    12000,
		State:     domain.TransactionStateHeld,
		CreatedAt: now,
		HeldAt:    &now,
	}, nil)

	body, _ := json.Marshal(dto.BeginTransactionRequest{
		TransactionID: "txn-001",
		WalletID:      walletID.String(),
		Amount:        12000,
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Begin(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "txn-001", data["id"])
	assert.Equal(t, "HELD", data["state"])
}

func TestBegin_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTxn := mocks.NewMockTransactionService(ctrl)
	h := NewTransactionHandler(mockTxn)

	mockTxn.EXPECT().Begin(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientFunds())

	body, _ := json.Marshal(dto.BeginTransactionRequest{
		TransactionID: "txn-002",
		WalletID:      uuid.New().String(),
		Amount:        9999999,
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Begin(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestBegin_DeniedRetryReturnsFailedRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTxn := mocks.NewMockTransactionService(ctrl)
	h := NewTransactionHandler(mockTxn)

	mockTxn.EXPECT().Begin(gomock.Any(), gomock.Any()).Return(&domain.Transaction{
		ID:     "txn-003",
		Amount: 9999999,
		State:  domain.TransactionStateFailed,
		Reason: "insufficient_funds",
	}, nil)

	body, _ := json.Marshal(dto.BeginTransactionRequest{
		TransactionID: "txn-003",
		WalletID:      uuid.New().String(),
		Amount:        9999999,
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Begin(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "FAILED", data["state"])
	assert.Equal(t, "insufficient_funds", data["reason"])
}

func TestSettle_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTxn := mocks.NewMockTransactionService(ctrl)
	h := NewTransactionHandler(mockTxn)

	now := time.Now()
	mockTxn.EXPECT().Settle(gomock.Any(), "txn-001").Return(&domain.Transaction{
		ID:        "txn-001",
		WalletID:  uuid.New(),
		Amount:    12000,
		State:     domain.TransactionStateSettled,
		CreatedAt: now,
		SettledAt: &now,
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: "txn-001"}}

	h.Settle(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "SETTLED", data["state"])
}

func TestRefund_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTxn := mocks.NewMockTransactionService(ctrl)
	h := NewTransactionHandler(mockTxn)

	mockTxn.EXPECT().Refund(gomock.Any(), "txn-001", "payment_failed").Return(&domain.Transaction{
		ID:     "txn-001",
		State:  domain.TransactionStateRefunded,
		Reason: "payment_failed",
	}, nil)

	body, _ := json.Marshal(dto.RefundRequest{Reason: "payment_failed"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "txn-001"}}

	h.Refund(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefund_SettledConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTxn := mocks.NewMockTransactionService(ctrl)
	h := NewTransactionHandler(mockTxn)

	mockTxn.EXPECT().Refund(gomock.Any(), "txn-001", "too_late").Return(nil, apperror.ErrCannotReleaseSettled())

	body, _ := json.Marshal(dto.RefundRequest{Reason: "too_late"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "txn-001"}}

	h.Refund(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetTransaction_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTxn := mocks.NewMockTransactionService(ctrl)
	h := NewTransactionHandler(mockTxn)

	mockTxn.EXPECT().Get(gomock.Any(), "missing").Return(nil, apperror.ErrTransactionNotFound())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Wallet Handler Tests ---

func TestCreateWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	walletID := uuid.New()
	mockWallet.EXPECT().CreateWallet(gomock.Any(), ports.CreateWalletRequest{OwnerID: "owner-1"}).Return(&domain.Wallet{
		ID:        walletID,
		OwnerID:   "owner-1",
		Currency:  "INR",
		Kind:      domain.WalletKindUser,
		CreatedAt: time.Now(),
	}, nil)

	body, _ := json.Marshal(dto.CreateWalletRequest{OwnerID: "owner-1"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, walletID.String(), data["id"])
	assert.Equal(t, "USER", data["kind"])
}

func TestTopup_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	walletID := uuid.New()
	mockWallet.EXPECT().Topup(gomock.Any(), ports.TopupRequest{
		WalletID:      walletID,
		Amount:        100000,
		TransactionID: "topup-001",
	}).Return(&domain.Balance{Settled: 100000, Available: 100000, Currency: "INR"}, nil)

	body, _ := json.Marshal(dto.TopupRequest{Amount: 100000, TransactionID: "topup-001"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.Topup(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(100000), data["settled"])
}

func TestGetBalance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	walletID := uuid.New()
	mockWallet.EXPECT().GetBalance(gomock.Any(), walletID).Return(&domain.Balance{
		Settled: 100000, Available: 88000, Currency: "INR",
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(100000), data["settled"])
	assert.Equal(t, float64(88000), data["available"])
	assert.Equal(t, "INR", data["currency"])
}

func TestGetBalance_InvalidID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	h.GetBalance(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatement_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	walletID := uuid.New()
	mockWallet.EXPECT().Statement(gomock.Any(), gomock.Any()).Return([]domain.LedgerEntry{
		{
			ID:            uuid.New(),
			WalletID:      walletID,
			Amount:        -12000,
			EntryType:     domain.EntryTypeDebit,
			TransactionID: "txn-001",
			BalanceAfter:  88000,
			CreatedAt:     time.Now(),
		},
	}, int64(1), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=1&page_size=20", nil)
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.Statement(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	assert.Len(t, items, 1)
	assert.Equal(t, float64(1), data["total"])
	assert.Equal(t, float64(1), data["total_pages"])
}

func TestListTransactionsByWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTxn := mocks.NewMockTransactionService(ctrl)
	h := NewTransactionHandler(mockTxn)

	walletID := uuid.New()
	mockTxn.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
			assert.Equal(t, walletID, params.WalletID)
			require.NotNil(t, params.State)
			assert.Equal(t, domain.TransactionStateSettled, *params.State)
			return []domain.Transaction{
				{
					ID:       "txn-001",
					WalletID: walletID,
					Amount:   12000,
					State:    domain.TransactionStateSettled,
				},
			}, 1, nil
		})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=1&page_size=20&state=SETTLED", nil)
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.ListByWallet(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "txn-001", first["id"])
	assert.Equal(t, "SETTLED", first["state"])
}

// --- Audit Handler Tests ---

func TestAuditQuery_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)
	h := NewAuditHandler(mockAudit)

	mockAudit.EXPECT().Query(gomock.Any(), gomock.Any()).Return([]domain.AuditEvent{
		{
			ID:            uuid.New(),
			TransactionID: "txn-001",
			Action:        domain.AuditActionHoldCreated,
			CreatedAt:     time.Now(),
		},
	}, int64(1), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?transaction_id=txn-001", nil)

	h.Query(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	assert.Len(t, items, 1)
}

func TestAuditQuery_InvalidWalletID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)
	h := NewAuditHandler(mockAudit)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?wallet_id=nope", nil)

	h.Query(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Health Check Test ---

func TestHealthCheck(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck()(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}
