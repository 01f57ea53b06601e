package handler

import (
	"strconv"
	"time"

	"trust-ledger/internal/adapter/http/dto"
	"trust-ledger/internal/core/domain"
	"trust-ledger/internal/core/ports"
	"trust-ledger/pkg/apperror"
	"trust-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransactionHandler handles the orchestrator-facing transaction endpoints.
type TransactionHandler struct {
	txnSvc ports.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(txnSvc ports.TransactionService) *TransactionHandler {
	return &TransactionHandler{txnSvc: txnSvc}
}

// Begin handles POST /api/v1/transactions. It runs check-and-lock:
// a 201 means funds are reserved and the transaction is HELD.
func (h *TransactionHandler) Begin(c *gin.Context) {
	var req dto.BeginTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet_id"))
		return
	}

	result, err := h.txnSvc.Begin(c.Request.Context(), ports.BeginRequest{
		TransactionID: req.TransactionID,
		WalletID:      walletID,
		Amount:        req.Amount,
		ClientIP:      c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	// An idempotent retry of a denied request returns the FAILED record.
	if result.State == domain.TransactionStateFailed {
		response.OK(c, toTransactionResponse(result))
		return
	}
	response.Created(c, toTransactionResponse(result))
}

// Settle handles POST /api/v1/transactions/:id/settle.
func (h *TransactionHandler) Settle(c *gin.Context) {
	result, err := h.txnSvc.Settle(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toTransactionResponse(result))
}

// Refund handles POST /api/v1/transactions/:id/refund.
func (h *TransactionHandler) Refund(c *gin.Context) {
	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.txnSvc.Refund(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toTransactionResponse(result))
}

// Reverse handles POST /api/v1/transactions/:id/reverse.
func (h *TransactionHandler) Reverse(c *gin.Context) {
	var req dto.ReverseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.txnSvc.Reverse(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toTransactionResponse(result))
}

// Get handles GET /api/v1/transactions/:id.
func (h *TransactionHandler) Get(c *gin.Context) {
	result, err := h.txnSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toTransactionResponse(result))
}

// ListByWallet handles GET /api/v1/wallets/:id/transactions.
func (h *TransactionHandler) ListByWallet(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	params := ports.TransactionListParams{
		WalletID: walletID,
		Page:     page,
		PageSize: pageSize,
	}
	if st := c.Query("state"); st != "" {
		state := domain.TransactionState(st)
		params.State = &state
	}

	transactions, total, err := h.txnSvc.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(transactions))
	for i := range transactions {
		items = append(items, toTransactionResponse(&transactions[i]))
	}

	response.OK(c, dto.TransactionListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages(total, params.PageSize),
	})
}

// toTransactionResponse converts domain.Transaction to DTO.
func toTransactionResponse(txn *domain.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:        txn.ID,
		WalletID:  txn.WalletID.String(),
		Amount:    txn.Amount,
		State:     string(txn.State),
		Reason:    txn.Reason,
		CreatedAt: txn.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	resp.HeldAt = formatTimePtr(txn.HeldAt)
	resp.SettledAt = formatTimePtr(txn.SettledAt)
	resp.RefundedAt = formatTimePtr(txn.RefundedAt)
	resp.ReversedAt = formatTimePtr(txn.ReversedAt)
	return resp
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02T15:04:05Z07:00")
	return &s
}
