package handler

import (
	"strconv"

	"trust-ledger/internal/adapter/http/dto"
	"trust-ledger/internal/core/domain"
	"trust-ledger/internal/core/ports"
	"trust-ledger/pkg/apperror"
	"trust-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet lifecycle and read endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// Create handles POST /api/v1/wallets.
func (h *WalletHandler) Create(c *gin.Context) {
	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	wallet, err := h.walletSvc.CreateWallet(c.Request.Context(), ports.CreateWalletRequest{
		OwnerID:  req.OwnerID,
		Currency: req.Currency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.WalletResponse{
		ID:        wallet.ID.String(),
		OwnerID:   wallet.OwnerID,
		Currency:  wallet.Currency,
		Kind:      string(wallet.Kind),
		CreatedAt: wallet.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// Topup handles POST /api/v1/wallets/:id/topup.
func (h *WalletHandler) Topup(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	var req dto.TopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	balance, err := h.walletSvc.Topup(c.Request.Context(), ports.TopupRequest{
		WalletID:      walletID,
		Amount:        req.Amount,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toBalanceResponse(balance))
}

// GetBalance handles GET /api/v1/wallets/:id/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	balance, err := h.walletSvc.GetBalance(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toBalanceResponse(balance))
}

// Statement handles GET /api/v1/wallets/:id/entries.
func (h *WalletHandler) Statement(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	params := ports.LedgerListParams{
		WalletID: walletID,
		Page:     page,
		PageSize: pageSize,
	}
	if et := c.Query("entry_type"); et != "" {
		entryType := domain.EntryType(et)
		params.EntryType = &entryType
	}

	entries, total, err := h.walletSvc.Statement(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.EntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.EntryResponse{
			ID:            e.ID.String(),
			WalletID:      e.WalletID.String(),
			Amount:        e.Amount,
			EntryType:     string(e.EntryType),
			TransactionID: e.TransactionID,
			BalanceAfter:  e.BalanceAfter,
			CreatedAt:     e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	response.OK(c, dto.EntryListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages(total, params.PageSize),
	})
}

// Deactivate handles DELETE /api/v1/wallets/:id.
func (h *WalletHandler) Deactivate(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	if err := h.walletSvc.Deactivate(c.Request.Context(), walletID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deactivated": true})
}

func toBalanceResponse(b *domain.Balance) dto.BalanceResponse {
	return dto.BalanceResponse{
		Settled:   b.Settled,
		Available: b.Available,
		Currency:  b.Currency,
	}
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := int(total) / pageSize
	if int(total)%pageSize != 0 {
		pages++
	}
	return pages
}
