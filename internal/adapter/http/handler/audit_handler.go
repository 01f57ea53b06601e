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

// AuditHandler serves the audit trail to the caregiver dashboard.
type AuditHandler struct {
	auditSvc ports.AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditSvc ports.AuditService) *AuditHandler {
	return &AuditHandler{auditSvc: auditSvc}
}

// Query handles GET /api/v1/audit.
func (h *AuditHandler) Query(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	params := ports.AuditQueryParams{
		TransactionID: c.Query("transaction_id"),
		Page:          page,
		PageSize:      pageSize,
	}
	if w := c.Query("wallet_id"); w != "" {
		walletID, err := uuid.Parse(w)
		if err != nil {
			response.Error(c, apperror.Validation("invalid wallet_id"))
			return
		}
		params.WalletID = &walletID
	}
	if a := c.Query("action"); a != "" {
		action := domain.AuditAction(a)
		params.Action = &action
	}

	events, total, err := h.auditSvc.Query(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.AuditEventResponse, 0, len(events))
	for _, e := range events {
		item := dto.AuditEventResponse{
			ID:            e.ID.String(),
			TransactionID: e.TransactionID,
			Action:        string(e.Action),
			PriorState:    e.PriorState,
			NewState:      e.NewState,
			Detail:        e.Detail,
			CreatedAt:     e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if e.WalletID != nil {
			item.WalletID = e.WalletID.String()
		}
		items = append(items, item)
	}

	response.OK(c, dto.AuditListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages(total, params.PageSize),
	})
}
