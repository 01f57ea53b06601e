package handler

import (
	"net/http"

	"trust-ledger/internal/adapter/http/dto"
	"trust-ledger/internal/core/ports"
	"trust-ledger/pkg/apperror"
	"trust-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves caregiver registration and login.
type AuthHandler struct {
	authSvc ports.AuthService
}

func NewAuthHandler(authSvc ports.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.authSvc.Register(c.Request.Context(), ports.RegisterRequest{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.RegisterResponse{
		CaregiverID: result.CaregiverID.String(),
		Username:    result.Username,
	})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	token, expiry, err := h.authSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LoginResponse{
		Token:  token,
		Expiry: expiry.Unix(),
	})
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthCheck handles GET /health. It pings every registered dependency
// and reports degraded with a 503 if any ping fails.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		deps := make(map[string]dependencyStatus, len(checkers))
		degraded := false

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
				degraded = true
				continue
			}
			deps[checker.Name()] = dependencyStatus{Status: "healthy"}
		}

		status, code := "healthy", http.StatusOK
		if degraded {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "dependencies": deps})
	}
}
