package handler

import (
	"trust-ledger/config"
	"trust-ledger/internal/adapter/http/middleware"
	"trust-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	WalletSvc      ports.WalletService
	TransactionSvc ports.TransactionService
	AuditSvc       ports.AuditService
	SigSvc         ports.SignatureService
	NonceStore     ports.NonceStore
	TokenSvc       ports.TokenService
	ServiceAuth    config.ServiceAuthConfig
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- HMAC-authenticated routes (transaction orchestrator API) ---
	svcAuth := middleware.ServiceAuth(deps.ServiceAuth, deps.SigSvc, deps.NonceStore, deps.Logger)
	txnHandler := NewTransactionHandler(deps.TransactionSvc)
	transactions := v1.Group("/transactions", svcAuth)
	{
		transactions.POST("", rl("transactions"), txnHandler.Begin)
		transactions.POST("/:id/settle", rl("transactions"), txnHandler.Settle)
		transactions.POST("/:id/refund", rl("transactions"), txnHandler.Refund)
		transactions.POST("/:id/reverse", rl("transactions"), txnHandler.Reverse)
		transactions.GET("/:id", rl("transactions"), txnHandler.Get)
	}

	// --- JWT-authenticated routes (caregiver dashboard) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.WalletSvc)
	auditHandler := NewAuditHandler(deps.AuditSvc)

	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.POST("", rl("dashboard"), walletHandler.Create)
		wallets.POST("/:id/topup", rl("wallets_topup"), walletHandler.Topup)
		wallets.GET("/:id/balance", rl("dashboard"), walletHandler.GetBalance)
		wallets.GET("/:id/entries", rl("dashboard"), walletHandler.Statement)
		wallets.GET("/:id/transactions", rl("dashboard"), txnHandler.ListByWallet)
		wallets.DELETE("/:id", rl("dashboard"), walletHandler.Deactivate)
	}

	audit := v1.Group("/audit", jwtAuth)
	{
		audit.GET("", rl("dashboard"), auditHandler.Query)
	}

	return r
}
