package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trust-ledger/config"
	httpHandler "trust-ledger/internal/adapter/http/handler"
	pgStorage "trust-ledger/internal/adapter/storage/postgres"
	redisStorage "trust-ledger/internal/adapter/storage/redis"
	"trust-ledger/internal/core/ports"
	"trust-ledger/internal/service"
	"trust-ledger/pkg/logger"

	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("starting trust ledger")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
	log.Info().Msg("server exited")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx := context.Background()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer rdb.Close()

	walletRepo := pgStorage.NewWalletRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	holdRepo := pgStorage.NewHoldRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	caregiverRepo := pgStorage.NewCaregiverRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	nonceStore := redisStorage.NewNonceStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	locker := service.NewWalletLocker()
	auditSvc := service.NewAuditService(auditRepo, log)
	authSvc := service.NewAuthService(caregiverRepo, hashSvc, tokenSvc)
	walletSvc := service.NewWalletService(walletRepo, ledgerRepo, holdRepo, transactor, locker, auditSvc, cfg.Ledger, log)
	txnSvc := service.NewTransactionService(
		txRepo,
		walletRepo,
		ledgerRepo,
		holdRepo,
		idempotencyCache,
		transactor,
		locker,
		auditSvc,
		cfg.Ledger,
		log,
	)

	// Re-drive transactions left non-terminal by a previous crash.
	recoverCtx, cancelRecover := context.WithTimeout(ctx, 30*time.Second)
	if err := txnSvc.RecoverStartup(recoverCtx); err != nil {
		log.Error().Err(err).Msg("startup recovery failed")
	}
	cancelRecover()

	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	reaper := service.NewReaper(txnSvc, cfg.Ledger.ReaperInterval, log)
	go reaper.Start(reaperCtx)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		WalletSvc:      walletSvc,
		TransactionSvc: txnSvc,
		AuditSvc:       auditSvc,
		SigSvc:         sigSvc,
		NonceStore:     nonceStore,
		TokenSvc:       tokenSvc,
		ServiceAuth:    cfg.ServiceAuth,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgStorage.NewHealthCheck(pool), redisStorage.NewHealthCheck(rdb)},
		Logger:         log,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shut down")
	}

	stopReaper()
	if err := auditSvc.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("audit recorder did not drain")
	}
	return nil
}
