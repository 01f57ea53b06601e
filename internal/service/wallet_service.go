package service

import (
	"context"
	"fmt"
	"time"

	"trust-ledger/config"
	"trust-ledger/internal/core/domain"
	"trust-ledger/internal/core/ports"
	"trust-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	holdRepo   ports.HoldRepository
	transactor ports.DBTransactor
	locker     *WalletLocker
	audit      ports.AuditService
	rules      config.LedgerConfig
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	holdRepo ports.HoldRepository,
	transactor ports.DBTransactor,
	locker *WalletLocker,
	audit ports.AuditService,
	rules config.LedgerConfig,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		holdRepo:   holdRepo,
		transactor: transactor,
		locker:     locker,
		audit:      audit,
		rules:      rules,
		log:        log,
	}
}

// CreateWallet provisions a new user wallet. Currency is fixed by
// deployment configuration.
func (s *WalletServiceImpl) CreateWallet(ctx context.Context, req ports.CreateWalletRequest) (*domain.Wallet, error) {
	if req.OwnerID == "" {
		return nil, apperror.Validation("owner_id is required")
	}
	currency := req.Currency
	if currency == "" {
		currency = s.rules.Currency
	}
	if currency != s.rules.Currency {
		return nil, apperror.Validation("unsupported currency: " + currency)
	}

	wallet := &domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   req.OwnerID,
		Currency:  currency,
		Kind:      domain.WalletKindUser,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("create wallet: %w", err))
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("owner_id", wallet.OwnerID).
		Msg("wallet created")

	return wallet, nil
}

// Topup credits a wallet with caregiver-funded money. This is the only
// way value enters the closed loop, recorded as a single CREDIT entry
// keyed by the caller-supplied transaction id.
func (s *WalletServiceImpl) Topup(ctx context.Context, req ports.TopupRequest) (*domain.Balance, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.TransactionID == "" {
		return nil, apperror.Validation("transaction_id is required")
	}

	// Idempotency: the entry itself is the durable record.
	prior, err := s.ledgerRepo.GetByTransactionID(ctx, req.TransactionID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(err)
	}
	if len(prior) > 0 {
		return s.GetBalance(ctx, req.WalletID)
	}

	release, err := s.locker.Acquire(ctx, req.WalletID, s.rules.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, req.WalletID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	if !wallet.IsActive() {
		return nil, apperror.ErrWalletNotFound()
	}

	balance, err := s.ledgerRepo.BalanceOfForUpdate(ctx, dbTx, wallet.ID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("fold balance: %w", err))
	}

	now := time.Now().UTC()
	entry := domain.LedgerEntry{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		Amount:        req.Amount,
		EntryType:     domain.EntryTypeCredit,
		TransactionID: req.TransactionID,
		BalanceAfter:  balance + req.Amount,
		CreatedAt:     now,
	}
	if err := s.ledgerRepo.AppendEntries(ctx, dbTx, []domain.LedgerEntry{entry}); err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("append topup entry: %w", err))
	}

	heldTotal, err := s.holdRepo.ActiveTotal(ctx, dbTx, wallet.ID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("sum holds: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	s.audit.Record(domain.AuditEvent{
		ID:            uuid.New(),
		TransactionID: req.TransactionID,
		WalletID:      &wallet.ID,
		Action:        domain.AuditActionTopup,
		Detail:        fmt.Sprintf("amount=%d", req.Amount),
		CreatedAt:     now,
	})

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Int64("amount", req.Amount).
		Msg("wallet topped up")

	return &domain.Balance{
		Settled:   balance + req.Amount,
		Available: balance + req.Amount - heldTotal,
		Currency:  wallet.Currency,
	}, nil
}

// GetBalance derives both balances in one consistent snapshot: settled
// is the entry fold, available subtracts active holds.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, walletID uuid.UUID) (*domain.Balance, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(err)
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	settled, err := s.ledgerRepo.BalanceOfForUpdate(ctx, dbTx, walletID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("fold balance: %w", err))
	}
	heldTotal, err := s.holdRepo.ActiveTotal(ctx, dbTx, walletID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("sum holds: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	return &domain.Balance{
		Settled:   settled,
		Available: settled - heldTotal,
		Currency:  wallet.Currency,
	}, nil
}

// Statement returns a page of ledger entries for a wallet.
func (s *WalletServiceImpl) Statement(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	entries, total, err := s.ledgerRepo.ListByWallet(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrStoreUnavailable(err)
	}
	return entries, total, nil
}

// Deactivate soft-deactivates a wallet. Entries and history remain.
func (s *WalletServiceImpl) Deactivate(ctx context.Context, walletID uuid.UUID) error {
	if err := s.walletRepo.Deactivate(ctx, walletID); err != nil {
		return apperror.ErrWalletNotFound()
	}

	s.audit.Record(domain.AuditEvent{
		ID:        uuid.New(),
		WalletID:  &walletID,
		Action:    domain.AuditActionStateChanged,
		Detail:    "wallet_deactivated",
		CreatedAt: time.Now().UTC(),
	})
	return nil
}
