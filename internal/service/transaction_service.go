package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trust-ledger/config"
	"trust-ledger/internal/core/domain"
	"trust-ledger/internal/core/ports"
	"trust-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	idempotencyTTL     = 24 * time.Hour
	recoveryBatchLimit = 500
)

// TransactionServiceImpl implements ports.TransactionService. It is the
// sole writer of transaction state and drives the hold-then-settle
// protocol end to end.
type TransactionServiceImpl struct {
	txRepo     ports.TransactionRepository
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	holdRepo   ports.HoldRepository
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	locker     *WalletLocker
	audit      ports.AuditService
	rules      config.LedgerConfig
	log        zerolog.Logger
}

// NewTransactionService creates a new TransactionServiceImpl.
func NewTransactionService(
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	holdRepo ports.HoldRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	locker *WalletLocker,
	audit ports.AuditService,
	rules config.LedgerConfig,
	log zerolog.Logger,
) *TransactionServiceImpl {
	return &TransactionServiceImpl{
		txRepo:     txRepo,
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		holdRepo:   holdRepo,
		idempCache: idempCache,
		transactor: transactor,
		locker:     locker,
		audit:      audit,
		rules:      rules,
		log:        log,
	}
}

// Begin implements check-and-lock. It either places a hold and moves
// the transaction to HELD, or records a FAILED transaction carrying the
// denial reason. Retries with a known transaction id return the
// existing record unchanged.
func (s *TransactionServiceImpl) Begin(ctx context.Context, req ports.BeginRequest) (*domain.Transaction, error) {
	if req.TransactionID == "" {
		return nil, apperror.Validation("transaction_id is required")
	}
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	idempKey := "begin:" + req.TransactionID

	// Layer 1: Redis idempotency check
	cached, err := s.idempCache.Get(ctx, idempKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return unmarshalCachedTransaction(cached)
	}

	// Layer 2: the transaction row itself is the durable idempotency record
	existing, err := s.txRepo.GetByID(ctx, req.TransactionID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(err)
	}
	if existing != nil {
		return existing, nil
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
		s.recordDenial(req, "wallet_not_found")
		return nil, apperror.ErrWalletNotFound()
	}
	if !wallet.IsActive() {
		return s.deny(ctx, dbTx, req, "wallet_deactivated", apperror.ErrWalletNotFound())
	}

	// Business rules run against the locked snapshot.
	if req.Amount > s.rules.MaxTransactionAmount {
		return s.deny(ctx, dbTx, req, "transaction_cap_exceeded", apperror.ErrTransactionCapExceeded())
	}

	settled, err := s.ledgerRepo.BalanceOfForUpdate(ctx, dbTx, wallet.ID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("fold balance: %w", err))
	}
	heldTotal, err := s.holdRepo.ActiveTotal(ctx, dbTx, wallet.ID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("sum holds: %w", err))
	}

	// Daily limit counts settled debits plus funds still reserved by
	// active holds, so sequential begins cannot reserve past the cap
	// before anything settles. Zero disables the rule.
	if s.rules.DailyLimit > 0 {
		dayStart := time.Now().UTC().Truncate(24 * time.Hour)
		spentToday, err := s.ledgerRepo.DebitsSince(ctx, dbTx, wallet.ID, dayStart)
		if err != nil {
			return nil, apperror.ErrStoreUnavailable(fmt.Errorf("sum daily debits: %w", err))
		}
		if spentToday+heldTotal+req.Amount > s.rules.DailyLimit {
			return s.deny(ctx, dbTx, req, "daily_limit_exceeded", apperror.ErrDailyLimitExceeded())
		}
	}

	if settled-heldTotal < req.Amount {
		return s.deny(ctx, dbTx, req, "insufficient_funds", apperror.ErrInsufficientFunds())
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:        req.TransactionID,
		WalletID:  wallet.ID,
		Amount:    req.Amount,
		State:     domain.TransactionStateRequested,
		CreatedAt: now,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("create transaction: %w", err))
	}

	hold := &domain.Hold{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		Amount:        req.Amount,
		TransactionID: txn.ID,
		Status:        domain.HoldStatusActive,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.rules.HoldTTL),
	}
	if err := s.holdRepo.Create(ctx, dbTx, hold); err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("create hold: %w", err))
	}

	ok, err := s.txRepo.UpdateState(ctx, dbTx, txn.ID, domain.TransactionStateRequested, domain.TransactionStateHeld, "")
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("transition to held: %w", err))
	}
	if !ok {
		return nil, apperror.ErrInvariantViolation("freshly created transaction not in REQUESTED")
	}
	txn.State = domain.TransactionStateHeld
	txn.HeldAt = &now

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	s.audit.Record(domain.AuditEvent{
		ID:            uuid.New(),
		TransactionID: txn.ID,
		WalletID:      &wallet.ID,
		Action:        domain.AuditActionHoldCreated,
		PriorState:    string(domain.TransactionStateRequested),
		NewState:      string(domain.TransactionStateHeld),
		Detail:        withCallerIP(fmt.Sprintf("amount=%d ttl=%s", req.Amount, s.rules.HoldTTL), req.ClientIP),
		CreatedAt:     now,
	})

	s.cacheResponse(ctx, idempKey, txn)

	s.log.Info().
		Str("transaction_id", txn.ID).
		Str("wallet_id", wallet.ID.String()).
		Int64("amount", req.Amount).
		Int64("available", settled-heldTotal-req.Amount).
		Msg("hold placed")

	return txn, nil
}

// deny records a FAILED transaction carrying the denial reason, commits
// it, and returns the rejection error. The failed record is what makes
// a denied request idempotent on retry.
func (s *TransactionServiceImpl) deny(ctx context.Context, dbTx pgx.Tx, req ports.BeginRequest, reason string, rejection error) (*domain.Transaction, error) {
	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:        req.TransactionID,
		WalletID:  req.WalletID,
		Amount:    req.Amount,
		State:     domain.TransactionStateFailed,
		Reason:    reason,
		CreatedAt: now,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("record denial: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("commit denial: %w", err))
	}

	s.recordDenial(req, reason)

	s.log.Info().
		Str("transaction_id", req.TransactionID).
		Str("wallet_id", req.WalletID.String()).
		Int64("amount", req.Amount).
		Str("reason", reason).
		Msg("request denied")

	return nil, rejection
}

// Settle commits the hold and appends the balanced debit/credit pair.
// Settling an already settled transaction returns the existing record.
func (s *TransactionServiceImpl) Settle(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	idempKey := "settle:" + transactionID

	cached, err := s.idempCache.Get(ctx, idempKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return unmarshalCachedTransaction(cached)
	}

	txn, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(err)
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound()
	}
	switch txn.State {
	case domain.TransactionStateSettled:
		return txn, nil
	case domain.TransactionStateHeld:
		// proceed
	default:
		return nil, apperror.ErrInvalidState(string(txn.State))
	}

	release, err := s.locker.Acquire(ctx, txn.WalletID, s.rules.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Re-read under the row lock: a concurrent settle, refund, or the
	// reaper may have won since the unlocked read.
	txn, err = s.txRepo.GetByIDForUpdate(ctx, dbTx, transactionID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("lock transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound()
	}
	if txn.State == domain.TransactionStateSettled {
		return txn, nil
	}
	if txn.State != domain.TransactionStateHeld {
		return nil, apperror.ErrInvalidState(string(txn.State))
	}

	// Reconcile: if the entry pair already exists the previous settle
	// crashed after the append. Finish the state transition only.
	priorEntries, err := s.ledgerRepo.GetByTransactionIDForUpdate(ctx, dbTx, transactionID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("reconcile entries: %w", err))
	}
	if len(priorEntries) == 0 {
		if err := s.commitHoldAndAppend(ctx, dbTx, txn); err != nil {
			return nil, err
		}
	}

	ok, err := s.txRepo.UpdateState(ctx, dbTx, txn.ID, domain.TransactionStateHeld, domain.TransactionStateSettled, "")
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("transition to settled: %w", err))
	}
	if !ok {
		return nil, apperror.ErrInvariantViolation("held transaction changed state under row lock")
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	now := time.Now().UTC()
	txn.State = domain.TransactionStateSettled
	txn.SettledAt = &now

	s.audit.Record(domain.AuditEvent{
		ID:            uuid.New(),
		TransactionID: txn.ID,
		WalletID:      &txn.WalletID,
		Action:        domain.AuditActionHoldCommitted,
		PriorState:    string(domain.TransactionStateHeld),
		NewState:      string(domain.TransactionStateSettled),
		Detail:        fmt.Sprintf("amount=%d reconciled=%t", txn.Amount, len(priorEntries) > 0),
		CreatedAt:     now,
	})

	s.cacheResponse(ctx, idempKey, txn)

	s.log.Info().
		Str("transaction_id", txn.ID).
		Str("wallet_id", txn.WalletID.String()).
		Int64("amount", txn.Amount).
		Msg("transaction settled")

	return txn, nil
}

// commitHoldAndAppend flips the hold to COMMITTED and writes the
// debit/credit pair inside the caller's database transaction.
func (s *TransactionServiceImpl) commitHoldAndAppend(ctx context.Context, dbTx pgx.Tx, txn *domain.Transaction) error {
	hold, err := s.holdRepo.GetByTransactionIDForUpdate(ctx, dbTx, txn.ID)
	if err != nil {
		return apperror.ErrStoreUnavailable(fmt.Errorf("lock hold: %w", err))
	}
	if hold == nil || hold.Status != domain.HoldStatusActive {
		return apperror.ErrHoldNotActive()
	}
	// Past the TTL the hold refunds by default; a settle that lost the
	// race to the deadline is refused even if the reaper has not swept
	// the hold yet.
	if hold.IsExpired(time.Now().UTC()) {
		return apperror.ErrHoldNotActive()
	}

	ok, err := s.holdRepo.UpdateStatus(ctx, dbTx, hold.ID, domain.HoldStatusActive, domain.HoldStatusCommitted, "")
	if err != nil {
		return apperror.ErrStoreUnavailable(fmt.Errorf("commit hold: %w", err))
	}
	if !ok {
		return apperror.ErrHoldNotActive()
	}

	clearing, err := s.walletRepo.GetClearing(ctx, s.rules.Currency)
	if err != nil {
		return apperror.ErrStoreUnavailable(fmt.Errorf("get clearing wallet: %w", err))
	}
	if clearing == nil {
		return apperror.ErrInvariantViolation("clearing wallet missing for " + s.rules.Currency)
	}

	walletBalance, err := s.ledgerRepo.BalanceOfForUpdate(ctx, dbTx, txn.WalletID)
	if err != nil {
		return apperror.ErrStoreUnavailable(fmt.Errorf("fold wallet balance: %w", err))
	}
	clearingBalance, err := s.ledgerRepo.BalanceOfForUpdate(ctx, dbTx, clearing.ID)
	if err != nil {
		return apperror.ErrStoreUnavailable(fmt.Errorf("fold clearing balance: %w", err))
	}

	// Settled balance may never go negative. A hold should make this
	// unreachable; if it trips, the books are wrong and the commit
	// aborts for manual reconciliation.
	if walletBalance-txn.Amount < 0 {
		s.audit.Record(domain.AuditEvent{
			ID:            uuid.New(),
			TransactionID: txn.ID,
			WalletID:      &txn.WalletID,
			Action:        domain.AuditActionStateChanged,
			Detail:        fmt.Sprintf("settle aborted: balance=%d amount=%d", walletBalance, txn.Amount),
			CreatedAt:     time.Now().UTC(),
		})
		return apperror.ErrInvariantViolation("settled balance would go negative")
	}

	now := time.Now().UTC()
	entries := []domain.LedgerEntry{
		{
			ID:            uuid.New(),
			WalletID:      txn.WalletID,
			Amount:        -txn.Amount,
			EntryType:     domain.EntryTypeDebit,
			TransactionID: txn.ID,
			BalanceAfter:  walletBalance - txn.Amount,
			CreatedAt:     now,
		},
		{
			ID:            uuid.New(),
			WalletID:      clearing.ID,
			Amount:        txn.Amount,
			EntryType:     domain.EntryTypeCredit,
			TransactionID: txn.ID,
			BalanceAfter:  clearingBalance + txn.Amount,
			CreatedAt:     now,
		},
	}
	if err := s.ledgerRepo.AppendEntries(ctx, dbTx, entries); err != nil {
		return apperror.ErrStoreUnavailable(fmt.Errorf("append entries: %w", err))
	}

	s.audit.Record(domain.AuditEvent{
		ID:            uuid.New(),
		TransactionID: txn.ID,
		WalletID:      &txn.WalletID,
		Action:        domain.AuditActionLedgerAppend,
		Detail:        fmt.Sprintf("debit=%d credit=%d", -txn.Amount, txn.Amount),
		CreatedAt:     now,
	})
	return nil
}

// Refund releases the hold without any ledger write. Refunding an
// already refunded transaction returns the existing record.
func (s *TransactionServiceImpl) Refund(ctx context.Context, transactionID string, reason string) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(err)
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound()
	}
	switch txn.State {
	case domain.TransactionStateRefunded:
		return txn, nil
	case domain.TransactionStateSettled:
		return nil, apperror.ErrCannotReleaseSettled()
	case domain.TransactionStateHeld:
		// proceed
	default:
		return nil, apperror.ErrInvalidState(string(txn.State))
	}

	release, err := s.locker.Acquire(ctx, txn.WalletID, s.rules.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.releaseHeld(ctx, txn.ID, reason, domain.HoldStatusReleased, domain.AuditActionHoldReleased)
}

// releaseHeld drives HELD -> REFUNDED with the hold moving to the given
// terminal status. Shared by Refund and hold expiry.
func (s *TransactionServiceImpl) releaseHeld(ctx context.Context, transactionID, reason string, holdStatus domain.HoldStatus, action domain.AuditAction) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.txRepo.GetByIDForUpdate(ctx, dbTx, transactionID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("lock transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound()
	}
	if txn.State == domain.TransactionStateRefunded {
		return txn, nil
	}
	if txn.State == domain.TransactionStateSettled {
		return nil, apperror.ErrCannotReleaseSettled()
	}
	if txn.State != domain.TransactionStateHeld {
		return nil, apperror.ErrInvalidState(string(txn.State))
	}

	hold, err := s.holdRepo.GetByTransactionIDForUpdate(ctx, dbTx, transactionID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("lock hold: %w", err))
	}
	if hold == nil || hold.Status != domain.HoldStatusActive {
		return nil, apperror.ErrHoldNotActive()
	}

	ok, err := s.holdRepo.UpdateStatus(ctx, dbTx, hold.ID, domain.HoldStatusActive, holdStatus, reason)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("release hold: %w", err))
	}
	if !ok {
		return nil, apperror.ErrHoldNotActive()
	}

	ok, err = s.txRepo.UpdateState(ctx, dbTx, transactionID, domain.TransactionStateHeld, domain.TransactionStateRefunded, reason)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("transition to refunded: %w", err))
	}
	if !ok {
		return nil, apperror.ErrInvariantViolation("held transaction changed state under row lock")
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	now := time.Now().UTC()
	txn.State = domain.TransactionStateRefunded
	txn.Reason = reason
	txn.RefundedAt = &now

	s.audit.Record(domain.AuditEvent{
		ID:            uuid.New(),
		TransactionID: txn.ID,
		WalletID:      &txn.WalletID,
		Action:        action,
		PriorState:    string(domain.TransactionStateHeld),
		NewState:      string(domain.TransactionStateRefunded),
		Detail:        reason,
		CreatedAt:     now,
	})

	s.log.Info().
		Str("transaction_id", txn.ID).
		Str("reason", reason).
		Msg("hold released, funds returned to available balance")

	return txn, nil
}

// Reverse appends a REFUND correction pair for a settled transaction.
// Settled entries are never modified; the correction restores the
// wallet by a new balanced set.
func (s *TransactionServiceImpl) Reverse(ctx context.Context, transactionID string, reason string) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(err)
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound()
	}
	if txn.ReversedAt != nil {
		return nil, apperror.ErrAlreadyReversed()
	}
	if txn.State != domain.TransactionStateSettled {
		return nil, apperror.ErrInvalidState(string(txn.State))
	}

	release, err := s.locker.Acquire(ctx, txn.WalletID, s.rules.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	ok, err := s.txRepo.MarkReversed(ctx, dbTx, transactionID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("mark reversed: %w", err))
	}
	if !ok {
		return nil, apperror.ErrAlreadyReversed()
	}

	clearing, err := s.walletRepo.GetClearing(ctx, s.rules.Currency)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("get clearing wallet: %w", err))
	}
	if clearing == nil {
		return nil, apperror.ErrInvariantViolation("clearing wallet missing for " + s.rules.Currency)
	}

	walletBalance, err := s.ledgerRepo.BalanceOfForUpdate(ctx, dbTx, txn.WalletID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("fold wallet balance: %w", err))
	}
	clearingBalance, err := s.ledgerRepo.BalanceOfForUpdate(ctx, dbTx, clearing.ID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("fold clearing balance: %w", err))
	}

	now := time.Now().UTC()
	correctionID := transactionID + ":reversal"
	entries := []domain.LedgerEntry{
		{
			ID:            uuid.New(),
			WalletID:      txn.WalletID,
			Amount:        txn.Amount,
			EntryType:     domain.EntryTypeRefund,
			TransactionID: correctionID,
			BalanceAfter:  walletBalance + txn.Amount,
			CreatedAt:     now,
		},
		{
			ID:            uuid.New(),
			WalletID:      clearing.ID,
			Amount:        -txn.Amount,
			EntryType:     domain.EntryTypeRefund,
			TransactionID: correctionID,
			BalanceAfter:  clearingBalance - txn.Amount,
			CreatedAt:     now,
		},
	}
	if err := s.ledgerRepo.AppendEntries(ctx, dbTx, entries); err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("append correction pair: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	txn.ReversedAt = &now

	s.audit.Record(domain.AuditEvent{
		ID:            uuid.New(),
		TransactionID: txn.ID,
		WalletID:      &txn.WalletID,
		Action:        domain.AuditActionReversal,
		Detail:        reason,
		CreatedAt:     now,
	})

	s.log.Info().
		Str("transaction_id", txn.ID).
		Int64("amount", txn.Amount).
		Str("reason", reason).
		Msg("settled transaction reversed")

	return txn, nil
}

// Get fetches a transaction by its idempotency key.
func (s *TransactionServiceImpl) Get(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(err)
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound()
	}
	return txn, nil
}

// List returns a page of transactions for a wallet.
func (s *TransactionServiceImpl) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	transactions, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrStoreUnavailable(err)
	}
	return transactions, total, nil
}

// ExpireDueHolds releases every ACTIVE hold whose TTL has elapsed,
// driving the owning transactions to REFUNDED. Returns the number of
// holds expired. Called by the reaper and by the startup sweep.
func (s *TransactionServiceImpl) ExpireDueHolds(ctx context.Context, limit int) (int, error) {
	due, err := s.holdRepo.ListExpired(ctx, time.Now().UTC(), limit)
	if err != nil {
		return 0, apperror.ErrStoreUnavailable(fmt.Errorf("list expired holds: %w", err))
	}

	expired := 0
	for _, hold := range due {
		release, err := s.locker.Acquire(ctx, hold.WalletID, s.rules.LockTimeout)
		if err != nil {
			s.log.Warn().Err(err).Str("transaction_id", hold.TransactionID).Msg("skipping expired hold, wallet busy")
			continue
		}

		_, err = s.releaseHeld(ctx, hold.TransactionID, "hold_expired", domain.HoldStatusExpired, domain.AuditActionHoldExpired)
		release()
		if err != nil {
			// A settle that won the race is fine; anything else is logged
			// and retried on the next tick.
			s.log.Warn().Err(err).Str("transaction_id", hold.TransactionID).Msg("expire hold failed")
			continue
		}
		expired++
	}
	return expired, nil
}

// RecoverStartup re-drives transactions stranded by a crash. REQUESTED
// rows without an active hold fail; HELD rows whose entry pair exists
// finish settling. Expired holds are left for the reaper's first tick.
func (s *TransactionServiceImpl) RecoverStartup(ctx context.Context) error {
	requested, err := s.txRepo.ListInState(ctx, domain.TransactionStateRequested, recoveryBatchLimit)
	if err != nil {
		return apperror.ErrStoreUnavailable(fmt.Errorf("list requested: %w", err))
	}
	for _, txn := range requested {
		if err := s.recoverRequested(ctx, txn); err != nil {
			s.log.Warn().Err(err).Str("transaction_id", txn.ID).Msg("recovery of requested transaction failed")
		}
	}

	held, err := s.txRepo.ListInState(ctx, domain.TransactionStateHeld, recoveryBatchLimit)
	if err != nil {
		return apperror.ErrStoreUnavailable(fmt.Errorf("list held: %w", err))
	}
	recovered := 0
	for _, txn := range held {
		entries, err := s.ledgerRepo.GetByTransactionID(ctx, txn.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("transaction_id", txn.ID).Msg("recovery entry check failed")
			continue
		}
		if len(entries) == 0 {
			continue // legitimate in-flight hold, reaper owns its deadline
		}
		if _, err := s.Settle(ctx, txn.ID); err != nil {
			s.log.Warn().Err(err).Str("transaction_id", txn.ID).Msg("recovery settle failed")
			continue
		}
		recovered++
	}

	s.audit.Record(domain.AuditEvent{
		ID:        uuid.New(),
		Action:    domain.AuditActionRecoverySweep,
		Detail:    fmt.Sprintf("requested=%d held=%d resettled=%d", len(requested), len(held), recovered),
		CreatedAt: time.Now().UTC(),
	})

	s.log.Info().
		Int("requested", len(requested)).
		Int("held", len(held)).
		Int("resettled", recovered).
		Msg("startup recovery sweep complete")
	return nil
}

func (s *TransactionServiceImpl) recoverRequested(ctx context.Context, txn domain.Transaction) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	hold, err := s.holdRepo.GetByTransactionIDForUpdate(ctx, dbTx, txn.ID)
	if err != nil {
		return fmt.Errorf("check hold: %w", err)
	}

	to := domain.TransactionStateFailed
	reason := "recovered_incomplete"
	if hold != nil && hold.Status == domain.HoldStatusActive {
		// Crash landed between hold insert and the HELD transition.
		to = domain.TransactionStateHeld
		reason = ""
	}

	ok, err := s.txRepo.UpdateState(ctx, dbTx, txn.ID, domain.TransactionStateRequested, to, reason)
	if err != nil {
		return fmt.Errorf("recover transition: %w", err)
	}
	if !ok {
		return nil // someone else already moved it
	}
	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit recovery: %w", err)
	}

	s.audit.Record(domain.AuditEvent{
		ID:            uuid.New(),
		TransactionID: txn.ID,
		WalletID:      &txn.WalletID,
		Action:        domain.AuditActionStateChanged,
		PriorState:    string(domain.TransactionStateRequested),
		NewState:      string(to),
		Detail:        reason,
		CreatedAt:     time.Now().UTC(),
	})
	return nil
}

func (s *TransactionServiceImpl) recordDenial(req ports.BeginRequest, reason string) {
	s.audit.Record(domain.AuditEvent{
		ID:            uuid.New(),
		TransactionID: req.TransactionID,
		WalletID:      &req.WalletID,
		Action:        domain.AuditActionRequestDenied,
		Detail:        withCallerIP(reason, req.ClientIP),
		CreatedAt:     time.Now().UTC(),
	})
}

// withCallerIP tags an audit detail with the orchestrator's address
// when the transport supplied one.
func withCallerIP(detail, ip string) string {
	if ip == "" {
		return detail
	}
	return detail + " ip=" + ip
}

func (s *TransactionServiceImpl) cacheResponse(ctx context.Context, key string, txn *domain.Transaction) {
	respJSON, err := json.Marshal(txn)
	if err != nil {
		return
	}
	if err := s.idempCache.Set(ctx, key, respJSON, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency in redis")
	}
}

func unmarshalCachedTransaction(data []byte) (*domain.Transaction, error) {
	txn := &domain.Transaction{}
	if err := json.Unmarshal(data, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached transaction: %w", err))
	}
	return txn, nil
}
