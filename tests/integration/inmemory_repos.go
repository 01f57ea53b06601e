package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"trust-ledger/internal/core/domain"
	"trust-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryWalletRepo) GetClearing(ctx context.Context, currency string) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.Kind == domain.WalletKindClearing && w.Currency == currency {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok || w.DeactivatedAt != nil {
		return fmt.Errorf("wallet not found or already deactivated")
	}
	now := time.Now().UTC()
	w.DeactivatedAt = &now
	return nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{}
}

func (r *inMemoryLedgerRepo) AppendEntries(ctx context.Context, tx pgx.Tx, entries []domain.LedgerEntry) error {
	if err := domain.ValidateBalanced(entries); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *inMemoryLedgerRepo) BalanceOf(ctx context.Context, walletID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum int64
	for _, e := range r.entries {
		if e.WalletID == walletID {
			sum += e.Amount
		}
	}
	return sum, nil
}

func (r *inMemoryLedgerRepo) BalanceOfForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (int64, error) {
	return r.BalanceOf(ctx, walletID)
}

func (r *inMemoryLedgerRepo) DebitsSince(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum int64
	for _, e := range r.entries {
		if e.WalletID == walletID && e.EntryType == domain.EntryTypeDebit && !e.CreatedAt.Before(since) {
			sum += -e.Amount
		}
	}
	return sum, nil
}

func (r *inMemoryLedgerRepo) GetByTransactionID(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.LedgerEntry
	for _, e := range r.entries {
		if e.TransactionID == transactionID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *inMemoryLedgerRepo) GetByTransactionIDForUpdate(ctx context.Context, tx pgx.Tx, transactionID string) ([]domain.LedgerEntry, error) {
	return r.GetByTransactionID(ctx, transactionID)
}

func (r *inMemoryLedgerRepo) ListByWallet(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.LedgerEntry
	for _, e := range r.entries {
		if e.WalletID != params.WalletID {
			continue
		}
		if params.EntryType != nil && e.EntryType != *params.EntryType {
			continue
		}
		if params.From != nil && e.CreatedAt.Unix() < *params.From {
			continue
		}
		if params.To != nil && e.CreatedAt.Unix() > *params.To {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.LedgerEntry{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

// --- In-Memory Hold Repo ---

type inMemoryHoldRepo struct {
	mu    sync.RWMutex
	holds map[uuid.UUID]*domain.Hold
}

func newInMemoryHoldRepo() *inMemoryHoldRepo {
	return &inMemoryHoldRepo{holds: make(map[uuid.UUID]*domain.Hold)}
}

func (r *inMemoryHoldRepo) Create(ctx context.Context, tx pgx.Tx, h *domain.Hold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.holds {
		if existing.TransactionID == h.TransactionID && existing.Status == domain.HoldStatusActive {
			return fmt.Errorf("active hold already exists for transaction %s", h.TransactionID)
		}
	}
	cp := *h
	r.holds[h.ID] = &cp
	return nil
}

func (r *inMemoryHoldRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Hold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.holds[id]
	if !ok {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

func (r *inMemoryHoldRepo) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Hold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *domain.Hold
	for _, h := range r.holds {
		if h.TransactionID != transactionID {
			continue
		}
		if latest == nil || h.CreatedAt.After(latest.CreatedAt) {
			latest = h
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *inMemoryHoldRepo) GetByTransactionIDForUpdate(ctx context.Context, tx pgx.Tx, transactionID string) (*domain.Hold, error) {
	return r.GetByTransactionID(ctx, transactionID)
}

func (r *inMemoryHoldRepo) ActiveTotal(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum int64
	for _, h := range r.holds {
		if h.WalletID == walletID && h.Status == domain.HoldStatusActive {
			sum += h.Amount
		}
	}
	return sum, nil
}

func (r *inMemoryHoldRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.HoldStatus, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.holds[id]
	if !ok || h.Status != from {
		return false, nil
	}
	h.Status = to
	if reason != "" {
		h.Reason = reason
	}
	return true, nil
}

func (r *inMemoryHoldRepo) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]domain.Hold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Hold
	for _, h := range r.holds {
		if h.Status == domain.HoldStatusActive && h.ExpiresAt.Before(cutoff) {
			result = append(result, *h)
		}
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{transactions: make(map[string]*domain.Transaction)}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.transactions[t.ID]; ok {
		return fmt.Errorf("transaction %s already exists", t.ID)
	}
	cp := *t
	r.transactions[t.ID] = &cp
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transactions[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryTransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Transaction, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryTransactionRepo) UpdateState(ctx context.Context, tx pgx.Tx, id string, from, to domain.TransactionState, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[id]
	if !ok || t.State != from {
		return false, nil
	}
	t.State = to
	if reason != "" {
		t.Reason = reason
	}
	now := time.Now().UTC()
	switch to {
	case domain.TransactionStateHeld:
		t.HeldAt = &now
	case domain.TransactionStateSettled:
		t.SettledAt = &now
	case domain.TransactionStateRefunded, domain.TransactionStateFailed:
		t.RefundedAt = &now
	}
	return true, nil
}

func (r *inMemoryTransactionRepo) MarkReversed(ctx context.Context, tx pgx.Tx, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[id]
	if !ok || t.State != domain.TransactionStateSettled || t.ReversedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	t.ReversedAt = &now
	return true, nil
}

func (r *inMemoryTransactionRepo) ListInState(ctx context.Context, state domain.TransactionState, limit int) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Transaction
	for _, t := range r.transactions {
		if t.State == state {
			result = append(result, *t)
		}
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (r *inMemoryTransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Transaction
	for _, t := range r.transactions {
		if t.WalletID != params.WalletID {
			continue
		}
		if params.State != nil && t.State != *params.State {
			continue
		}
		result = append(result, *t)
	}
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.Transaction{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu     sync.RWMutex
	events []domain.AuditEvent
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) InsertBatch(ctx context.Context, events []domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *inMemoryAuditRepo) Query(ctx context.Context, params ports.AuditQueryParams) ([]domain.AuditEvent, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.AuditEvent
	for _, e := range r.events {
		if params.TransactionID != "" && e.TransactionID != params.TransactionID {
			continue
		}
		if params.WalletID != nil && (e.WalletID == nil || *e.WalletID != *params.WalletID) {
			continue
		}
		if params.Action != nil && e.Action != *params.Action {
			continue
		}
		result = append(result, e)
	}
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.AuditEvent{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

// --- In-Memory Caregiver Repo ---

type inMemoryCaregiverRepo struct {
	mu         sync.RWMutex
	caregivers map[uuid.UUID]*domain.Caregiver
}

func newInMemoryCaregiverRepo() *inMemoryCaregiverRepo {
	return &inMemoryCaregiverRepo{caregivers: make(map[uuid.UUID]*domain.Caregiver)}
}

func (r *inMemoryCaregiverRepo) Create(ctx context.Context, c *domain.Caregiver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.caregivers {
		if existing.Username == c.Username {
			return fmt.Errorf("username already exists")
		}
	}
	cp := *c
	r.caregivers[c.ID] = &cp
	return nil
}

func (r *inMemoryCaregiverRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Caregiver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caregivers[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *inMemoryCaregiverRepo) GetByUsername(ctx context.Context, username string) (*domain.Caregiver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.caregivers {
		if c.Username == username {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
