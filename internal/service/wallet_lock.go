package service

import (
	"context"
	"sync"
	"time"

	"trust-ledger/pkg/apperror"

	"github.com/google/uuid"
)

// WalletLocker serializes money-moving operations per wallet within
// this process. Row locks in PostgreSQL remain the cross-process
// guarantee; this keeps concurrent requests for one wallet from piling
// up on the database and gives waiters a bounded timeout.
type WalletLocker struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// NewWalletLocker creates an empty locker.
func NewWalletLocker() *WalletLocker {
	return &WalletLocker{slots: make(map[uuid.UUID]*lockSlot)}
}

// Acquire takes the per-wallet lock, waiting at most timeout. The
// returned release function must be called exactly once. Waiters that
// time out receive a retryable lock timeout error.
func (l *WalletLocker) Acquire(ctx context.Context, walletID uuid.UUID, timeout time.Duration) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[walletID]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[walletID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case slot.ch <- struct{}{}:
		return func() {
			<-slot.ch
			l.put(walletID, slot)
		}, nil
	case <-timer.C:
		l.put(walletID, slot)
		return nil, apperror.ErrLockTimeout(context.DeadlineExceeded)
	case <-ctx.Done():
		l.put(walletID, slot)
		return nil, apperror.ErrLockTimeout(ctx.Err())
	}
}

func (l *WalletLocker) put(walletID uuid.UUID, slot *lockSlot) {
	l.mu.Lock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, walletID)
	}
	l.mu.Unlock()
}
