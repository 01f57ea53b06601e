package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletLocker_AcquireAndRelease(t *testing.T) {
	locker := NewWalletLocker()
	walletID := uuid.New()

	release, err := locker.Acquire(context.Background(), walletID, time.Second)
	require.NoError(t, err)
	release()

	// Lock is free again.
	release, err = locker.Acquire(context.Background(), walletID, time.Second)
	require.NoError(t, err)
	release()
}

func TestWalletLocker_SecondWaiterTimesOut(t *testing.T) {
	locker := NewWalletLocker()
	walletID := uuid.New()

	release, err := locker.Acquire(context.Background(), walletID, time.Second)
	require.NoError(t, err)
	defer release()

	_, err = locker.Acquire(context.Background(), walletID, 20*time.Millisecond)
	assertAppError(t, err, "SYS_002")
}

func TestWalletLocker_DifferentWalletsIndependent(t *testing.T) {
	locker := NewWalletLocker()

	release1, err := locker.Acquire(context.Background(), uuid.New(), time.Second)
	require.NoError(t, err)
	defer release1()

	release2, err := locker.Acquire(context.Background(), uuid.New(), 20*time.Millisecond)
	require.NoError(t, err)
	defer release2()
}

func TestWalletLocker_ContextCancellation(t *testing.T) {
	locker := NewWalletLocker()
	walletID := uuid.New()

	release, err := locker.Acquire(context.Background(), walletID, time.Second)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = locker.Acquire(ctx, walletID, time.Minute)
	assertAppError(t, err, "SYS_002")
}

func TestWalletLocker_Serializes(t *testing.T) {
	locker := NewWalletLocker()
	walletID := uuid.New()

	const workers = 20
	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), walletID, 5*time.Second)
			if err != nil {
				return
			}
			defer release()
			// Unsynchronized increment: the lock is the only guard.
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestWalletLocker_SlotsAreReclaimed(t *testing.T) {
	locker := NewWalletLocker()
	walletID := uuid.New()

	release, err := locker.Acquire(context.Background(), walletID, time.Second)
	require.NoError(t, err)
	release()

	locker.mu.Lock()
	defer locker.mu.Unlock()
	assert.Empty(t, locker.slots, "released slots should not accumulate")
}
