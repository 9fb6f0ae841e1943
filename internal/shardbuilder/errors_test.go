package shardbuilder

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexandria-search/engine/internal/record"
)

func TestAppendReturnsContentionWhenLockHeld(t *testing.T) {
	b, cfg, _ := newTestBuilder(t)
	cfg.LockTimeout = 10 * time.Millisecond
	b.Add(1, record.Page{Value: 1, Score: 1, Count: 1})

	lock := &sync.Mutex{}
	lock.Lock()
	defer lock.Unlock()

	err := b.Append(lock)
	require.ErrorIs(t, err, ErrContention)
}

func TestMergeReturnsContentionWhenLockHeld(t *testing.T) {
	b, cfg, _ := newTestBuilder(t)
	cfg.LockTimeout = 10 * time.Millisecond

	lock := &sync.Mutex{}
	lock.Lock()
	defer lock.Unlock()

	err := b.Merge(lock)
	require.ErrorIs(t, err, ErrContention)
}

func TestAppendSucceedsOnceLockIsReleased(t *testing.T) {
	b, _, _ := newTestBuilder(t)
	b.Add(1, record.Page{Value: 1, Score: 1, Count: 1})

	lock := &sync.Mutex{}
	lock.Lock()
	go func() {
		time.Sleep(5 * time.Millisecond)
		lock.Unlock()
	}()

	// Small()'s 50ms LockTimeout outlasts the 5ms hold, so Append gets
	// the lock once it is released.
	require.NoError(t, b.Append(lock))
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := withRetry(3, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return ErrIoTransient
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestWithRetryGivesUpAfterExhaustingAttempts(t *testing.T) {
	attempts := 0
	err := withRetry(3, time.Millisecond, func() error {
		attempts++
		return ErrIoTransient
	})
	require.ErrorIs(t, err, ErrIoTransient)
	require.Equal(t, 3, attempts)
}

func TestAcquireLockBlocksIndefinitelyWithZeroTimeout(t *testing.T) {
	lock := &sync.Mutex{}
	lock.Lock()
	go func() {
		time.Sleep(5 * time.Millisecond)
		lock.Unlock()
	}()
	require.True(t, acquireLock(lock, 0))
}
