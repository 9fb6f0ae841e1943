package shardbuilder

import (
	"errors"
	"sync"
	"time"
)

// ErrIoTransient marks a retryable cache-file I/O failure (partial
// read/write, disk-full-recoverable) that survived cfg.IoRetryAttempts
// retries with backoff inside the same lock window (spec §7 kind 1).
var ErrIoTransient = errors.New("shardbuilder: transient i/o error")

// ErrContention marks a lock acquisition that timed out after
// cfg.LockTimeout (spec §7 kind 4). Append and Merge both return it; the
// indexer's periodic write_cache_under caller defers to its next pass,
// while flush_cache and merge callers propagate it.
var ErrContention = errors.New("shardbuilder: lock acquisition timed out")

// acquireLock locks lock, failing after timeout elapses instead of
// blocking forever. A non-positive timeout blocks indefinitely, matching
// the pre-timeout behavior.
func acquireLock(lock *sync.Mutex, timeout time.Duration) bool {
	if timeout <= 0 {
		lock.Lock()
		return true
	}
	deadline := time.Now().Add(timeout)
	for {
		if lock.TryLock() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

// withRetry calls fn up to attempts times with backoff between tries,
// returning the last error if every attempt fails.
func withRetry(attempts int, backoff time.Duration, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 && backoff > 0 {
			time.Sleep(backoff)
		}
	}
	return err
}
