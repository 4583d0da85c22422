// Package counter provides the shared shard-index counter.
//
// A counter is a lock-protected integer reachable by every shard writer
// that draws from the same sequence. Claim is the only operation writers
// perform: lock, read, increment, write, unlock. The backing Value decides
// the deployment topology:
//   - Local: goroutines in one process
//   - File: processes on one host (flock on a counter file)
//   - Redis: processes on any host sharing a Redis instance
package counter

import (
	"context"
	"errors"
	"fmt"
)

// ErrLockTimeout is returned when a lock cannot be acquired before the
// context is done.
var ErrLockTimeout = errors.New("counter lock not acquired")

// Value is a shared integer guarded by a mutual-exclusion lock.
//
// Get and Set are only valid while the caller holds the lock.
type Value interface {
	// Lock blocks until the lock is held or ctx is done.
	Lock(ctx context.Context) error
	// Unlock releases the lock.
	Unlock(ctx context.Context) error
	// Get returns the current value.
	Get(ctx context.Context) (int64, error)
	// Set stores v.
	Set(ctx context.Context, v int64) error
}

// Claim returns the next shard index from v and advances it by one.
//
// Every value from the counter's initial value onward is returned exactly
// once across all concurrent callers sharing v. The lock, if taken, is
// always released. A failed Lock, Get or Set leaves the counter unchanged;
// an Unlock failure after a successful Set returns an error but the index
// is consumed and never handed out again.
func Claim(ctx context.Context, v Value) (idx int64, err error) {
	if err := v.Lock(ctx); err != nil {
		return 0, fmt.Errorf("claim shard index: %w", err)
	}
	defer func() {
		if uerr := v.Unlock(ctx); uerr != nil && err == nil {
			err = fmt.Errorf("claim shard index: unlock: %w", uerr)
		}
	}()

	cur, err := v.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("claim shard index: read: %w", err)
	}
	if err := v.Set(ctx, cur+1); err != nil {
		return 0, fmt.Errorf("claim shard index: write: %w", err)
	}
	return cur, nil
}
