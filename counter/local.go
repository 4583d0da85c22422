package counter

import (
	"context"
	"sync"
)

// Local is an in-process counter for writers running as goroutines.
type Local struct {
	mu    sync.Mutex
	value int64
}

// NewLocal returns a counter starting at initial.
func NewLocal(initial int64) *Local {
	return &Local{value: initial}
}

// Lock implements Value. The context is ignored: the critical section
// is a single read-increment-write.
func (l *Local) Lock(context.Context) error {
	l.mu.Lock()
	return nil
}

// Unlock implements Value.
func (l *Local) Unlock(context.Context) error {
	l.mu.Unlock()
	return nil
}

// Get implements Value.
func (l *Local) Get(context.Context) (int64, error) {
	return l.value, nil
}

// Set implements Value.
func (l *Local) Set(_ context.Context, v int64) error {
	l.value = v
	return nil
}

// Peek returns the next value to be claimed.
// It takes the lock itself, so it must not be called while holding it.
func (l *Local) Peek() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// Verify Local implements Value.
var _ Value = (*Local)(nil)
