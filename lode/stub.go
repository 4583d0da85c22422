package lode

import (
	"context"
	"sync"

	"github.com/justapithecus/shardkit/types"
)

// StubPublisher records Publish calls for testing.
type StubPublisher struct {
	mu     sync.Mutex
	Shards []types.ShardInfo
	Err    error
}

// NewStubPublisher creates a new stub publisher.
func NewStubPublisher() *StubPublisher {
	return &StubPublisher{}
}

// Publish records the call and returns Err.
func (p *StubPublisher) Publish(_ context.Context, info types.ShardInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Shards = append(p.Shards, info)
	return p.Err
}

// Published returns a copy of the recorded shards.
func (p *StubPublisher) Published() []types.ShardInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.ShardInfo, len(p.Shards))
	copy(out, p.Shards)
	return out
}
