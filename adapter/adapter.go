// Package adapter notifies downstream systems when a shard is finished.
//
// Adapters are plugged into the shard writer through Notifier, which
// implements shard.Publisher. Consumers (trainers, indexers) subscribe
// to the events instead of polling the output directory.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/justapithecus/shardkit/shard"
	"github.com/justapithecus/shardkit/types"
)

// EventShardClosed is the event type of every ShardClosedEvent.
const EventShardClosed = "shard_closed"

// ShardClosedEvent is the payload published for each finished shard.
type ShardClosedEvent struct {
	EventType string `json:"event_type"` // always "shard_closed"
	Version   string `json:"version"`
	Index     int64  `json:"index"`
	Path      string `json:"path"`
	Records   int64  `json:"records"`
	Bytes     int64  `json:"bytes"`
	FileBytes int64  `json:"file_bytes"`
	Timestamp string `json:"timestamp"` // RFC 3339, shard close time
}

// NewShardClosedEvent builds the event for a finished shard.
func NewShardClosedEvent(info types.ShardInfo) *ShardClosedEvent {
	return &ShardClosedEvent{
		EventType: EventShardClosed,
		Version:   types.Version,
		Index:     info.Index,
		Path:      info.Path,
		Records:   info.Records,
		Bytes:     info.Bytes,
		FileBytes: info.FileBytes,
		Timestamp: info.ClosedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Adapter publishes shard events to a downstream system.
// Implementations must be safe for concurrent use by several writers.
type Adapter interface {
	// Publish sends one event. Must respect context cancellation.
	Publish(ctx context.Context, event *ShardClosedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Notifier adapts an Adapter to shard.Publisher.
type Notifier struct {
	adapter Adapter
}

// NewNotifier returns a shard.Publisher that announces every shard on a.
func NewNotifier(a Adapter) *Notifier {
	return &Notifier{adapter: a}
}

// Publish implements shard.Publisher.
func (n *Notifier) Publish(ctx context.Context, info types.ShardInfo) error {
	return n.adapter.Publish(ctx, NewShardClosedEvent(info))
}

// Close closes the underlying adapter.
func (n *Notifier) Close() error { return n.adapter.Close() }

var _ shard.Publisher = (*Notifier)(nil)

// Retry runs fn up to 1+retries times with exponential backoff starting
// at base. It stops early when fn's error is not retriable or ctx is done.
func Retry(ctx context.Context, retries int, base time.Duration, retriable func(error) bool, fn func(context.Context) error) error {
	var lastErr error
	attempts := 1 + retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context canceled: %w", err)
		}

		// no backoff before the first attempt
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * base
			select {
			case <-ctx.Done():
				return fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if retriable != nil && !retriable(lastErr) {
			return fmt.Errorf("non-retriable error: %w", lastErr)
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
