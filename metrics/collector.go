// Package metrics provides per-run shard writing metrics.
//
// The Collector accumulates counters shared by every shard writer of a run.
// It is a leaf package with no internal dependencies.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Shards
	ShardsOpened int64 `json:"shards_opened" yaml:"shards_opened"`
	ShardsClosed int64 `json:"shards_closed" yaml:"shards_closed"`

	// Records
	RecordsWritten int64 `json:"records_written" yaml:"records_written"`
	BytesWritten   int64 `json:"bytes_written" yaml:"bytes_written"`
	WriteFailures  int64 `json:"write_failures" yaml:"write_failures"`

	// Publication
	PublishSuccess int64 `json:"publish_success" yaml:"publish_success"`
	PublishFailure int64 `json:"publish_failure" yaml:"publish_failure"`

	// Dimensions (informational, set at construction)
	CounterBackend string `json:"counter_backend" yaml:"counter_backend"`
	StorageBackend string `json:"storage_backend" yaml:"storage_backend"`
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	shardsOpened int64
	shardsClosed int64

	recordsWritten int64
	bytesWritten   int64
	writeFailures  int64

	publishSuccess int64
	publishFailure int64

	counterBackend string
	storageBackend string
}

// NewCollector creates a Collector with dimension labels.
// storageBackend is empty when shards are not published.
func NewCollector(counterBackend, storageBackend string) *Collector {
	return &Collector{
		counterBackend: counterBackend,
		storageBackend: storageBackend,
	}
}

// --- Shards ---

// IncShardOpened records a shard file being opened.
func (c *Collector) IncShardOpened() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.shardsOpened++
	c.mu.Unlock()
}

// IncShardClosed records a shard being finalized.
func (c *Collector) IncShardClosed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.shardsClosed++
	c.mu.Unlock()
}

// --- Records ---

// AddRecords records n successfully written samples totalling bytes.
func (c *Collector) AddRecords(n, bytes int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.recordsWritten += n
	c.bytesWritten += bytes
	c.mu.Unlock()
}

// IncWriteFailure records a sample write that failed.
func (c *Collector) IncWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.writeFailures++
	c.mu.Unlock()
}

// --- Publication ---
// Counted per shard, not per byte.

// IncPublishSuccess records a shard published to storage.
func (c *Collector) IncPublishSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.publishSuccess++
	c.mu.Unlock()
}

// IncPublishFailure records a failed shard publication.
func (c *Collector) IncPublishFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.publishFailure++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		ShardsOpened:   c.shardsOpened,
		ShardsClosed:   c.shardsClosed,
		RecordsWritten: c.recordsWritten,
		BytesWritten:   c.bytesWritten,
		WriteFailures:  c.writeFailures,
		PublishSuccess: c.publishSuccess,
		PublishFailure: c.publishFailure,
		CounterBackend: c.counterBackend,
		StorageBackend: c.storageBackend,
	}
}
