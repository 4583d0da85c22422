//nolint:revive // types is a common Go package naming convention
package types

import "time"

// ShardInfo describes one finished shard file.
type ShardInfo struct {
	// Index is the shard number claimed from the shared counter.
	Index int64 `json:"index" yaml:"index"`
	// Path is the local filesystem path of the shard.
	Path string `json:"path" yaml:"path"`
	// Records is the number of samples written to the shard.
	Records int64 `json:"records" yaml:"records"`
	// Bytes is the encoded payload size reported by the archive writer.
	// Tar headers and padding are not included.
	Bytes int64 `json:"bytes" yaml:"bytes"`
	// FileBytes is the number of bytes that reached the file, after
	// tar framing and compression.
	FileBytes int64 `json:"file_bytes" yaml:"file_bytes"`
	// OpenedAt is when the shard file was created.
	OpenedAt time.Time `json:"opened_at" yaml:"opened_at"`
	// ClosedAt is when the shard was finalized.
	ClosedAt time.Time `json:"closed_at" yaml:"closed_at"`
}
