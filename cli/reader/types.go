// Package reader provides the read side of the shardkit CLI.
//
// It opens finished shards and turns them into the response payloads
// rendered by inspect and verify. Nothing here writes to a shard.
package reader

import "github.com/justapithecus/shardkit/archive"

// SampleSummary describes one sample of a shard.
type SampleSummary struct {
	Key    string   `json:"key" yaml:"key"`
	Fields []string `json:"fields" yaml:"fields"`
	Bytes  int64    `json:"bytes" yaml:"bytes"`
}

// InspectShardResponse is the payload of inspect.
type InspectShardResponse struct {
	Path        string          `json:"path" yaml:"path"`
	Compression string          `json:"compression" yaml:"compression"`
	FileBytes   int64           `json:"file_bytes" yaml:"file_bytes"`
	Samples     int64           `json:"samples" yaml:"samples"`
	Entries     int64           `json:"entries" yaml:"entries"`
	Bytes       int64           `json:"bytes" yaml:"bytes"`
	Fields      []string        `json:"fields" yaml:"fields"`
	Items       []SampleSummary `json:"items" yaml:"items"`
	Files       []archive.Entry `json:"files,omitempty" yaml:"files,omitempty"`
}

// ShardStat is one row of verify.
type ShardStat struct {
	Path    string `json:"path" yaml:"path"`
	Samples int64  `json:"samples" yaml:"samples"`
	Entries int64  `json:"entries" yaml:"entries"`
	Bytes   int64  `json:"bytes" yaml:"bytes"`
	OK      bool   `json:"ok" yaml:"ok"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ShardStats is the payload of verify.
type ShardStats struct {
	Shards  int         `json:"shards" yaml:"shards"`
	Failed  int         `json:"failed" yaml:"failed"`
	Samples int64       `json:"samples" yaml:"samples"`
	Entries int64       `json:"entries" yaml:"entries"`
	Bytes   int64       `json:"bytes" yaml:"bytes"`
	Items   []ShardStat `json:"items" yaml:"items"`
}
