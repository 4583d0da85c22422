package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/justapithecus/shardkit/archive"
	"github.com/justapithecus/shardkit/types"
)

// Options controls how much of a shard inspect reports.
type Options struct {
	// Limit caps the number of sample summaries (0 = all).
	Limit int
	// Files includes the raw tar entry listing.
	Files bool
}

// InspectShard reads the shard at path and summarizes its samples.
func InspectShard(path string, opts Options) (*InspectShardResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shard: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat shard: %w", err)
	}

	c := archive.CompressionForPath(path)
	resp := &InspectShardResponse{
		Path:        path,
		Compression: compressionName(c),
		FileBytes:   info.Size(),
		Items:       []SampleSummary{},
	}

	fields := map[string]struct{}{}
	err = eachSample(f, c, func(s types.Sample, n int64) {
		summary := summarize(s)
		resp.Samples++
		resp.Bytes += summary.Bytes
		for _, name := range summary.Fields {
			fields[name] = struct{}{}
		}
		if opts.Limit == 0 || len(resp.Items) < opts.Limit {
			resp.Items = append(resp.Items, summary)
		}
		resp.Entries = n
	})
	if err != nil {
		return nil, err
	}

	resp.Fields = sortedKeys(fields)

	if opts.Files {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind shard: %w", err)
		}
		if resp.Files, err = archive.ListEntries(f, c); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// VerifyShards reads every shard to the end and counts its contents.
// A shard that fails to read is reported in its row; it does not stop
// the remaining shards from being checked.
func VerifyShards(paths []string) *ShardStats {
	stats := &ShardStats{Items: make([]ShardStat, 0, len(paths))}
	for _, p := range paths {
		row := verifyShard(p)
		stats.Shards++
		if !row.OK {
			stats.Failed++
		}
		stats.Samples += row.Samples
		stats.Entries += row.Entries
		stats.Bytes += row.Bytes
		stats.Items = append(stats.Items, row)
	}
	return stats
}

func verifyShard(path string) ShardStat {
	row := ShardStat{Path: path}

	f, err := os.Open(path)
	if err != nil {
		row.Error = err.Error()
		return row
	}
	defer f.Close()

	err = eachSample(f, archive.CompressionForPath(path), func(s types.Sample, n int64) {
		row.Samples++
		row.Bytes += summarize(s).Bytes
		row.Entries = n
	})
	if err != nil {
		row.Error = err.Error()
		return row
	}
	row.OK = true
	return row
}

// eachSample calls fn with every sample and the entry count so far.
func eachSample(src io.Reader, c archive.Compression, fn func(types.Sample, int64)) error {
	r, err := archive.NewReader(src, c)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		s, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fn(s, r.Entries())
	}
}

func summarize(s types.Sample) SampleSummary {
	summary := SampleSummary{Key: s.Key()}
	for name, v := range s {
		if name == types.KeyField {
			continue
		}
		summary.Fields = append(summary.Fields, name)
		if b, ok := v.([]byte); ok {
			summary.Bytes += int64(len(b))
		}
	}
	sort.Strings(summary.Fields)
	return summary
}

func compressionName(c archive.Compression) string {
	if c == archive.CompressionNone {
		return "none"
	}
	return string(c)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
