package reader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/justapithecus/shardkit/archive"
	"github.com/justapithecus/shardkit/types"
)

// writeShard writes samples to a shard at path, compressing by suffix.
func writeShard(t *testing.T, path string, samples ...types.Sample) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w, err := archive.NewWriter(f, archive.Options{Compression: archive.CompressionForPath(path)})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for _, s := range samples {
		if _, err := w.Write(s); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func testSamples() []types.Sample {
	return []types.Sample{
		{types.KeyField: "000", "txt": "hello", "cls": 1},
		{types.KeyField: "001", "txt": "world", "cls": 2},
		{types.KeyField: "002", "jpg": []byte{0xff, 0xd8}, "json": map[string]any{"w": 2}},
	}
}

func TestInspectShard(t *testing.T) {
	for _, name := range []string{"shard.tar", "shard.tar.gz", "shard.tar.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			writeShard(t, path, testSamples()...)

			resp, err := InspectShard(path, Options{Files: true})
			if err != nil {
				t.Fatalf("InspectShard: %v", err)
			}
			if resp.Samples != 3 {
				t.Errorf("Samples = %d, want 3", resp.Samples)
			}
			if resp.Entries != 6 {
				t.Errorf("Entries = %d, want 6", resp.Entries)
			}
			if len(resp.Files) != 6 {
				t.Errorf("Files = %d, want 6", len(resp.Files))
			}
			if resp.FileBytes == 0 {
				t.Error("FileBytes should not be zero")
			}

			wantFields := []string{"cls", "jpg", "json", "txt"}
			if len(resp.Fields) != len(wantFields) {
				t.Fatalf("Fields = %v, want %v", resp.Fields, wantFields)
			}
			for i := range wantFields {
				if resp.Fields[i] != wantFields[i] {
					t.Errorf("Fields[%d] = %q, want %q", i, resp.Fields[i], wantFields[i])
				}
			}

			first := resp.Items[0]
			if first.Key != "000" {
				t.Errorf("first key = %q, want 000", first.Key)
			}
			// "1" + "hello"
			if first.Bytes != 6 {
				t.Errorf("first bytes = %d, want 6", first.Bytes)
			}
		})
	}
}

func TestInspectShard_Limit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shard.tar")
	writeShard(t, path, testSamples()...)

	resp, err := InspectShard(path, Options{Limit: 1})
	if err != nil {
		t.Fatalf("InspectShard: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Errorf("Items = %d, want 1", len(resp.Items))
	}
	if resp.Samples != 3 {
		t.Errorf("Samples = %d, want 3 regardless of limit", resp.Samples)
	}
	if resp.Files != nil {
		t.Error("Files should be omitted unless requested")
	}
	if resp.Compression != "none" {
		t.Errorf("Compression = %q, want none", resp.Compression)
	}
}

func TestInspectShard_Missing(t *testing.T) {
	if _, err := InspectShard(filepath.Join(t.TempDir(), "nope.tar"), Options{}); err == nil {
		t.Fatal("expected error for missing shard")
	}
}

func TestVerifyShards(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.tar")
	writeShard(t, good, testSamples()...)

	bad := filepath.Join(dir, "b.tar.gz")
	if err := os.WriteFile(bad, []byte("not gzip"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "c.tar")

	stats := VerifyShards([]string{good, bad, missing})

	if stats.Shards != 3 {
		t.Errorf("Shards = %d, want 3", stats.Shards)
	}
	if stats.Failed != 2 {
		t.Errorf("Failed = %d, want 2", stats.Failed)
	}
	if stats.Samples != 3 {
		t.Errorf("Samples = %d, want 3", stats.Samples)
	}
	if !stats.Items[0].OK || stats.Items[0].Entries != 6 {
		t.Errorf("good shard row = %+v", stats.Items[0])
	}
	for _, row := range stats.Items[1:] {
		if row.OK || row.Error == "" {
			t.Errorf("row %s should carry an error, got %+v", row.Path, row)
		}
	}
}
