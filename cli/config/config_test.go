package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `pattern: out/shard-%06d.tar.zst
max_count: 1000
max_size: 1048576
workers: 4
precision: amp_bf16

archive:
  compression: zstd
  user: trainer
  group: ml
  mode: "0640"
  keep_meta: true
  raw: true

counter:
  backend: redis
  url: redis://localhost:6379/0
  key: jobs:42:shards
  initial: 100
  lock_ttl: 5s

storage:
  backend: s3
  path: my-bucket/prefix
  dataset: laion
  source: crawl-a
  region: us-east-1
  endpoint: https://example.com
  s3_path_style: true
  remove_local: true

notify:
  type: webhook
  url: https://hooks.example.com/shards
  headers:
    Authorization: Bearer abc
  timeout: 3s
  retries: 0
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Top-level fields
	assertEqual(t, "pattern", cfg.Pattern, "out/shard-%06d.tar.zst")
	assertEqual(t, "precision", cfg.Precision, "amp_bf16")
	if cfg.MaxCount != 1000 {
		t.Errorf("expected max_count=1000, got %d", cfg.MaxCount)
	}
	if cfg.MaxSize != 1048576 {
		t.Errorf("expected max_size=1048576, got %d", cfg.MaxSize)
	}
	if cfg.Workers != 4 {
		t.Errorf("expected workers=4, got %d", cfg.Workers)
	}

	// Archive
	assertEqual(t, "archive.compression", cfg.Archive.Compression, "zstd")
	assertEqual(t, "archive.user", cfg.Archive.User, "trainer")
	assertEqual(t, "archive.group", cfg.Archive.Group, "ml")
	if cfg.Archive.Mode.FileMode != 0o640 {
		t.Errorf("expected archive.mode=0640, got %o", cfg.Archive.Mode.FileMode)
	}
	if !cfg.Archive.KeepMeta || !cfg.Archive.Raw {
		t.Error("expected archive.keep_meta and archive.raw to be true")
	}

	// Counter
	assertEqual(t, "counter.backend", cfg.Counter.Backend, CounterRedis)
	assertEqual(t, "counter.url", cfg.Counter.URL, "redis://localhost:6379/0")
	assertEqual(t, "counter.key", cfg.Counter.Key, "jobs:42:shards")
	if cfg.Counter.Initial != 100 {
		t.Errorf("expected counter.initial=100, got %d", cfg.Counter.Initial)
	}
	if cfg.Counter.LockTTL.Duration != 5*time.Second {
		t.Errorf("expected counter.lock_ttl=5s, got %v", cfg.Counter.LockTTL.Duration)
	}

	// Storage
	assertEqual(t, "storage.backend", cfg.Storage.Backend, StorageS3)
	assertEqual(t, "storage.path", cfg.Storage.Path, "my-bucket/prefix")
	assertEqual(t, "storage.dataset", cfg.Storage.Dataset, "laion")
	assertEqual(t, "storage.source", cfg.Storage.Source, "crawl-a")
	assertEqual(t, "storage.region", cfg.Storage.Region, "us-east-1")
	assertEqual(t, "storage.endpoint", cfg.Storage.Endpoint, "https://example.com")
	if !cfg.Storage.S3PathStyle {
		t.Error("expected storage.s3_path_style=true")
	}
	if !cfg.Storage.RemoveLocal {
		t.Error("expected storage.remove_local=true")
	}

	// Notify
	assertEqual(t, "notify.type", cfg.Notify.Type, NotifyWebhook)
	assertEqual(t, "notify.url", cfg.Notify.URL, "https://hooks.example.com/shards")
	assertEqual(t, "notify.headers.Authorization", cfg.Notify.Headers["Authorization"], "Bearer abc")
	if cfg.Notify.Timeout.Duration != 3*time.Second {
		t.Errorf("expected notify.timeout=3s, got %v", cfg.Notify.Timeout.Duration)
	}
	// explicit zero is kept distinct from unset
	if cfg.Notify.Retries == nil || *cfg.Notify.Retries != 0 {
		t.Errorf("expected notify.retries=0, got %v", cfg.Notify.Retries)
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pattern != "" {
		t.Errorf("expected empty pattern, got %q", cfg.Pattern)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/shardkit.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_REDIS_URL", "redis://cache:6379/1")

	yaml := `counter:
  backend: redis
  url: ${TEST_REDIS_URL}
  key: ${UNSET_KEY_12345:-default:counter}
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "counter.url", cfg.Counter.URL, "redis://cache:6379/1")
	assertEqual(t, "counter.key", cfg.Counter.Key, "default:counter")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	yaml := `pattern: shard-%d.tar
bogus_key: should_fail
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_UnknownNestedKeyRejected(t *testing.T) {
	yaml := `counter:
  backend: file
  path: ./counter
  unknown_field: bad
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown nested key, got nil")
	}
	if !strings.Contains(err.Error(), "unknown_field") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_WhitespaceOnlyConfig(t *testing.T) {
	path := writeTemp(t, "   \n  \n  \n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed for whitespace-only config: %v", err)
	}
	if cfg.Workers != 0 {
		t.Errorf("expected zero workers, got %d", cfg.Workers)
	}
}

func TestLoad_CommentsOnlyConfig(t *testing.T) {
	path := writeTemp(t, "# This is a comment\n# Another comment\n")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load failed for comments-only config: %v", err)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"negative max_count", "max_count: -1", "max_count"},
		{"negative workers", "workers: -2", "workers"},
		{"unknown counter", "counter:\n  backend: etcd", "unknown counter backend"},
		{"file without path", "counter:\n  backend: file", "counter.path"},
		{"redis without url", "counter:\n  backend: redis", "counter.url"},
		{"unknown storage", "storage:\n  backend: gcs", "unknown storage backend"},
		{"storage without path", "storage:\n  backend: fs\n  dataset: d", "storage.path"},
		{"storage without dataset", "storage:\n  backend: fs\n  path: ./out", "storage.dataset"},
		{"unknown notify", "notify:\n  type: kafka", "unknown notify type"},
		{"notify without url", "notify:\n  type: redis", "notify.url"},
		{"negative notify retries", "notify:\n  retries: -1", "notify.retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should mention %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestDuration_InvalidFormat(t *testing.T) {
	yaml := `counter:
  lock_ttl: not-a-duration
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error should mention invalid duration, got: %v", err)
	}
}

func TestDuration_EmptyIsZero(t *testing.T) {
	yaml := `counter:
  lock_ttl: ""
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Counter.LockTTL.Duration != 0 {
		t.Errorf("expected zero duration, got %v", cfg.Counter.LockTTL.Duration)
	}
}

func TestFileMode(t *testing.T) {
	tests := []struct {
		in      string
		want    os.FileMode
		wantErr bool
	}{
		{`"0444"`, 0o444, false},
		{`"644"`, 0o644, false},
		{`""`, 0, false},
		{`"999"`, 0, true},
		{`"rw-r--r--"`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cfg, err := Load(writeTemp(t, "archive:\n  mode: "+tt.in))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.Archive.Mode.FileMode != tt.want {
				t.Errorf("mode = %o, want %o", cfg.Archive.Mode.FileMode, tt.want)
			}
		})
	}
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "shardkit.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
