package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents a shardkit.yaml configuration file.
// All values are optional and act as defaults for shardkit write flags.
// CLI flags always override config values.
type Config struct {
	Pattern   string        `yaml:"pattern"`
	MaxCount  int64         `yaml:"max_count"`
	MaxSize   int64         `yaml:"max_size"`
	Workers   int           `yaml:"workers"`
	Precision string        `yaml:"precision"`
	Archive   ArchiveConfig `yaml:"archive"`
	Counter   CounterConfig `yaml:"counter"`
	Storage   StorageConfig `yaml:"storage"`
	Notify    NotifyConfig  `yaml:"notify"`
}

// ArchiveConfig holds tar entry defaults from the config file.
type ArchiveConfig struct {
	Compression string   `yaml:"compression"`
	User        string   `yaml:"user"`
	Group       string   `yaml:"group"`
	Mode        FileMode `yaml:"mode"`
	KeepMeta    bool     `yaml:"keep_meta"`
	Raw         bool     `yaml:"raw"`
}

// CounterConfig selects the shared shard counter.
type CounterConfig struct {
	// Backend is local, file or redis.
	Backend string   `yaml:"backend"`
	Path    string   `yaml:"path"`
	URL     string   `yaml:"url"`
	Key     string   `yaml:"key"`
	Initial int64    `yaml:"initial"`
	LockTTL Duration `yaml:"lock_ttl"`
}

// StorageConfig holds shard publication defaults from the config file.
// An empty Backend disables publication.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Dataset     string `yaml:"dataset"`
	Source      string `yaml:"source"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
	RemoveLocal bool   `yaml:"remove_local"`
}

// NotifyConfig announces closed shards to a downstream system.
// An empty Type disables notification.
type NotifyConfig struct {
	// Type is redis or webhook.
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel"`
	Headers map[string]string `yaml:"headers"`
	Timeout Duration          `yaml:"timeout"`
	Retries *int              `yaml:"retries"`
}

// Counter backends.
const (
	CounterLocal = "local"
	CounterFile  = "file"
	CounterRedis = "redis"
)

// Storage backends.
const (
	StorageFS = "fs"
	StorageS3 = "s3"
)

// Notify adapter types.
const (
	NotifyRedis   = "redis"
	NotifyWebhook = "webhook"
)

// Validate checks enumerated values and required companions.
// Zero values are accepted; defaults are applied by the caller.
func (c *Config) Validate() error {
	if c.MaxCount < 0 {
		return fmt.Errorf("max_count must be non-negative, got %d", c.MaxCount)
	}
	if c.MaxSize < 0 {
		return fmt.Errorf("max_size must be non-negative, got %d", c.MaxSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}

	switch c.Counter.Backend {
	case "", CounterLocal:
	case CounterFile:
		if c.Counter.Path == "" {
			return fmt.Errorf("counter.path is required for the file backend")
		}
	case CounterRedis:
		if c.Counter.URL == "" {
			return fmt.Errorf("counter.url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown counter backend %q (want local, file or redis)", c.Counter.Backend)
	}

	switch c.Storage.Backend {
	case "":
	case StorageFS, StorageS3:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend)
		}
		if c.Storage.Dataset == "" {
			return fmt.Errorf("storage.dataset is required when storage is enabled")
		}
	default:
		return fmt.Errorf("unknown storage backend %q (want fs or s3)", c.Storage.Backend)
	}

	switch c.Notify.Type {
	case "":
	case NotifyRedis, NotifyWebhook:
		if c.Notify.URL == "" {
			return fmt.Errorf("notify.url is required for the %s adapter", c.Notify.Type)
		}
	default:
		return fmt.Errorf("unknown notify type %q (want redis or webhook)", c.Notify.Type)
	}
	if c.Notify.Retries != nil && *c.Notify.Retries < 0 {
		return fmt.Errorf("notify.retries must be non-negative, got %d", *c.Notify.Retries)
	}
	return nil
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// FileMode parses an octal permission string such as "0444" or "644".
type FileMode struct {
	os.FileMode
}

// UnmarshalYAML parses the mode as an octal string.
func (m *FileMode) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil || v > 0o7777 {
		return fmt.Errorf("invalid file mode %q: want octal like 0444", s)
	}
	m.FileMode = os.FileMode(v)
	return nil
}
