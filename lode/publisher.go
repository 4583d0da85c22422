package lode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/shardkit/types"
)

// DeriveDay computes the partition day from the run start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// Config holds shard publication settings.
type Config struct {
	// Dataset is the dataset ID under datasets/ (required).
	Dataset string
	// Source is the partition key for the data origin (required).
	Source string
	// Day is the partition key derived from run start (YYYY-MM-DD UTC).
	Day string
	// RemoveLocal deletes the local shard file after a successful upload.
	RemoveLocal bool
}

// Validate checks that required partition keys are present.
func (c *Config) Validate() error {
	switch {
	case c.Dataset == "":
		return errors.New("publish: dataset is required")
	case c.Source == "":
		return errors.New("publish: source is required")
	case c.Day == "":
		return errors.New("publish: day is required")
	}
	return nil
}

// Publisher uploads finished shards to a Lode Store.
// Shards land at Hive-partitioned paths:
//
//	datasets/<dataset>/partitions/source=<s>/day=<d>/shards/<basename>
//
// Safe for concurrent use by several shard writers.
type Publisher struct {
	config Config

	storeFactory lode.StoreFactory
	storeOnce    sync.Once
	store        lode.Store
	storeErr     error
}

// NewFSPublisher creates a publisher onto filesystem storage rooted at root.
// root is created if it does not exist.
func NewFSPublisher(cfg Config, root string) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, WrapError("init", root, err)
	}
	return NewPublisherWithFactory(cfg, lode.NewFSFactory(root))
}

// NewPublisherWithFactory creates a publisher with a custom store factory.
// The store is created lazily on the first Publish.
func NewPublisherWithFactory(cfg Config, factory lode.StoreFactory) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Publisher{config: cfg, storeFactory: factory}, nil
}

// getOrCreateStore lazily initializes the Store from the factory.
func (p *Publisher) getOrCreateStore() (lode.Store, error) {
	p.storeOnce.Do(func() {
		p.store, p.storeErr = p.storeFactory()
	})
	return p.store, p.storeErr
}

// ShardPath returns the storage path for a local shard file.
func (p *Publisher) ShardPath(localPath string) string {
	return fmt.Sprintf("datasets/%s/partitions/source=%s/day=%s/shards/%s",
		p.config.Dataset,
		p.config.Source,
		p.config.Day,
		filepath.Base(localPath),
	)
}

// Publish uploads the shard file described by info.
func (p *Publisher) Publish(ctx context.Context, info types.ShardInfo) error {
	store, err := p.getOrCreateStore()
	if err != nil {
		return WrapError("init", p.config.Dataset, err)
	}

	f, err := os.Open(info.Path)
	if err != nil {
		return WrapError("open", info.Path, err)
	}
	defer func() { _ = f.Close() }()

	dst := p.ShardPath(info.Path)
	if err := store.Put(ctx, dst, f); err != nil {
		return WrapError("put", dst, err)
	}

	if p.config.RemoveLocal {
		if err := os.Remove(info.Path); err != nil {
			return WrapError("remove", info.Path, err)
		}
	}
	return nil
}
