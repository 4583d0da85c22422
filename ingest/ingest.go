// Package ingest fans samples out to a pool of shard writers.
//
// Every worker owns one shard.Writer; all writers draw shard indices from
// the same counter, so the workers together produce one gap-free,
// collision-free sequence of shards.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/justapithecus/shardkit/log"
	"github.com/justapithecus/shardkit/metrics"
	"github.com/justapithecus/shardkit/precision"
	"github.com/justapithecus/shardkit/shard"
	"github.com/justapithecus/shardkit/types"
)

// DefaultWorkers is the worker count when Config.Workers is unset.
const DefaultWorkers = 1

// Config configures a pipeline run.
type Config struct {
	// Workers is the number of shard writers (default 1).
	Workers int
	// Shard is the writer template. Counter is shared by all workers;
	// Logger is replaced per worker when WorkerLogger is set.
	Shard shard.Config
	// WorkerLogger returns the logger for worker i.
	WorkerLogger func(i int) *log.Logger
	// Logger receives pipeline-level entries (default: discard).
	Logger *log.Logger
	// Precision is the mixed-precision mode recorded for the run.
	Precision precision.Mode
}

// Report summarizes a pipeline run.
type Report struct {
	Records   int64             `json:"records" yaml:"records"`
	Bytes     int64             `json:"bytes" yaml:"bytes"`
	Workers   int               `json:"workers" yaml:"workers"`
	Duration  time.Duration     `json:"duration" yaml:"duration"`
	Precision precision.Mode    `json:"precision" yaml:"precision"`
	Shards    []types.ShardInfo `json:"shards" yaml:"shards"`
	Metrics   metrics.Snapshot  `json:"metrics" yaml:"metrics"`
}

// Run reads src to exhaustion and writes every sample through the worker
// pool. The first error stops the run; every writer is still closed, so
// each shard opened is finalized. The report covers the shards finished
// before the failure.
func Run(ctx context.Context, src Source, cfg Config) (*Report, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Shard.Counter == nil {
		return nil, errors.New("ingest: shard counter is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}

	exit := cfg.Precision.Enter(func(m precision.Mode, entering bool) {
		cfg.Logger.Debug("autocast", map[string]any{"dtype": m.DType, "entering": entering})
	})
	defer exit()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	samples := make(chan types.Sample, cfg.Workers)

	g.Go(func() error {
		defer close(samples)
		for {
			s, err := src.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("ingest: read: %w", err)
			}
			select {
			case samples <- s:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	var (
		mu     sync.Mutex
		shards []types.ShardInfo
		total  int64
	)
	for i := range cfg.Workers {
		wcfg := cfg.Shard
		if cfg.WorkerLogger != nil {
			wcfg.Logger = cfg.WorkerLogger(i)
		}

		g.Go(func() error {
			var w *shard.Writer
			err := shard.With(gctx, wcfg, func(sw *shard.Writer) error {
				w = sw
				for s := range samples {
					if err := gctx.Err(); err != nil {
						return err
					}
					if err := sw.Write(gctx, s); err != nil {
						return err
					}
				}
				return sw.Finish(gctx)
			})

			if w != nil {
				mu.Lock()
				shards = append(shards, w.Shards()...)
				total += w.Total()
				mu.Unlock()
			}
			if err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			return nil
		})
	}

	err := g.Wait()

	sort.Slice(shards, func(a, b int) bool { return shards[a].Index < shards[b].Index })
	report := &Report{
		Records:   total,
		Workers:   cfg.Workers,
		Duration:  time.Since(start),
		Precision: cfg.Precision,
		Shards:    shards,
		Metrics:   cfg.Shard.Metrics.Snapshot(),
	}
	for _, s := range shards {
		report.Bytes += s.Bytes
	}

	if err != nil {
		cfg.Logger.Error("ingest failed", map[string]any{"error": err.Error(), "records": total})
		return report, err
	}
	cfg.Logger.Info("ingest complete", map[string]any{
		"records":  total,
		"shards":   len(shards),
		"workers":  cfg.Workers,
		"duration": report.Duration.String(),
	})
	return report, nil
}
