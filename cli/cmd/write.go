package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/shardkit/adapter"
	redisadapter "github.com/justapithecus/shardkit/adapter/redis"
	"github.com/justapithecus/shardkit/adapter/webhook"
	"github.com/justapithecus/shardkit/archive"
	"github.com/justapithecus/shardkit/cli/config"
	"github.com/justapithecus/shardkit/cli/render"
	"github.com/justapithecus/shardkit/counter"
	"github.com/justapithecus/shardkit/ingest"
	"github.com/justapithecus/shardkit/iox"
	"github.com/justapithecus/shardkit/lode"
	"github.com/justapithecus/shardkit/log"
	"github.com/justapithecus/shardkit/metrics"
	"github.com/justapithecus/shardkit/precision"
	"github.com/justapithecus/shardkit/shard"
	"github.com/justapithecus/shardkit/types"
)

// Exit codes.
const (
	exitSuccess = 0
	exitError   = 1
)

// defaultSource partitions published shards when no source is given.
const defaultSource = "default"

// WriteCommand returns the write command.
// Write is the only command that creates shards.
func WriteCommand() *cli.Command {
	return &cli.Command{
		Name:  "write",
		Usage: "Write JSONL samples into rotating tar shards",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to shardkit.yaml (flags override its values)",
			},
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "JSONL input file, - for stdin",
				Value:   "-",
			},
			// Shard flags
			&cli.StringFlag{
				Name:  "pattern",
				Usage: "Shard filename pattern with one integer verb, e.g. out/shard-%06d.tar",
			},
			&cli.Int64Flag{
				Name:  "max-count",
				Usage: "Max samples per shard",
				Value: shard.DefaultMaxCount,
			},
			&cli.Int64Flag{
				Name:  "max-size",
				Usage: "Max payload bytes per shard (soft cap)",
				Value: shard.DefaultMaxSize,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent shard writers sharing one counter",
				Value: ingest.DefaultWorkers,
			},
			&cli.StringFlag{
				Name:  "precision",
				Usage: "Mixed-precision mode recorded for the run: amp, amp_bf16, fp32",
				Value: "fp32",
			},
			// Archive flags
			&cli.StringFlag{
				Name:  "compression",
				Usage: "Shard compression: none, gzip, zstd (default: from pattern suffix)",
			},
			&cli.BoolFlag{
				Name:  "keep-meta",
				Usage: "Write fields starting with _",
			},
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "Disable extension-based encoding",
			},
			// Counter flags
			&cli.StringFlag{
				Name:  "counter",
				Usage: "Shard counter backend: local, file, redis",
				Value: config.CounterLocal,
			},
			&cli.StringFlag{
				Name:  "counter-path",
				Usage: "Counter file (file backend)",
			},
			&cli.StringFlag{
				Name:  "counter-url",
				Usage: "Redis URL (redis backend)",
			},
			&cli.StringFlag{
				Name:  "counter-key",
				Usage: "Redis key (redis backend)",
				Value: counter.DefaultRedisKey,
			},
			&cli.Int64Flag{
				Name:  "counter-initial",
				Usage: "First shard index when the counter does not exist yet",
			},
			&cli.DurationFlag{
				Name:  "counter-lock-ttl",
				Usage: "Redis lock expiry (redis backend)",
				Value: counter.DefaultLockTTL,
			},
			// Storage flags
			&cli.StringFlag{
				Name:  "storage-backend",
				Usage: "Publish closed shards to: fs or s3 (default: keep local only)",
			},
			&cli.StringFlag{
				Name:  "storage-path",
				Usage: "Storage path (fs: directory, s3: bucket/prefix)",
			},
			&cli.StringFlag{
				Name:  "storage-dataset",
				Usage: "Dataset ID for published shards",
			},
			&cli.StringFlag{
				Name:  "storage-source",
				Usage: "Source partition for published shards",
				Value: defaultSource,
			},
			&cli.StringFlag{
				Name:  "storage-region",
				Usage: "AWS region for S3 backend (optional, uses default chain)",
			},
			&cli.StringFlag{
				Name:  "storage-endpoint",
				Usage: "Custom S3 endpoint for S3-compatible providers",
			},
			&cli.BoolFlag{
				Name:  "storage-s3-path-style",
				Usage: "Force path-style S3 addressing",
			},
			&cli.BoolFlag{
				Name:  "storage-remove-local",
				Usage: "Delete local shard files after upload",
			},
			// Notify flags
			&cli.StringFlag{
				Name:  "notify-type",
				Usage: "Announce closed shards via: redis or webhook (default: off)",
			},
			&cli.StringFlag{
				Name:  "notify-url",
				Usage: "Redis URL or webhook endpoint",
			},
			&cli.StringFlag{
				Name:  "notify-channel",
				Usage: "Redis pub/sub channel",
				Value: redisadapter.DefaultChannel,
			},
			// Output flags
			FormatFlag,
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress the run report",
			},
		},
		Action: writeAction,
	}
}

// writeChoice is the fully resolved write configuration.
type writeChoice struct {
	input     string
	pattern   string
	maxCount  int64
	maxSize   int64
	workers   int
	precision string
	archive   archive.Options
	counter   config.CounterConfig
	storage   config.StorageConfig
	notify    config.NotifyConfig
}

// WriteResponse is the run report of the write command.
type WriteResponse struct {
	Records   int64             `json:"records" yaml:"records"`
	Shards    int               `json:"shards" yaml:"shards"`
	Bytes     int64             `json:"bytes" yaml:"bytes"`
	Workers   int               `json:"workers" yaml:"workers"`
	Duration  string            `json:"duration" yaml:"duration"`
	Precision precision.Mode    `json:"precision" yaml:"precision"`
	Metrics   metrics.Snapshot  `json:"metrics" yaml:"metrics"`
	Items     []types.ShardInfo `json:"items" yaml:"items"`
}

func writeAction(c *cli.Context) error {
	var fileCfg *config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cli.Exit(err.Error(), exitError)
		}
		fileCfg = loaded
	}

	choice, err := resolveWriteChoice(c, fileCfg)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.NewLogger(log.Meta{Component: "write"}).WithOutput(errWriter(c))
	defer func() { _ = logger.Sync() }()

	resp, err := runWrite(ctx, choice, logger, c.App.Reader)
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if c.Bool("quiet") {
		return nil
	}
	return r.Render(resp)
}

// resolveWriteChoice merges flags over the config file and validates.
func resolveWriteChoice(c *cli.Context, cfg *config.Config) (writeChoice, error) {
	archiveCfg := configVal(cfg, func(c *config.Config) config.ArchiveConfig { return c.Archive })
	counterCfg := configVal(cfg, func(c *config.Config) config.CounterConfig { return c.Counter })
	storageCfg := configVal(cfg, func(c *config.Config) config.StorageConfig { return c.Storage })
	notifyCfg := configVal(cfg, func(c *config.Config) config.NotifyConfig { return c.Notify })

	choice := writeChoice{
		input:     c.String("input"),
		pattern:   resolveString(c, "pattern", configVal(cfg, func(c *config.Config) string { return c.Pattern })),
		maxCount:  resolveInt64(c, "max-count", configVal(cfg, func(c *config.Config) int64 { return c.MaxCount })),
		maxSize:   resolveInt64(c, "max-size", configVal(cfg, func(c *config.Config) int64 { return c.MaxSize })),
		workers:   resolveInt(c, "workers", configVal(cfg, func(c *config.Config) int { return c.Workers })),
		precision: resolveString(c, "precision", configVal(cfg, func(c *config.Config) string { return c.Precision })),
		counter: config.CounterConfig{
			Backend: resolveString(c, "counter", counterCfg.Backend),
			Path:    resolveString(c, "counter-path", counterCfg.Path),
			URL:     resolveString(c, "counter-url", counterCfg.URL),
			Key:     resolveString(c, "counter-key", counterCfg.Key),
			Initial: resolveInt64(c, "counter-initial", counterCfg.Initial),
			LockTTL: config.Duration{Duration: resolveDuration(c, "counter-lock-ttl", counterCfg.LockTTL.Duration)},
		},
		storage: config.StorageConfig{
			Backend:     resolveString(c, "storage-backend", storageCfg.Backend),
			Path:        resolveString(c, "storage-path", storageCfg.Path),
			Dataset:     resolveString(c, "storage-dataset", storageCfg.Dataset),
			Source:      resolveString(c, "storage-source", storageCfg.Source),
			Region:      resolveString(c, "storage-region", storageCfg.Region),
			Endpoint:    resolveString(c, "storage-endpoint", storageCfg.Endpoint),
			S3PathStyle: resolveBool(c, "storage-s3-path-style", storageCfg.S3PathStyle),
			RemoveLocal: resolveBool(c, "storage-remove-local", storageCfg.RemoveLocal),
		},
		notify: config.NotifyConfig{
			Type:    resolveString(c, "notify-type", notifyCfg.Type),
			URL:     resolveString(c, "notify-url", notifyCfg.URL),
			Channel: resolveString(c, "notify-channel", notifyCfg.Channel),
			Headers: notifyCfg.Headers,
			Timeout: notifyCfg.Timeout,
			Retries: notifyCfg.Retries,
		},
	}

	if choice.pattern == "" {
		return choice, fmt.Errorf("--pattern is required (or set pattern in the config file)")
	}

	comp, err := archive.ParseCompression(resolveString(c, "compression", archiveCfg.Compression))
	if err != nil {
		return choice, fmt.Errorf("invalid --compression: %w", err)
	}
	choice.archive = archive.Options{
		User:        archiveCfg.User,
		Group:       archiveCfg.Group,
		Mode:        int64(archiveCfg.Mode.FileMode),
		KeepMeta:    resolveBool(c, "keep-meta", archiveCfg.KeepMeta),
		Raw:         resolveBool(c, "raw", archiveCfg.Raw),
		Compression: comp,
	}

	merged := config.Config{
		MaxCount: choice.maxCount,
		MaxSize:  choice.maxSize,
		Workers:  choice.workers,
		Counter:  choice.counter,
		Storage:  choice.storage,
		Notify:   choice.notify,
	}
	if err := merged.Validate(); err != nil {
		return choice, err
	}
	return choice, nil
}

// runWrite wires the counter, publisher and pipeline for one run.
func runWrite(ctx context.Context, choice writeChoice, logger *log.Logger, stdin io.Reader) (*WriteResponse, error) {
	start := time.Now()

	ctr, closeCounter, err := buildCounter(choice.counter)
	if err != nil {
		return nil, err
	}
	defer closeCounter()

	collector := metrics.NewCollector(backendName(choice.counter.Backend, config.CounterLocal), choice.storage.Backend)

	pub, err := buildPublisher(ctx, choice.storage, start, collector)
	if err != nil {
		return nil, err
	}

	notifier, err := buildNotifier(choice.notify)
	if err != nil {
		return nil, err
	}
	if notifier != nil {
		defer iox.DiscardClose(notifier)
		// announce only shards that storage accepted
		if pub != nil {
			pub = shard.Publishers{pub, notifier}
		} else {
			pub = notifier
		}
	}

	src, closeInput, err := openInput(choice.input, stdin)
	if err != nil {
		return nil, err
	}
	defer closeInput()

	mode := precision.Autocast(choice.precision)
	logger.Info("write starting", map[string]any{
		"pattern":   choice.pattern,
		"workers":   choice.workers,
		"counter":   collector.Snapshot().CounterBackend,
		"precision": mode.Name,
	})

	report, err := ingest.Run(ctx, ingest.NewJSONLSource(src), ingest.Config{
		Workers: choice.workers,
		Shard: shard.Config{
			Pattern:   choice.pattern,
			Counter:   ctr,
			MaxCount:  choice.maxCount,
			MaxSize:   choice.maxSize,
			Archive:   choice.archive,
			Metrics:   collector,
			Publisher: pub,
		},
		Logger: logger,
		WorkerLogger: func(i int) *log.Logger {
			return logger.With(map[string]any{"worker": i})
		},
		Precision: mode,
	})
	if err != nil {
		return nil, err
	}

	return &WriteResponse{
		Records:   report.Records,
		Shards:    len(report.Shards),
		Bytes:     report.Bytes,
		Workers:   report.Workers,
		Duration:  report.Duration.Round(time.Millisecond).String(),
		Precision: report.Precision,
		Metrics:   report.Metrics,
		Items:     report.Shards,
	}, nil
}

func buildCounter(cc config.CounterConfig) (counter.Value, func(), error) {
	noop := func() {}
	switch cc.Backend {
	case config.CounterLocal, "":
		return counter.NewLocal(cc.Initial), noop, nil
	case config.CounterFile:
		return counter.NewFile(cc.Path, cc.Initial), noop, nil
	case config.CounterRedis:
		rc, err := counter.NewRedis(counter.RedisConfig{
			URL:     cc.URL,
			Key:     cc.Key,
			Initial: cc.Initial,
			LockTTL: cc.LockTTL.Duration,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis counter: %w", err)
		}
		return rc, iox.CloseFunc(rc), nil
	default:
		return nil, nil, fmt.Errorf("unknown counter backend: %s (must be local, file, or redis)", cc.Backend)
	}
}

// buildPublisher returns nil when publication is disabled.
func buildPublisher(ctx context.Context, sc config.StorageConfig, start time.Time, collector *metrics.Collector) (shard.Publisher, error) {
	if sc.Backend == "" {
		return nil, nil
	}

	cfg := lode.Config{
		Dataset:     sc.Dataset,
		Source:      backendName(sc.Source, defaultSource),
		Day:         lode.DeriveDay(start),
		RemoveLocal: sc.RemoveLocal,
	}

	var (
		pub *lode.Publisher
		err error
	)
	switch sc.Backend {
	case config.StorageFS:
		pub, err = lode.NewFSPublisher(cfg, sc.Path)
	case config.StorageS3:
		bucket, prefix := lode.ParseS3Path(sc.Path)
		pub, err = lode.NewS3Publisher(ctx, cfg, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       sc.Region,
			Endpoint:     sc.Endpoint,
			UsePathStyle: sc.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (must be fs or s3)", sc.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}
	return lode.NewInstrumentedPublisher(pub, collector), nil
}

// buildNotifier returns nil when notification is disabled.
func buildNotifier(nc config.NotifyConfig) (*adapter.Notifier, error) {
	var (
		a   adapter.Adapter
		err error
	)
	switch nc.Type {
	case "":
		return nil, nil
	case config.NotifyRedis:
		retries := redisadapter.DefaultRetries
		if nc.Retries != nil {
			retries = *nc.Retries
		}
		a, err = redisadapter.New(redisadapter.Config{
			URL:     nc.URL,
			Channel: nc.Channel,
			Timeout: nc.Timeout.Duration,
			Retries: retries,
		})
	case config.NotifyWebhook:
		retries := webhook.DefaultRetries
		if nc.Retries != nil {
			retries = *nc.Retries
		}
		a, err = webhook.New(webhook.Config{
			URL:     nc.URL,
			Headers: nc.Headers,
			Timeout: nc.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown notify type: %s (must be redis or webhook)", nc.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}
	return adapter.NewNotifier(a), nil
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, iox.CloseFunc(f), nil
}

func backendName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func errWriter(c *cli.Context) io.Writer {
	if c.App != nil && c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}
