// Package shard writes samples into a numbered sequence of bounded shard
// files.
//
// A Writer owns at most one open shard at a time. It rotates to a new shard
// when the open one has reached MaxCount records or MaxSize bytes, claiming
// the new shard's index from a counter shared with every other Writer of
// the same dataset. Index uniqueness, and with it filename uniqueness,
// rests entirely on the counter.
//
// Capacity is checked before each write, so the last record of a shard
// may take it past MaxSize. MaxSize is a soft cap.
//
// A Writer is not safe for concurrent use. Run one Writer per producer and
// share only the counter.
package shard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/justapithecus/shardkit/archive"
	"github.com/justapithecus/shardkit/counter"
	"github.com/justapithecus/shardkit/iox"
	"github.com/justapithecus/shardkit/log"
	"github.com/justapithecus/shardkit/metrics"
	"github.com/justapithecus/shardkit/types"
)

// Default shard capacity.
const (
	DefaultMaxCount int64 = 100_000
	DefaultMaxSize  int64 = 3_000_000_000
)

var (
	// ErrClosed is returned by Write after Close. Using a closed Writer is
	// a caller error; the Writer does not recover from it.
	ErrClosed = errors.New("shard writer closed")

	// ErrBadPattern is returned when the filename pattern does not format
	// cleanly with a single integer.
	ErrBadPattern = errors.New("bad shard filename pattern")
)

// ArchiveWriter encodes samples into one shard stream.
type ArchiveWriter interface {
	// Write encodes s and returns the number of bytes it wrote.
	Write(s types.Sample) (int64, error)
	// Close flushes and closes the shard stream.
	Close() error
}

// OpenFunc wraps a freshly created shard file in an ArchiveWriter.
// The ArchiveWriter takes ownership of w.
type OpenFunc func(path string, w io.WriteCloser) (ArchiveWriter, error)

// Publisher receives every shard after it has been closed.
type Publisher interface {
	Publish(ctx context.Context, info types.ShardInfo) error
}

// Publishers calls each Publisher in order and stops at the first error,
// so later publishers only see shards the earlier ones accepted.
type Publishers []Publisher

// Publish implements Publisher.
func (ps Publishers) Publish(ctx context.Context, info types.ShardInfo) error {
	for _, p := range ps {
		if err := p.Publish(ctx, info); err != nil {
			return err
		}
	}
	return nil
}

// Config configures a Writer.
type Config struct {
	// Pattern is a fmt format with one integer verb, e.g. "out/shard-%06d.tar".
	Pattern string
	// Counter is the shared shard index counter (required).
	Counter counter.Value
	// MaxCount is the record limit per shard (default 100,000).
	MaxCount int64
	// MaxSize is the byte limit per shard (default 3e9).
	MaxSize int64
	// Archive is passed through to archive.NewWriter. An empty compression
	// is inferred from each shard path.
	Archive archive.Options
	// Open overrides the archive writer. Archive is ignored when set.
	Open OpenFunc
	// Logger receives shard open/close entries (default: discard).
	Logger *log.Logger
	// Metrics is optional.
	Metrics *metrics.Collector
	// Publisher is optional.
	Publisher Publisher
}

// Writer writes samples into rotating shard files.
type Writer struct {
	pattern  string
	counter  counter.Value
	maxCount int64
	maxSize  int64
	open     OpenFunc
	logger   *log.Logger
	metrics  *metrics.Collector
	pub      Publisher
	now      func() time.Time

	// open shard, nil when none
	aw       ArchiveWriter
	file     *iox.CountingWriteCloser
	shard    int64
	path     string
	openedAt time.Time

	count  int64 // records in the open shard
	size   int64 // bytes in the open shard
	total  int64 // records over the Writer's lifetime
	shards []types.ShardInfo
	closed bool
}

// New creates a Writer and opens its first shard.
// A malformed Pattern fails here, at the first rotation.
func New(ctx context.Context, cfg Config) (*Writer, error) {
	if cfg.Counter == nil {
		return nil, errors.New("shard writer requires a counter")
	}
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = DefaultMaxCount
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.Open == nil {
		cfg.Open = archiveOpener(cfg.Archive)
	}

	w := &Writer{
		pattern:  cfg.Pattern,
		counter:  cfg.Counter,
		maxCount: cfg.MaxCount,
		maxSize:  cfg.MaxSize,
		open:     cfg.Open,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		pub:      cfg.Publisher,
		now:      time.Now,
		shard:    -1,
	}
	if err := w.rotate(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// With creates a Writer, runs fn with it and closes it exactly once,
// whether fn returns normally, returns an error or panics. A panic is
// re-raised after the Writer is closed.
func With(ctx context.Context, cfg Config, fn func(*Writer) error) (err error) {
	w, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		cerr := w.Close()
		if err == nil {
			err = cerr
		}
	}()
	return fn(w)
}

func archiveOpener(opts archive.Options) OpenFunc {
	return func(path string, w io.WriteCloser) (ArchiveWriter, error) {
		o := opts
		if o.Compression == archive.CompressionNone {
			o.Compression = archive.CompressionForPath(path)
		}
		return archive.NewWriter(w, o)
	}
}

// FormatPattern formats pattern with a shard index.
func FormatPattern(pattern string, idx int64) (string, error) {
	name := fmt.Sprintf(pattern, idx)
	if strings.Contains(name, "%!") {
		return "", fmt.Errorf("%w %q: formats index %d as %q", ErrBadPattern, pattern, idx, name)
	}
	return name, nil
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
}

// rotate finishes the open shard and opens the next one.
func (w *Writer) rotate(ctx context.Context) error {
	if err := w.Finish(ctx); err != nil {
		return err
	}

	idx, err := counter.Claim(ctx, w.counter)
	if err != nil {
		return err
	}
	path, err := FormatPattern(w.pattern, idx)
	if err != nil {
		return err
	}

	f, err := createFile(path)
	if err != nil {
		return fmt.Errorf("open shard %s: %w", path, err)
	}
	file := iox.NewCountingWriteCloser(f)
	aw, err := w.open(path, file)
	if err != nil {
		iox.DiscardClose(f)
		return fmt.Errorf("open shard %s: %w", path, err)
	}

	w.aw, w.file = aw, file
	w.shard, w.path = idx, path
	w.openedAt = w.now()
	w.count, w.size = 0, 0

	w.metrics.IncShardOpened()
	w.logger.Info("shard opened", map[string]any{
		"path":  path,
		"shard": idx,
	})
	return nil
}

// Write appends one sample, rotating first if the open shard is full.
// An error leaves the Writer in an undefined state; callers should stop
// writing and Close it.
func (w *Writer) Write(ctx context.Context, s types.Sample) error {
	if w.closed {
		return ErrClosed
	}
	if w.aw == nil || w.count >= w.maxCount || w.size >= w.maxSize {
		if err := w.rotate(ctx); err != nil {
			return err
		}
	}

	n, err := w.aw.Write(s)
	if err != nil {
		w.metrics.IncWriteFailure()
		return fmt.Errorf("write to shard %s: %w", w.path, err)
	}
	w.count++
	w.size += n
	w.total++
	w.metrics.AddRecords(1, n)
	return nil
}

// Finish closes the open shard, if any, and hands it to the Publisher.
// Calling it with no shard open is a no-op. The shared counter is not
// touched.
func (w *Writer) Finish(ctx context.Context) error {
	if w.aw == nil {
		return nil
	}
	aw := w.aw
	w.aw = nil

	closeErr := aw.Close()
	info := types.ShardInfo{
		Index:     w.shard,
		Path:      w.path,
		Records:   w.count,
		Bytes:     w.size,
		FileBytes: w.file.Count(),
		OpenedAt:  w.openedAt,
		ClosedAt:  w.now(),
	}
	w.file = nil
	if closeErr != nil {
		return fmt.Errorf("close shard %s: %w", w.path, closeErr)
	}

	w.shards = append(w.shards, info)
	w.metrics.IncShardClosed()
	w.logger.Info("shard closed", map[string]any{
		"path":       info.Path,
		"shard":      info.Index,
		"records":    info.Records,
		"bytes":      info.Bytes,
		"file_bytes": info.FileBytes,
	})

	if w.pub != nil {
		if err := w.pub.Publish(ctx, info); err != nil {
			return fmt.Errorf("publish shard %s: %w", info.Path, err)
		}
	}
	return nil
}

// Close finishes the open shard and retires the Writer. Close is
// idempotent; any other use after Close is a caller error.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	err := w.Finish(context.Background())
	w.closed = true
	w.shard, w.path = -1, ""
	w.count, w.size = 0, 0
	return err
}

// Total returns the number of samples written over the Writer's lifetime.
func (w *Writer) Total() int64 { return w.total }

// Count returns the number of samples in the open shard.
func (w *Writer) Count() int64 { return w.count }

// Size returns the bytes written to the open shard.
func (w *Writer) Size() int64 { return w.size }

// Shard returns the index of the last opened shard, or -1 after Close.
func (w *Writer) Shard() int64 { return w.shard }

// Path returns the path of the last opened shard.
func (w *Writer) Path() string { return w.path }

// Shards returns the shards finished so far, in order.
func (w *Writer) Shards() []types.ShardInfo {
	out := make([]types.ShardInfo, len(w.shards))
	copy(out, w.shards)
	return out
}

// Verify Writer implements io.Closer.
var _ io.Closer = (*Writer)(nil)
