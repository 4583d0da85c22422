// Package archive writes and reads samples as tar shards.
//
// Each sample becomes one tar entry per field, named <key>.<field>, with
// fields in sorted order so entries of a sample are contiguous. The shard
// writer treats this package as an opaque collaborator: Write reports
// the payload bytes it wrote and Close finalizes the stream.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/justapithecus/shardkit/types"
)

// ErrMissingKey is returned when a sample has no string __key__.
var ErrMissingKey = errors.New("sample has no __key__")

// ErrWriterClosed is returned by Write after Close.
var ErrWriterClosed = errors.New("archive writer closed")

// Defaults for tar entry headers.
const (
	DefaultUser  = "bigdata"
	DefaultGroup = "bigdata"
	DefaultMode  = 0o444
)

// Options configures a Writer. The zero value is usable.
type Options struct {
	// User and Group are the entry owner names (default "bigdata").
	User  string
	Group string
	// Mode is the entry permission bits (default 0444).
	Mode int64
	// MTime fixes the entry modification time. Zero means time of write.
	MTime time.Time
	// KeepMeta writes fields starting with "_" (except __key__).
	KeepMeta bool
	// Raw disables extension-based encoding; values must be []byte or string.
	Raw bool
	// Encoder overrides the field encoder. Ignored when Raw is set.
	Encoder Encoder
	// Compression selects the stream compression.
	Compression Compression
}

func (o Options) withDefaults() Options {
	if o.User == "" {
		o.User = DefaultUser
	}
	if o.Group == "" {
		o.Group = DefaultGroup
	}
	if o.Mode == 0 {
		o.Mode = DefaultMode
	}
	switch {
	case o.Raw:
		o.Encoder = RawEncoder
	case o.Encoder == nil:
		o.Encoder = EncodeField
	}
	return o
}

// Writer encodes samples into a tar stream.
// Not safe for concurrent use.
type Writer struct {
	opts Options

	out  io.WriteCloser // underlying stream, owned
	comp io.WriteCloser // compressor between tar and out, nil if none
	tw   *tar.Writer

	closed bool
	now    func() time.Time
}

// NewWriter starts a tar stream on out. The Writer takes ownership of out
// and closes it in Close.
func NewWriter(out io.WriteCloser, opts Options) (*Writer, error) {
	opts = opts.withDefaults()

	comp, err := compressWriter(out, opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}

	var dst io.Writer = out
	if comp != nil {
		dst = comp
	}
	return &Writer{
		opts: opts,
		out:  out,
		comp: comp,
		tw:   tar.NewWriter(dst),
		now:  time.Now,
	}, nil
}

type entry struct {
	name string
	data []byte
}

// Write appends one sample and returns the number of payload bytes
// written (sum of entry sizes; tar headers and padding excluded).
//
// All fields are encoded before anything reaches the stream, so an
// encoding error leaves the archive untouched.
func (w *Writer) Write(s types.Sample) (int64, error) {
	if w.closed {
		return 0, ErrWriterClosed
	}
	key := s.Key()
	if key == "" {
		return 0, ErrMissingKey
	}

	names := make([]string, 0, len(s))
	for name := range s {
		if name == types.KeyField {
			continue
		}
		if types.IsMetaField(name) && !w.opts.KeepMeta {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]entry, 0, len(names))
	for _, name := range names {
		data, err := w.opts.Encoder(name, s[name])
		if err != nil {
			return 0, fmt.Errorf("sample %s: %w", key, err)
		}
		entries = append(entries, entry{name: key + "." + name, data: data})
	}

	mtime := w.opts.MTime
	if mtime.IsZero() {
		mtime = w.now()
	}

	var total int64
	for _, e := range entries {
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     e.name,
			Size:     int64(len(e.data)),
			Mode:     w.opts.Mode,
			ModTime:  mtime,
			Uname:    w.opts.User,
			Gname:    w.opts.Group,
		}
		if err := w.tw.WriteHeader(hdr); err != nil {
			return total, fmt.Errorf("archive: write header %s: %w", e.name, err)
		}
		if _, err := w.tw.Write(e.data); err != nil {
			return total, fmt.Errorf("archive: write %s: %w", e.name, err)
		}
		total += hdr.Size
	}
	return total, nil
}

// Close finishes the tar stream, flushes the compressor and closes the
// underlying stream. The underlying stream is closed even when an earlier
// step fails; the first error is returned. Close is idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.tw.Close()
	if w.comp != nil {
		if cerr := w.comp.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := w.out.Close(); err == nil {
		err = cerr
	}
	return err
}
