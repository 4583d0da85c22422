package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/justapithecus/shardkit/types"
)

// Entry describes one tar entry of a shard.
type Entry struct {
	Name    string    `json:"name" yaml:"name"`
	Size    int64     `json:"size" yaml:"size"`
	Mode    int64     `json:"mode" yaml:"mode"`
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
	User    string    `json:"user" yaml:"user"`
}

// Reader groups consecutive tar entries into samples.
// Field values of returned samples are raw []byte.
type Reader struct {
	tr      *tar.Reader
	release func()

	pending *tar.Header
	data    []byte
	entries int64
	done    bool
}

// NewReader reads a shard stream with the given compression.
func NewReader(r io.Reader, c Compression) (*Reader, error) {
	dr, release, err := decompressReader(r, c)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	return &Reader{tr: tar.NewReader(dr), release: release}, nil
}

// splitName splits an entry name into sample key and field:
// the key is the directory plus the basename up to its first ".".
func splitName(name string) (key, field string) {
	dir, base := path.Split(name)
	i := strings.IndexByte(base, '.')
	if i < 0 {
		return dir + base, ""
	}
	return dir + base[:i], base[i+1:]
}

// readEntry advances to the next regular file entry.
func (r *Reader) readEntry() error {
	for {
		hdr, err := r.tr.Next()
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(r.tr)
		if err != nil {
			return fmt.Errorf("archive: read %s: %w", hdr.Name, err)
		}
		r.pending, r.data = hdr, data
		r.entries++
		return nil
	}
}

// Next returns the next sample, or io.EOF after the last one.
func (r *Reader) Next() (types.Sample, error) {
	if r.pending == nil && !r.done {
		if err := r.readEntry(); err != nil {
			if errors.Is(err, io.EOF) {
				r.done = true
			} else {
				return nil, err
			}
		}
	}
	if r.pending == nil {
		return nil, io.EOF
	}

	key, field := splitName(r.pending.Name)
	sample := types.Sample{types.KeyField: key, field: r.data}
	r.pending, r.data = nil, nil

	for {
		if err := r.readEntry(); err != nil {
			if errors.Is(err, io.EOF) {
				r.done = true
				return sample, nil
			}
			return nil, err
		}
		k, f := splitName(r.pending.Name)
		if k != key {
			return sample, nil
		}
		sample[f] = r.data
		r.pending, r.data = nil, nil
	}
}

// Entries returns the number of file entries consumed so far.
func (r *Reader) Entries() int64 { return r.entries }

// Close releases decompressor resources. It does not close the source.
func (r *Reader) Close() error {
	r.release()
	return nil
}

// ListEntries returns the headers of every regular entry in a shard.
func ListEntries(src io.Reader, c Compression) ([]Entry, error) {
	dr, release, err := decompressReader(src, c)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	defer release()

	tr := tar.NewReader(dr)
	var out []Entry
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		out = append(out, Entry{
			Name:    hdr.Name,
			Size:    hdr.Size,
			Mode:    hdr.Mode,
			ModTime: hdr.ModTime,
			User:    hdr.Uname,
		})
	}
}
