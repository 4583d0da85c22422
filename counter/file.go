package counter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// lockPollInterval is how often a blocked File.Lock retries the flock.
const lockPollInterval = 5 * time.Millisecond

// File is a counter shared by processes on one host.
//
// The value is stored as decimal text in the file at Path. Exclusion
// between processes uses an advisory flock on that file; goroutines
// sharing one *File are serialized by an in-process mutex first.
// A missing or empty file reads as the initial value.
type File struct {
	path    string
	initial int64

	mu sync.Mutex // held between Lock and Unlock
	f  *os.File
}

// NewFile returns a counter backed by the file at path.
func NewFile(path string, initial int64) *File {
	return &File{path: path, initial: initial}
}

// Path returns the counter file path.
func (c *File) Path() string { return c.path }

// Lock implements Value.
// flock(2) cannot be interrupted, so a contended lock is polled with
// LOCK_NB until it is acquired or ctx is done.
func (c *File) Lock(ctx context.Context) error {
	c.mu.Lock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("counter file %s: %w", c.path, err)
	}
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("counter file %s: %w", c.path, err)
	}

	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			c.f = f
			return nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			_ = f.Close()
			c.mu.Unlock()
			return fmt.Errorf("counter file %s: flock: %w", c.path, err)
		}

		select {
		case <-ctx.Done():
			_ = f.Close()
			c.mu.Unlock()
			return fmt.Errorf("%w: %s: %w", ErrLockTimeout, c.path, ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}
}

// Unlock implements Value.
func (c *File) Unlock(context.Context) error {
	f := c.f
	if f == nil {
		return errors.New("counter file: unlock without lock")
	}
	c.f = nil
	defer c.mu.Unlock()

	err := unix.Flock(int(f.Fd()), unix.LOCK_UN)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Get implements Value.
func (c *File) Get(context.Context) (int64, error) {
	if c.f == nil {
		return 0, errors.New("counter file: read without lock")
	}
	if _, err := c.f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	data, err := io.ReadAll(c.f)
	if err != nil {
		return 0, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return c.initial, nil
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter file %s: corrupt value %q: %w", c.path, text, err)
	}
	return v, nil
}

// Set implements Value.
func (c *File) Set(_ context.Context, v int64) error {
	if c.f == nil {
		return errors.New("counter file: write without lock")
	}
	if err := c.f.Truncate(0); err != nil {
		return err
	}
	_, err := c.f.WriteAt([]byte(strconv.FormatInt(v, 10)+"\n"), 0)
	return err
}

// Verify File implements Value.
var _ Value = (*File)(nil)
