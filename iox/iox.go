// Package iox provides I/O helpers for resource cleanup and byte accounting.
package iox

import "io"

// DiscardClose closes c and discards the error.
// Use in defer statements where close errors are unactionable:
//
//	defer iox.DiscardClose(f)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c.
// Designed for t.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(w))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// CountingWriteCloser counts bytes passed through to the wrapped writer.
// Not safe for concurrent use.
type CountingWriteCloser struct {
	w io.WriteCloser
	n int64
}

// NewCountingWriteCloser wraps w.
func NewCountingWriteCloser(w io.WriteCloser) *CountingWriteCloser {
	return &CountingWriteCloser{w: w}
}

// Write implements io.Writer.
func (c *CountingWriteCloser) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Close closes the wrapped writer.
func (c *CountingWriteCloser) Close() error { return c.w.Close() }

// Count returns the number of bytes written so far.
func (c *CountingWriteCloser) Count() int64 { return c.n }
