package upstream

import (
	"io"
	"sync"
)

// DroppableStream wraps an upstream response body so that cancelling a
// session cooperatively stops further reads without racing the
// in-flight read: once Drop is called, every subsequent Read returns EOF
// immediately and the underlying source is never touched again. Grounded
// on the original implementation's Notify-based DroppableStream, expressed
// here with a one-shot channel rather than a condition variable, since Go
// has no async task to suspend — Read blocks the owning goroutine directly.
type DroppableStream struct {
	inner   io.ReadCloser
	dropped chan struct{}
	once    sync.Once
}

// NewDroppableStream wraps inner with cooperative-cancel support.
func NewDroppableStream(inner io.ReadCloser) *DroppableStream {
	return &DroppableStream{
		inner:   inner,
		dropped: make(chan struct{}),
	}
}

// Drop signals cancellation. Safe to call more than once and from a
// different goroutine than the one calling Read.
func (d *DroppableStream) Drop() {
	d.once.Do(func() { close(d.dropped) })
}

// Read implements io.Reader. If Drop has been called, it returns
// io.EOF without reading from the underlying source.
func (d *DroppableStream) Read(p []byte) (int, error) {
	select {
	case <-d.dropped:
		return 0, io.EOF
	default:
	}
	return d.inner.Read(p)
}

// Close closes the underlying source. Safe to call after Drop.
func (d *DroppableStream) Close() error {
	return d.inner.Close()
}

// Dropped reports whether Drop has been called.
func (d *DroppableStream) Dropped() bool {
	select {
	case <-d.dropped:
		return true
	default:
		return false
	}
}
