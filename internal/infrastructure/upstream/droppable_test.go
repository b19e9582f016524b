package upstream

import (
	"bytes"
	"io"
	"testing"
)

type countingReadCloser struct {
	r         *bytes.Reader
	readCalls int
}

func (c *countingReadCloser) Read(p []byte) (int, error) {
	c.readCalls++
	return c.r.Read(p)
}

func (c *countingReadCloser) Close() error { return nil }

func TestDroppableStreamPassesThroughBeforeDrop(t *testing.T) {
	inner := &countingReadCloser{r: bytes.NewReader([]byte("hello"))}
	d := NewDroppableStream(inner)

	buf := make([]byte, 5)
	n, err := d.Read(buf)
	if err != nil || n != 5 || string(buf) != "hello" {
		t.Fatalf("got n=%d err=%v buf=%q", n, err, buf)
	}
}

func TestDroppableStreamReturnsEOFAfterDrop(t *testing.T) {
	inner := &countingReadCloser{r: bytes.NewReader([]byte("hello"))}
	d := NewDroppableStream(inner)
	d.Drop()

	buf := make([]byte, 5)
	n, err := d.Read(buf)
	if err != io.EOF || n != 0 {
		t.Fatalf("got n=%d err=%v, want 0, io.EOF", n, err)
	}
	if inner.readCalls != 0 {
		t.Fatalf("expected underlying source untouched after drop, got %d reads", inner.readCalls)
	}
}

func TestDroppableStreamDropIsIdempotent(t *testing.T) {
	inner := &countingReadCloser{r: bytes.NewReader([]byte("hello"))}
	d := NewDroppableStream(inner)
	d.Drop()
	d.Drop() // must not panic on double-close of the signal channel

	if !d.Dropped() {
		t.Fatalf("expected Dropped() true")
	}
}
