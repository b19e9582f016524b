// Package streambuf implements the per-session incremental byte buffer
// that the stream decoder (C3) drains complete frames from as bytes
// arrive off the wire.
package streambuf

import "github.com/ngoclaw/upstreamgw/internal/domain/entity"

// Buffer is an append-only byte region with a read cursor. It is owned by
// exactly one session task and is not safe for concurrent use.
type Buffer struct {
	inner  []byte
	cursor int
}

// New returns an empty buffer.
func New() *Buffer { return &Buffer{} }

// Len reports the number of unread bytes.
func (b *Buffer) Len() int { return len(b.inner) - b.cursor }

// IsEmpty reports whether every appended byte has been consumed.
func (b *Buffer) IsEmpty() bool { return b.Len() == 0 }

// Append copies data to the tail, reclaiming the backing array first if
// the buffer is currently fully drained (amortized reclamation).
func (b *Buffer) Append(data []byte) {
	b.tryReclaim()
	b.inner = append(b.inner, data...)
}

func (b *Buffer) tryReclaim() {
	if b.IsEmpty() {
		b.inner = b.inner[:0]
		b.cursor = 0
	}
}

// AsReadSlice returns the unread suffix of the buffer. The returned slice
// aliases the buffer's backing array and is only valid until the next
// Append or Advance.
func (b *Buffer) AsReadSlice() []byte { return b.inner[b.cursor:] }

// Advance moves the read cursor forward by n bytes. n must be no greater
// than the current unread length.
func (b *Buffer) Advance(n int) {
	if n > b.Len() {
		panic("streambuf: advance past buffer end")
	}
	b.cursor += n
}

// FrameIter yields complete frames from a byte slice without mutating the
// buffer; the caller advances the owning Buffer by Offset() once done.
type FrameIter struct {
	buf    []byte
	offset int
	done   bool
}

// Frames returns a fused iterator over every complete frame currently
// available in the buffer, starting from the read cursor.
func (b *Buffer) Frames() *FrameIter {
	return &FrameIter{buf: b.AsReadSlice()}
}

// Offset reports how many bytes have been consumed by completed Next calls.
func (it *FrameIter) Offset() int { return it.offset }

// Next returns the next complete frame, or ok=false if the remaining bytes
// don't form a complete frame. Once it returns false, every subsequent
// call also returns false (fused-iterator contract).
func (it *FrameIter) Next() (entity.Frame, bool) {
	if it.done {
		return entity.Frame{}, false
	}
	if it.offset+entity.FrameHeaderSize > len(it.buf) {
		it.done = true
		return entity.Frame{}, false
	}

	kind := it.buf[it.offset]
	bodyLen := int(be32(it.buf[it.offset+1 : it.offset+5]))

	if it.offset+entity.FrameHeaderSize+bodyLen > len(it.buf) {
		it.done = true
		return entity.Frame{}, false
	}

	start := it.offset + entity.FrameHeaderSize
	body := it.buf[start : start+bodyLen]
	it.offset = start + bodyLen

	return entity.Frame{Kind: kind, Body: body}, true
}

// Remaining pre-scans the buffer and returns the exact number of complete
// frames left to yield, without advancing the iterator.
func (it *FrameIter) Remaining() int {
	count := 0
	offset := it.offset
	for offset+entity.FrameHeaderSize <= len(it.buf) {
		bodyLen := int(be32(it.buf[offset+1 : offset+5]))
		if offset+entity.FrameHeaderSize+bodyLen > len(it.buf) {
			break
		}
		count++
		offset += entity.FrameHeaderSize + bodyLen
	}
	return count
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
