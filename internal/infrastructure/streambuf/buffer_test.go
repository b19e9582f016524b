package streambuf

import "testing"

func TestFrameRoundTrip(t *testing.T) {
	b := New()
	b.Append([]byte{0, 0, 0, 0, 3, 'a', 'b', 'c'})

	it := b.Frames()
	if got := it.Remaining(); got != 1 {
		t.Fatalf("Remaining() = %d, want 1", got)
	}

	frame, ok := it.Next()
	if !ok {
		t.Fatalf("expected a frame")
	}
	if frame.Kind != 0 || string(frame.Body) != "abc" {
		t.Fatalf("got kind=%d body=%q", frame.Kind, frame.Body)
	}
	if it.Offset() != 8 {
		t.Fatalf("Offset() = %d, want 8", it.Offset())
	}

	b.Advance(it.Offset())
	if !b.IsEmpty() {
		t.Fatalf("expected buffer drained")
	}
}

func TestSplitDelivery(t *testing.T) {
	b := New()
	b.Append([]byte{0, 0, 0, 0, 5, 'H', 'e'})

	it := b.Frames()
	if _, ok := it.Next(); ok {
		t.Fatalf("expected incomplete frame to yield nothing")
	}
	if b.Len() != 7 {
		t.Fatalf("Len() = %d, want 7", b.Len())
	}

	b.Append([]byte{'l', 'l', 'o'})
	it = b.Frames()
	frame, ok := it.Next()
	if !ok || string(frame.Body) != "Hello" {
		t.Fatalf("got ok=%v body=%q", ok, frame.Body)
	}
	b.Advance(it.Offset())
	if b.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", b.Len())
	}
}

func TestFusedIteratorStaysExhausted(t *testing.T) {
	b := New()
	it := b.Frames()
	if _, ok := it.Next(); ok {
		t.Fatalf("expected empty buffer to yield nothing")
	}
	if _, ok := it.Next(); ok {
		t.Fatalf("expected fused iterator to keep yielding nothing")
	}
}

func TestExactRemainingCountMatchesYielded(t *testing.T) {
	b := New()
	b.Append([]byte{0, 0, 0, 0, 3, 'a', 'b', 'c'})
	b.Append([]byte{0, 0, 0, 0, 2, 'x', 'y'})

	it := b.Frames()
	want := it.Remaining()
	got := 0
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		got++
	}
	if got != want {
		t.Fatalf("yielded %d frames, Remaining() reported %d", got, want)
	}
}

func TestAdvancePastEndPanics(t *testing.T) {
	b := New()
	b.Append([]byte("ab"))
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic advancing past buffer end")
		}
	}()
	b.Advance(10)
}
