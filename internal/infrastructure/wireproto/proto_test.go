package wireproto

import "testing"

func TestVarintRoundTrip(t *testing.T) {
	w := NewWriter()
	w.Varint(1, 300)
	w.String(2, "hello")
	w.Bool(3, true)
	w.Double(4, 3.5)

	r := NewReader(w.Bytes())

	f, ok, err := r.Next()
	if err != nil || !ok || f.Number != 1 || f.Varint != 300 {
		t.Fatalf("field 1: ok=%v err=%v f=%+v", ok, err, f)
	}

	f, ok, err = r.Next()
	if err != nil || !ok || f.Number != 2 || f.String() != "hello" {
		t.Fatalf("field 2: ok=%v err=%v f=%+v", ok, err, f)
	}

	f, ok, err = r.Next()
	if err != nil || !ok || f.Number != 3 || !f.Bool() {
		t.Fatalf("field 3: ok=%v err=%v f=%+v", ok, err, f)
	}

	f, ok, err = r.Next()
	if err != nil || !ok || f.Number != 4 || f.Double() != 3.5 {
		t.Fatalf("field 4: ok=%v err=%v f=%+v", ok, err, f)
	}

	_, ok, err = r.Next()
	if err != nil || ok {
		t.Fatalf("expected end of message, got ok=%v err=%v", ok, err)
	}
}

func TestNestedMessage(t *testing.T) {
	inner := NewWriter()
	inner.String(1, "nested")

	outer := NewWriter()
	outer.Message(5, inner)

	r := NewReader(outer.Bytes())
	f, ok, err := r.Next()
	if err != nil || !ok || f.Number != 5 {
		t.Fatalf("outer field: ok=%v err=%v f=%+v", ok, err, f)
	}

	inR := NewReader(f.Raw)
	innerF, ok, err := inR.Next()
	if err != nil || !ok || innerF.String() != "nested" {
		t.Fatalf("inner field: ok=%v err=%v f=%+v", ok, err, innerF)
	}
}

func TestZeroByteMessageDecodesToNoFields(t *testing.T) {
	r := NewReader(nil)
	_, ok, err := r.Next()
	if err != nil || ok {
		t.Fatalf("expected no fields, got ok=%v err=%v", ok, err)
	}
}

func TestTruncatedMessageErrors(t *testing.T) {
	w := NewWriter()
	w.String(1, "hello")
	truncated := w.Bytes()[:len(w.Bytes())-2]

	r := NewReader(truncated)
	_, _, err := r.Next()
	if err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}
