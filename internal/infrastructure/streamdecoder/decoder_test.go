package streamdecoder

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/wireproto"
)

func frameBytes(kind uint8, body []byte) []byte {
	n := len(body)
	header := []byte{kind, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	return append(header, body...)
}

func TestDecodeEmptyChunkStalls(t *testing.T) {
	d := New(nil)
	msgs, stalled := d.Decode(nil)
	if !stalled || msgs != nil {
		t.Fatalf("got msgs=%v stalled=%v, want stalled with no messages", msgs, stalled)
	}
	if d.StalledCount() != 1 {
		t.Fatalf("StalledCount() = %d, want 1", d.StalledCount())
	}
}

func TestDecodeShortChunkStalls(t *testing.T) {
	d := New(nil)
	_, stalled := d.Decode([]byte{0, 0})
	if !stalled {
		t.Fatalf("expected a 2-byte chunk to stall")
	}
}

func TestDecodeTextFrame(t *testing.T) {
	w := wireproto.NewWriter()
	w.String(fieldText, "hello")

	d := New(nil)
	msgs, stalled := d.Decode(frameBytes(0, w.Bytes()))
	if stalled {
		t.Fatalf("did not expect stall")
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	text, ok := msgs[0].(entity.Text)
	if !ok || text.Text != "hello" {
		t.Fatalf("got %+v", msgs[0])
	}
}

func TestDecodeControlStreamEnd(t *testing.T) {
	d := New(nil)
	msgs, _ := d.Decode(frameBytes(2, []byte{0, 0}))
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if _, ok := msgs[0].(entity.StreamEnd); !ok {
		t.Fatalf("got %+v, want StreamEnd", msgs[0])
	}
}

func TestDecodeControlError(t *testing.T) {
	w := wireproto.NewWriter()
	w.String(fieldErrorKind, string(entity.ErrTimeout))
	w.String(fieldErrorDetail, "gateway timed out")

	d := New(nil)
	msgs, _ := d.Decode(frameBytes(2, w.Bytes()))
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	errMsg, ok := msgs[0].(entity.Error)
	if !ok || errMsg.Kind != entity.ErrTimeout || errMsg.Detail != "gateway timed out" {
		t.Fatalf("got %+v", msgs[0])
	}
}

func TestDecodeCompressedDataFrame(t *testing.T) {
	w := wireproto.NewWriter()
	w.String(fieldText, "compressed body")

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write(w.Bytes())
	zw.Close()

	d := New(nil)
	// kind 1: data frame with bit 0 set, so the body is gunzipped first.
	msgs, _ := d.Decode(frameBytes(1, gz.Bytes()))
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
}

func TestDecodeUnknownKindSkipped(t *testing.T) {
	d := New(nil)
	msgs, stalled := d.Decode(frameBytes(4, []byte{1, 2, 3}))
	if stalled {
		t.Fatalf("did not expect stall")
	}
	if len(msgs) != 0 {
		t.Fatalf("got %d messages, want 0 for reserved kind", len(msgs))
	}
}

func TestDecodeSplitAcrossChunks(t *testing.T) {
	w := wireproto.NewWriter()
	w.String(fieldText, "split")
	full := frameBytes(0, w.Bytes())

	d := New(nil)
	msgs, stalled := d.Decode(full[:4])
	if !stalled || len(msgs) != 0 {
		t.Fatalf("got msgs=%v stalled=%v for partial header", msgs, stalled)
	}

	msgs, stalled = d.Decode(full[4:])
	if stalled {
		t.Fatalf("did not expect stall once the frame completes")
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
}

func TestDecodeMultipleFramesInOneChunk(t *testing.T) {
	w1 := wireproto.NewWriter()
	w1.String(fieldText, "a")
	w2 := wireproto.NewWriter()
	w2.String(fieldText, "b")

	chunk := append(frameBytes(0, w1.Bytes()), frameBytes(0, w2.Bytes())...)

	d := New(nil)
	msgs, stalled := d.Decode(chunk)
	if stalled {
		t.Fatalf("did not expect stall")
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
}

func TestDecodeToolCallSequence(t *testing.T) {
	start := wireproto.NewWriter()
	start.String(fieldToolCallID, "call-1")
	start.String(fieldToolCallName, "search")

	delta := wireproto.NewWriter()
	delta.String(fieldToolCallID, "call-1")
	delta.String(fieldToolCallArgs, `{"q":`)

	end := wireproto.NewWriter()
	end.String(fieldToolCallID, "call-1")

	body := wireproto.NewWriter()
	body.Message(fieldToolCallStart, start)
	body.Message(fieldToolCallDelta, delta)
	body.Message(fieldToolCallEnd, end)

	d := New(nil)
	msgs, _ := d.Decode(frameBytes(0, body.Bytes()))
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if s, ok := msgs[0].(entity.ToolCallStart); !ok || s.ID != "call-1" || s.Name != "search" {
		t.Fatalf("start: %+v", msgs[0])
	}
	if dl, ok := msgs[1].(entity.ToolCallDelta); !ok || dl.ArgsChunk != `{"q":` {
		t.Fatalf("delta: %+v", msgs[1])
	}
	if e, ok := msgs[2].(entity.ToolCallEnd); !ok || e.ID != "call-1" {
		t.Fatalf("end: %+v", msgs[2])
	}
}
