// Package wireproto speaks the upstream vendor's protobuf wire format
// directly, field by field, without a generated .pb.go: no .proto schema
// for the vendor's request/response messages was available to this build,
// so there is nothing to run protoc against. It still builds on
// google.golang.org/protobuf's protowire package for the tag/varint/
// length-delimited primitives rather than reimplementing them. Fields are
// addressed by number; the numbers themselves are chosen by the callers
// (streamdecoder and upstream).
package wireproto

import (
	"errors"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// WireType is protobuf's own tag encoding of a field's payload shape.
type WireType = protowire.Type

const (
	WireVarint  = protowire.VarintType
	WireFixed64 = protowire.Fixed64Type
	WireBytes   = protowire.BytesType
	WireFixed32 = protowire.Fixed32Type
)

var ErrTruncated = errors.New("wireproto: truncated message")

// Writer builds a protobuf-wire-format message by appending fields in any
// order; protobuf does not require field ordering.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Bytes() []byte { return w.buf }

// Varint appends a field carrying an unsigned varint (also used for bool
// and enum fields in this codec's subset).
func (w *Writer) Varint(field int, v uint64) {
	w.buf = protowire.AppendTag(w.buf, protowire.Number(field), protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, v)
}

// Int64 appends a field carrying a signed integer using protobuf's plain
// (non zig-zag) int64 encoding.
func (w *Writer) Int64(field int, v int64) {
	w.Varint(field, uint64(v))
}

// Bool appends a boolean field.
func (w *Writer) Bool(field int, v bool) {
	if v {
		w.Varint(field, 1)
	} else {
		w.Varint(field, 0)
	}
}

// bytesField appends a length-delimited field.
func (w *Writer) bytesField(field int, v []byte) {
	w.buf = protowire.AppendTag(w.buf, protowire.Number(field), protowire.BytesType)
	w.buf = protowire.AppendBytes(w.buf, v)
}

// String appends a length-delimited UTF-8 field.
func (w *Writer) String(field int, v string) {
	w.buf = protowire.AppendTag(w.buf, protowire.Number(field), protowire.BytesType)
	w.buf = protowire.AppendString(w.buf, v)
}

// Message appends a nested message as a length-delimited field.
func (w *Writer) Message(field int, nested *Writer) {
	w.bytesField(field, nested.Bytes())
}

// Double appends an 8-byte IEEE754 field.
func (w *Writer) Double(field int, v float64) {
	w.buf = protowire.AppendTag(w.buf, protowire.Number(field), protowire.Fixed64Type)
	w.buf = protowire.AppendFixed64(w.buf, math.Float64bits(v))
}

// Field is one decoded (number, wire-type, raw-payload) triple.
type Field struct {
	Number int
	Wire   WireType
	Varint uint64
	Raw    []byte // populated for WireBytes; the length-delimited payload
}

// Reader iterates the top-level fields of a protobuf-wire-format message.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Next decodes the next field, or ok=false at end of message.
func (r *Reader) Next() (Field, bool, error) {
	if r.pos >= len(r.buf) {
		return Field{}, false, nil
	}

	num, wt, n := protowire.ConsumeTag(r.buf[r.pos:])
	if n < 0 {
		return Field{}, false, ErrTruncated
	}
	r.pos += n

	switch wt {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(r.buf[r.pos:])
		if n < 0 {
			return Field{}, false, ErrTruncated
		}
		r.pos += n
		return Field{Number: int(num), Wire: wt, Varint: v}, true, nil
	case protowire.BytesType:
		raw, n := protowire.ConsumeBytes(r.buf[r.pos:])
		if n < 0 {
			return Field{}, false, ErrTruncated
		}
		r.pos += n
		return Field{Number: int(num), Wire: wt, Raw: raw}, true, nil
	case protowire.Fixed64Type:
		v, n := protowire.ConsumeFixed64(r.buf[r.pos:])
		if n < 0 {
			return Field{}, false, ErrTruncated
		}
		r.pos += n
		return Field{Number: int(num), Wire: wt, Varint: v}, true, nil
	case protowire.Fixed32Type:
		v, n := protowire.ConsumeFixed32(r.buf[r.pos:])
		if n < 0 {
			return Field{}, false, ErrTruncated
		}
		r.pos += n
		return Field{Number: int(num), Wire: wt, Varint: uint64(v)}, true, nil
	default:
		return Field{}, false, ErrTruncated
	}
}

// String decodes a WireBytes field's raw payload as UTF-8.
func (f Field) String() string { return string(f.Raw) }

// Double decodes a WireFixed64 field as IEEE754.
func (f Field) Double() float64 { return math.Float64frombits(f.Varint) }

// Int64 decodes a varint field as a signed integer.
func (f Field) Int64() int64 { return int64(f.Varint) }

// Bool decodes a varint field as a boolean.
func (f Field) Bool() bool { return f.Varint != 0 }
