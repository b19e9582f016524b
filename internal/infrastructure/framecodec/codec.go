// Package framecodec implements the custom length-prefixed frame wire
// format used between the gateway and the upstream streaming endpoint:
// one kind byte, a big-endian uint32 length, then the body.
package framecodec

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"io"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
)

// ErrPayloadTooLarge is returned by Encode/EncodeFramed when the body
// exceeds entity.MaxBodyBytes before or after compression.
var ErrPayloadTooLarge = errors.New("framecodec: payload exceeds size limit")

// ErrDecompressionRejected covers both "not gzip" and "oversize" rejections
// from Decompress, matching entity.ErrDecompressionRejected /
// entity.ErrDecompressionOversize at the caller.
var ErrDecompressionRejected = errors.New("framecodec: decompression rejected")

// Encode emits kind, a big-endian length, then body verbatim.
func Encode(kind uint8, body []byte) ([]byte, error) {
	if len(body) > entity.MaxBodyBytes {
		return nil, ErrPayloadTooLarge
	}
	out := make([]byte, entity.FrameHeaderSize+len(body))
	out[0] = kind
	binary.BigEndian.PutUint32(out[1:5], uint32(len(body)))
	copy(out[5:], body)
	return out, nil
}

// EncodeFramed serializes a protobuf-wire body already produced by the
// caller (see wireproto), gzip-compresses it when that shrinks the frame,
// and emits the resulting frame. subType occupies the high bits of kind;
// the low bit is set by this function when compression was used.
func EncodeFramed(subType entity.FrameSubType, body []byte) ([]byte, error) {
	if len(body) > entity.MaxBodyBytes {
		return nil, ErrPayloadTooLarge
	}

	kind := uint8(subType) << 1
	onWire := body

	if len(body) > entity.CompressionThresholdBytes {
		compressed := compress(body)
		if len(compressed) < len(body) {
			onWire = compressed
			kind |= 1
		}
	}

	if len(onWire) > entity.MaxBodyBytes {
		return nil, ErrPayloadTooLarge
	}

	return Encode(kind, onWire)
}

// compress deflates data at level 6, pre-sizing the output buffer to the
// estimated 50%-compression-ratio-plus-header size.
func compress(data []byte) []byte {
	estimated := len(data)/2 + 18
	buf := bytes.NewBuffer(make([]byte, 0, estimated))
	w, _ := gzip.NewWriterLevel(buf, 6)
	_, _ = w.Write(data)
	_ = w.Close()
	return buf.Bytes()
}

// Decompress gzip-decompresses body, gated by the decompression-bomb
// defenses in §4.1: a minimum-length check, a magic-byte check, and a
// trailer ISIZE check — all performed before any output buffer is
// allocated for the actual inflate.
func Decompress(body []byte) ([]byte, error) {
	// Minimum valid gzip file: 10-byte header + 2-byte minimal deflate
	// stream + 8-byte trailer.
	if len(body) < 20 {
		return nil, ErrDecompressionRejected
	}
	if body[0] != 0x1f || body[1] != 0x8b || body[2] != 0x08 {
		return nil, ErrDecompressionRejected
	}

	isize := binary.LittleEndian.Uint32(body[len(body)-4:])
	if isize > entity.MaxBodyBytes {
		return nil, ErrDecompressionRejected
	}

	r, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, ErrDecompressionRejected
	}
	defer r.Close()

	out := make([]byte, 0, isize)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, ErrDecompressionRejected
	}
	if uint32(buf.Len()) != isize {
		return nil, ErrDecompressionRejected
	}
	return buf.Bytes(), nil
}
