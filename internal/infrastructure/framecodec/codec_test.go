package framecodec

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
)

func TestEncodeRoundTrip(t *testing.T) {
	frame, err := Encode(0, []byte("abc"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0, 0, 0, 0, 3, 'a', 'b', 'c'}
	if !bytes.Equal(frame, want) {
		t.Fatalf("got % x, want % x", frame, want)
	}
}

func TestEncodePayloadTooLarge(t *testing.T) {
	big := make([]byte, entity.MaxBodyBytes+1)
	if _, err := Encode(0, big); err != ErrPayloadTooLarge {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestEncodeFramedSkipsCompressionBelowThreshold(t *testing.T) {
	body := bytes.Repeat([]byte("a"), 100)
	frame, err := EncodeFramed(entity.FrameSubTypeData, body)
	if err != nil {
		t.Fatalf("EncodeFramed: %v", err)
	}
	if frame[0]&1 != 0 {
		t.Fatalf("expected no compression flag for small body")
	}
}

func TestEncodeFramedCompressesLargeCompressibleBody(t *testing.T) {
	body := bytes.Repeat([]byte("aaaaaaaaaa"), 1000) // 10000 bytes, highly compressible
	frame, err := EncodeFramed(entity.FrameSubTypeData, body)
	if err != nil {
		t.Fatalf("EncodeFramed: %v", err)
	}
	if frame[0]&1 != 1 {
		t.Fatalf("expected compression flag for large compressible body")
	}
}

func TestDecompressRejectsShortInput(t *testing.T) {
	for _, in := range [][]byte{{}, {0x1f, 0x8b, 0x08}, make([]byte, 19)} {
		if _, err := Decompress(in); err != ErrDecompressionRejected {
			t.Fatalf("expected rejection for %d-byte input, got %v", len(in), err)
		}
	}
}

func TestDecompressRejectsBadMagic(t *testing.T) {
	data := make([]byte, 20)
	data[0], data[1], data[2] = 0x00, 0x8b, 0x08
	if _, err := Decompress(data); err != ErrDecompressionRejected {
		t.Fatalf("expected rejection for bad magic, got %v", err)
	}
}

func TestDecompressRejectsOversizeISIZEBeforeAllocating(t *testing.T) {
	fake := []byte{0x1f, 0x8b, 0x08}
	fake = append(fake, make([]byte, 14)...)
	size2MB := uint32(2 * 1024 * 1024)
	sizeBytes := []byte{byte(size2MB), byte(size2MB >> 8), byte(size2MB >> 16), byte(size2MB >> 24)}
	fake = append(fake, sizeBytes...)
	if len(fake) != 21 {
		t.Fatalf("fixture length = %d, want 21", len(fake))
	}
	if _, err := Decompress(fake); err != ErrDecompressionRejected {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestDecompressRejectsMismatchedISIZE(t *testing.T) {
	original := []byte("Hello, GZIP!")
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, _ = w.Write(original)
	_ = w.Close()

	tampered := buf.Bytes()
	wrong := uint32(len(original)) + 1
	tampered[len(tampered)-4] = byte(wrong)
	tampered[len(tampered)-3] = byte(wrong >> 8)
	tampered[len(tampered)-2] = byte(wrong >> 16)
	tampered[len(tampered)-1] = byte(wrong >> 24)

	if _, err := Decompress(tampered); err != ErrDecompressionRejected {
		t.Fatalf("expected rejection for mismatched ISIZE, got %v", err)
	}
}

func TestDecompressValidGzip(t *testing.T) {
	original := []byte("Hello, GZIP!")
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, _ = w.Write(original)
	_ = w.Close()

	got, err := Decompress(buf.Bytes())
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Fatalf("got %q, want %q", got, original)
	}
}

func TestDecompressEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_ = w.Close()

	got, err := Decompress(buf.Bytes())
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d bytes, want 0", len(got))
	}
}
