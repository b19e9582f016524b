package middleware

import (
	"encoding/base64"
	"testing"
)

// wellFormedChecksum builds a syntactically valid 72-character checksum
// header value, mirroring the obfuscation the checksum package decodes.
func wellFormedChecksum(t *testing.T) string {
	t.Helper()

	var ts uint32 = 1700000000
	b := make([]byte, 6)
	b[2] = byte(ts >> 24)
	b[3] = byte(ts >> 16)
	b[4] = byte(ts >> 8)
	b[5] = byte(ts)
	b[0] = b[4]
	b[1] = b[5]

	var prev byte = 165
	for idx := range b {
		orig := b[idx]
		obf := (orig ^ prev) + byte(idx%256)
		b[idx] = obf
		prev = obf
	}

	prefix := base64.RawURLEncoding.EncodeToString(b)
	hex64 := "abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789"
	return prefix + hex64
}
