// Package credential implements the dynamic-key blob: a CBOR-encoded,
// HMAC-bound upstream token plus per-request overrides that travels as the
// bearer token on client requests.
package credential

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
)

// Prefix is prepended to the base64 blob on the wire, distinguishing a
// dynamic key from a raw upstream token in the Authorization header.
const Prefix = "sk-ngoclaw-"

var (
	ErrInvalidFormat     = errors.New("credential: invalid format")
	ErrSignatureMismatch = errors.New("credential: signature mismatch")
	ErrMissingTokenInfo  = errors.New("credential: missing token_info")
	ErrMissingSecretHash = errors.New("credential: missing secret_hash")
)

var cborMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// Encode produces the canonical CBOR encoding of a credential record with
// fixed integer keys, used both for the wire blob and for computing the
// signature base of its inner token.
func Encode(record *entity.CredentialRecord) ([]byte, error) {
	return cborMode.Marshal(record)
}

// Decode strictly decodes a CBOR credential blob. Unknown keys are ignored
// by the underlying decoder; required nested fields are validated by the
// caller via Verify, since "required" here means required for a specific
// operation (verification), not for every possible partial record.
func Decode(blob []byte) (*entity.CredentialRecord, error) {
	var record entity.CredentialRecord
	if err := cbor.Unmarshal(blob, &record); err != nil {
		return nil, ErrInvalidFormat
	}
	return &record, nil
}

// canonicalInnerToken returns the canonical CBOR bytes of an InnerToken
// with its own Signature field zeroed, i.e. the bytes the signature itself
// is computed over.
func canonicalInnerToken(tok entity.InnerToken) ([]byte, error) {
	unsigned := tok
	unsigned.Signature = [32]byte{}
	return cborMode.Marshal(unsigned)
}

// Verify recomputes HMAC-SHA256(secretHash, canonical_bytes(inner_token))
// and compares it against the token's embedded signature in constant time,
// returning the decoded inner token on success.
func Verify(record *entity.CredentialRecord, secretHash [32]byte) (entity.InnerToken, error) {
	if record.TokenInfo == nil {
		return entity.InnerToken{}, ErrMissingTokenInfo
	}
	tok := record.TokenInfo.Token

	base, err := canonicalInnerToken(tok)
	if err != nil {
		return entity.InnerToken{}, err
	}

	mac := hmac.New(sha256.New, secretHash[:])
	mac.Write(base)
	expected := mac.Sum(nil)

	if subtle.ConstantTimeCompare(expected, tok.Signature[:]) != 1 {
		return entity.InnerToken{}, ErrSignatureMismatch
	}
	return tok, nil
}

// EncodeWire produces the full wire form: prefix + base64(blob) in the
// deployment's 64-character alphabet, no padding.
func EncodeWire(record *entity.CredentialRecord) (string, error) {
	blob, err := Encode(record)
	if err != nil {
		return "", err
	}
	return Prefix + toBase64(blob), nil
}

// DecodeWire strips the prefix and decodes the base64 blob, or reports
// ErrInvalidFormat if the string doesn't carry the dynamic-key prefix or
// isn't valid base64 in this alphabet.
func DecodeWire(s string) (*entity.CredentialRecord, error) {
	rest, ok := strings.CutPrefix(s, Prefix)
	if !ok {
		return nil, ErrInvalidFormat
	}
	blob, ok := fromBase64(rest)
	if !ok {
		return nil, ErrInvalidFormat
	}
	return Decode(blob)
}
