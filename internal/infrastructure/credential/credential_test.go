package credential

import (
	"crypto/hmac"
	"crypto/sha256"
	"testing"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
)

func signedInnerToken(secretHash [32]byte) entity.InnerToken {
	tok := entity.InnerToken{
		Provider: "auth0",
		Start:    1000,
		End:      2000,
	}
	base, err := canonicalInnerToken(tok)
	if err != nil {
		panic(err)
	}
	mac := hmac.New(sha256.New, secretHash[:])
	mac.Write(base)
	copy(tok.Signature[:], mac.Sum(nil))
	return tok
}

func TestVerifyAcceptsCorrectSignature(t *testing.T) {
	var secretHash [32]byte
	secretHash[0] = 7

	record := &entity.CredentialRecord{
		TokenInfo: &entity.TokenInfo{Token: signedInnerToken(secretHash)},
	}

	tok, err := Verify(record, secretHash)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if tok.Provider != "auth0" {
		t.Fatalf("got provider %q", tok.Provider)
	}
}

func TestVerifyRejectsTamperedField(t *testing.T) {
	var secretHash [32]byte
	secretHash[0] = 7

	tok := signedInnerToken(secretHash)
	tok.End = 9999 // tamper after signing

	record := &entity.CredentialRecord{TokenInfo: &entity.TokenInfo{Token: tok}}
	if _, err := Verify(record, secretHash); err != ErrSignatureMismatch {
		t.Fatalf("Verify() error = %v, want ErrSignatureMismatch", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	var secretHash [32]byte
	secretHash[0] = 7
	tok := signedInnerToken(secretHash)

	var wrongHash [32]byte
	wrongHash[0] = 9

	record := &entity.CredentialRecord{TokenInfo: &entity.TokenInfo{Token: tok}}
	if _, err := Verify(record, wrongHash); err != ErrSignatureMismatch {
		t.Fatalf("Verify() error = %v, want ErrSignatureMismatch", err)
	}
}

func TestVerifyMissingTokenInfo(t *testing.T) {
	var secretHash [32]byte
	if _, err := Verify(&entity.CredentialRecord{}, secretHash); err != ErrMissingTokenInfo {
		t.Fatalf("Verify() error = %v, want ErrMissingTokenInfo", err)
	}
}

func TestWireRoundTrip(t *testing.T) {
	flag := true
	record := &entity.CredentialRecord{
		DisableVision: &flag,
	}

	wire, err := EncodeWire(record)
	if err != nil {
		t.Fatalf("EncodeWire() error = %v", err)
	}
	if len(wire) <= len(Prefix) {
		t.Fatalf("wire form too short: %q", wire)
	}

	decoded, err := DecodeWire(wire)
	if err != nil {
		t.Fatalf("DecodeWire() error = %v", err)
	}
	if decoded.DisableVision == nil || !*decoded.DisableVision {
		t.Fatalf("got %+v", decoded)
	}
}

func TestDecodeWireRejectsMissingPrefix(t *testing.T) {
	if _, err := DecodeWire("not-a-dynamic-key"); err != ErrInvalidFormat {
		t.Fatalf("DecodeWire() error = %v, want ErrInvalidFormat", err)
	}
}

func TestDecodeWireRejectsInvalidBase64(t *testing.T) {
	if _, err := DecodeWire(Prefix + "!!!"); err != ErrInvalidFormat {
		t.Fatalf("DecodeWire() error = %v, want ErrInvalidFormat", err)
	}
}

func TestBase64RoundTripKnownVectors(t *testing.T) {
	cases := map[string]string{
		"f":      "Mp",
		"fo":     "Ms6",
		"foo":    "Ms9X",
		"foob":   "Ms9Xlp",
		"fooba":  "Ms9Xlsb",
		"foobar": "Ms9XlsCy",
	}
	for input, want := range cases {
		got := toBase64([]byte(input))
		if got != want {
			t.Fatalf("toBase64(%q) = %q, want %q", input, got, want)
		}
		back, ok := fromBase64(got)
		if !ok || string(back) != input {
			t.Fatalf("fromBase64(%q) = %q, %v; want %q, true", got, back, ok, input)
		}
	}
}

func TestFromBase64RejectsInvalidLength(t *testing.T) {
	if _, ok := fromBase64("ABCDE"); ok {
		t.Fatalf("expected length %% 4 == 1 to be rejected")
	}
}
