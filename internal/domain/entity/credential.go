package entity

// InnerToken is the signed core of an upstream credential: who it belongs
// to, when it was minted, and the signature that binds those fields
// together. Canonical bytes (for signing/verification) are produced by the
// credential package, not here — this type is pure data.
type InnerToken struct {
	Provider   string   `cbor:"0,keyasint"`
	SubID      [16]byte `cbor:"1,keyasint"`
	Randomness [8]byte  `cbor:"2,keyasint"`
	Start      int64    `cbor:"3,keyasint"`
	End        int64    `cbor:"4,keyasint"`
	Signature  [32]byte `cbor:"5,keyasint"`
	IsSession  bool     `cbor:"6,keyasint"`
}

// TokenInfo carries an InnerToken plus the per-device/per-session material
// the upstream API requires on every call.
type TokenInfo struct {
	Token         InnerToken `cbor:"0,keyasint"`
	Checksum      [64]byte   `cbor:"1,keyasint"`
	ClientKey     [32]byte   `cbor:"2,keyasint"`
	ConfigVersion *[16]byte  `cbor:"3,keyasint,omitempty"`
	SessionID     [16]byte   `cbor:"4,keyasint"`
	ProxyName     *string    `cbor:"5,keyasint,omitempty"`
	Timezone      *string    `cbor:"6,keyasint,omitempty"`
	GCPPHost      *uint8     `cbor:"7,keyasint,omitempty"`
}

// UsageCheckType selects how a credential's usage-check override behaves.
type UsageCheckType int

const (
	UsageCheckDefault  UsageCheckType = 0
	UsageCheckDisabled UsageCheckType = 1
	UsageCheckAll      UsageCheckType = 2
	UsageCheckCustom   UsageCheckType = 3
)

// UsageCheckModel overrides which models participate in usage accounting.
type UsageCheckModel struct {
	Type     UsageCheckType `cbor:"0,keyasint"`
	ModelIDs []string       `cbor:"1,keyasint"`
}

// CredentialRecord is the decoded shape of a dynamic key blob (§4.4):
// an upstream token plus per-request overrides. It is decoded fresh on
// every request and never persisted.
type CredentialRecord struct {
	TokenInfo            *TokenInfo       `cbor:"0,keyasint,omitempty"`
	SecretHash           *[32]byte        `cbor:"1,keyasint,omitempty"`
	DisableVision        *bool            `cbor:"2,keyasint,omitempty"`
	EnableSlowPool       *bool            `cbor:"3,keyasint,omitempty"`
	IncludeWebReferences *bool            `cbor:"4,keyasint,omitempty"`
	UsageCheckModels     *UsageCheckModel `cbor:"5,keyasint,omitempty"`
}
