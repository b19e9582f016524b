package entity

// TokenKey is a stable hash identifying a credential across restarts,
// derived deterministically from its InnerToken fields.
type TokenKey [32]byte

// Alias is a unique, human-readable name for a token; auto-generated as
// "unnamed-<id>" until an operator sets one via the admin CLI.
type Alias string

// UserProfile is the cached upstream account identity for a token.
type UserProfile struct {
	Email       string
	Provider    string
	MembershipType string
}

// UsageSnapshot is a point-in-time read of a token's consumption, refreshed
// opportunistically from upstream Usage events.
type UsageSnapshot struct {
	Prompt     int
	Completion int
	CacheRead  int
	CacheWrite int
	TotalCents float64
}

// TokenEntry is one row of the token manager's registry (C5).
type TokenEntry struct {
	ID            int
	Key           TokenKey
	Alias         Alias
	Credential    CredentialRecord
	UserProfile   *UserProfile
	Usage         *UsageSnapshot
	ProxyName     string
	Timezone      string
	ConfigVersion string
}
