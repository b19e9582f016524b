package upstream

import (
	"encoding/hex"
	"net/http"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
)

// Headers derives the upstream HTTP request headers from a token entry:
// authorization, client-key, session-id, timezone and gcpp-host (when
// set), and the deployment's client version string.
func Headers(tok *entity.TokenEntry, clientVersion string) http.Header {
	h := make(http.Header)

	info := tok.Credential.TokenInfo
	if info == nil {
		return h
	}

	h.Set("Authorization", "Bearer "+hex.EncodeToString(info.Checksum[:]))
	h.Set("X-Client-Key", hex.EncodeToString(info.ClientKey[:]))
	h.Set("X-Session-Id", hex.EncodeToString(info.SessionID[:]))
	h.Set("X-Client-Version", clientVersion)

	if tok.Timezone != "" {
		h.Set("X-Timezone", tok.Timezone)
	}
	if info.GCPPHost != nil {
		h.Set("X-Gcpp-Host", hex.EncodeToString([]byte{*info.GCPPHost}))
	}

	return h
}
