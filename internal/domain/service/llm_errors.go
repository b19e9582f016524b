package service

import "github.com/ngoclaw/upstreamgw/internal/domain/entity"

// httpStatusByKind is the canonical, deployment-stable mapping from an
// upstream error kind to the HTTP status an adapter reports to the client.
// Unlike the teacher's pattern-matched ClassifyError, the upstream vendor's
// error kinds arrive as literal names on the wire (decoded by C3), so this
// is a direct table lookup rather than substring classification.
var httpStatusByKind = map[entity.ErrorKind]int{
	// Authentication family: not part of the upstream vendor's own error
	// taxonomy, so there is no wire-assigned status to look up — these
	// are raised locally by the auth/checksum middleware before any
	// upstream call is made.
	entity.ErrMissingToken:      401,
	entity.ErrInvalidToken:      401,
	entity.ErrSignatureMismatch: 401,
	entity.ErrChecksumInvalid:   400,

	// Framing: a rejected or oversize gzip body ends the stream locally.
	entity.ErrExceedSizeLimit: 413,

	entity.ErrBadRequest:          400,
	entity.ErrBadModelName:        400,
	entity.ErrFileUnsupported:     400,
	entity.ErrClaudeImageTooLarge: 400,
	entity.ErrConversationTooLong: 400,

	entity.ErrBadAPIKey:   401,
	entity.ErrNotLoggedIn: 401,

	entity.ErrUsagePricingRequired: 402,

	entity.ErrNotHighEnoughPermissions: 403,
	entity.ErrProUserOnly:              403,
	entity.ErrHooksBlocked:             403,

	entity.ErrNotFound:     404,
	entity.ErrUserNotFound: 404,

	entity.ErrDeprecated:     410,
	entity.ErrOutdatedClient: 410,

	entity.ErrAPIKeyNotSupported: 422,

	entity.ErrRateLimited:     429,
	entity.ErrAPIKeyRateLimit: 429,

	entity.ErrUserAbortedRequest: 499,

	entity.ErrFreeUserUsageLimit: 503,
	entity.ErrProUserUsageLimit:  503,
	entity.ErrResourceExhausted:  503,
	entity.ErrMaxTokens:          503,

	entity.ErrTimeout: 504,

	entity.ErrUpstream:      533,
	entity.ErrOpenai:        533,
	entity.ErrCustomMessage: 533,
	entity.ErrUnspecified:   533,
}

// defaultHTTPStatus is used for any error kind not in the table above —
// framing/codec/resource/input kinds raised before an upstream error record
// is even reached, which have no upstream-assigned status of their own.
const defaultHTTPStatus = 502

// HTTPStatusForKind maps an upstream error kind to the HTTP status an
// adapter should report to the client.
func HTTPStatusForKind(kind entity.ErrorKind) int {
	if status, ok := httpStatusByKind[kind]; ok {
		return status
	}
	return defaultHTTPStatus
}
