package entity

// ErrorKind is the canonical, deployment-stable taxonomy of error causes
// that can terminate a request anywhere in the pipeline. HTTP status
// mapping for the Upstream-family kinds lives in service.HTTPStatusForKind.
type ErrorKind string

const (
	// Framing
	ErrExceedSizeLimit      ErrorKind = "exceed_size_limit"
	ErrMalformedFrame        ErrorKind = "malformed_frame"
	ErrDecompressionRejected ErrorKind = "decompression_rejected"
	ErrDecompressionOversize ErrorKind = "decompression_oversize"

	// Codec / serialization
	ErrProtobufDecode ErrorKind = "protobuf_decode"
	ErrCborDecode     ErrorKind = "cbor_decode"
	ErrJSONDecode     ErrorKind = "json_decode"

	// Authentication
	ErrMissingToken     ErrorKind = "missing_token"
	ErrInvalidToken     ErrorKind = "invalid_token"
	ErrSignatureMismatch ErrorKind = "signature_mismatch"
	ErrChecksumInvalid  ErrorKind = "checksum_invalid"

	// Upstream (see service.HTTPStatusForKind's canonical HTTP-status table)
	ErrBadRequest              ErrorKind = "bad_request"
	ErrBadModelName            ErrorKind = "bad_model_name"
	ErrFileUnsupported         ErrorKind = "file_unsupported"
	ErrClaudeImageTooLarge     ErrorKind = "claude_image_too_large"
	ErrConversationTooLong     ErrorKind = "conversation_too_long"
	ErrBadAPIKey               ErrorKind = "bad_api_key"
	ErrNotLoggedIn             ErrorKind = "not_logged_in"
	ErrUsagePricingRequired    ErrorKind = "usage_pricing_required"
	ErrNotHighEnoughPermissions ErrorKind = "not_high_enough_permissions"
	ErrProUserOnly             ErrorKind = "pro_user_only"
	ErrHooksBlocked            ErrorKind = "hooks_blocked"
	ErrNotFound                ErrorKind = "not_found"
	ErrUserNotFound            ErrorKind = "user_not_found"
	ErrDeprecated              ErrorKind = "deprecated"
	ErrOutdatedClient          ErrorKind = "outdated_client"
	ErrAPIKeyNotSupported      ErrorKind = "api_key_not_supported"
	ErrRateLimited             ErrorKind = "rate_limited"
	ErrAPIKeyRateLimit         ErrorKind = "api_key_rate_limit"
	ErrUserAbortedRequest      ErrorKind = "user_aborted_request"
	ErrFreeUserUsageLimit      ErrorKind = "free_user_usage_limit"
	ErrProUserUsageLimit       ErrorKind = "pro_user_usage_limit"
	ErrResourceExhausted       ErrorKind = "resource_exhausted"
	ErrMaxTokens               ErrorKind = "max_tokens"
	ErrTimeout                 ErrorKind = "timeout"
	ErrUpstream                ErrorKind = "upstream"
	ErrOpenai                  ErrorKind = "openai"
	ErrCustomMessage           ErrorKind = "custom_message"
	ErrUnspecified             ErrorKind = "unspecified"

	// Resource
	ErrStreamStalled  ErrorKind = "stream_stalled"
	ErrClientAborted  ErrorKind = "client_aborted"

	// Input
	ErrModelNotSupported       ErrorKind = "model_not_supported"
	ErrEmptyMessages           ErrorKind = "empty_messages"
	ErrUnsupportedImageFormat  ErrorKind = "unsupported_image_format"
	ErrUnsupportedAnimatedGif  ErrorKind = "unsupported_animated_gif"
)

// KindError pairs an ErrorKind with a human-readable detail so adapters and
// handlers can return a single Go error value that still carries enough
// information to map to the right HTTP status and provider-shaped body.
type KindError struct {
	Kind   ErrorKind
	Detail string
}

func (e *KindError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Detail
}

// NewKindError constructs a KindError with an optional detail message.
func NewKindError(kind ErrorKind, detail string) *KindError {
	return &KindError{Kind: kind, Detail: detail}
}
