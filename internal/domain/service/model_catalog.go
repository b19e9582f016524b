package service

import "github.com/ngoclaw/upstreamgw/internal/domain/entity"

// knownModels is the deployment's built-in allowlist of upstream model
// ids, consulted unless BYPASS_MODEL_VALIDATION disables the check.
var knownModels = map[string]bool{
	"claude-sonnet-4-20250514":   true,
	"claude-opus-4-20250514":     true,
	"claude-3-7-sonnet-20250219": true,
	"claude-3-5-sonnet-20241022": true,
	"claude-3-5-haiku-20241022":  true,
	"gpt-4o":                     true,
	"gpt-4o-mini":                true,
	"gpt-4.1":                    true,
	"o1":                         true,
	"o3-mini":                    true,
}

// ValidateModel reports whether modelID is acceptable to forward upstream.
// When bypass is true (BYPASS_MODEL_VALIDATION), every non-empty model id
// is accepted.
func ValidateModel(modelID string, bypass bool) error {
	if modelID == "" {
		return entity.NewKindError(entity.ErrModelNotSupported, "model id must not be empty")
	}
	if bypass || knownModels[modelID] {
		return nil
	}
	return entity.NewKindError(entity.ErrModelNotSupported, "unknown model id: "+modelID)
}

// KnownModelIDs returns the catalog's model ids, used by the GET /v1/models
// listing endpoint.
func KnownModelIDs() []string {
	out := make([]string, 0, len(knownModels))
	for id := range knownModels {
		out = append(out, id)
	}
	return out
}
