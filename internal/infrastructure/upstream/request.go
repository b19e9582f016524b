package upstream

import (
	"encoding/json"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/wireproto"
)

// Field numbers for the outbound chat request message. As with
// streamdecoder's response-side fields, there is no retrieved .proto for
// this schema; these are assigned directly from what BuildRequest needs to
// send and are addressed by number, not name, once on the wire.
const (
	reqFieldMessages = 1
	reqFieldTools    = 2
	reqFieldModelID  = 3
	reqFieldEnvInfo  = 4

	msgFieldRole    = 1
	msgFieldContent = 2

	blockFieldKind            = 1
	blockFieldText            = 2
	blockFieldToolCallID      = 3
	blockFieldToolName        = 4
	blockFieldToolArguments   = 5
	blockFieldToolResultForID = 6
	blockFieldToolResultText  = 7

	toolFieldName        = 1
	toolFieldDescription = 2
	toolFieldInputSchema = 3

	envFieldClientVersion = 1
	envFieldOSHint        = 2
	envFieldContext       = 3
	envFieldRepoContext   = 4
	envFieldModeContext   = 5
)

// ApplyContextFillMode copies text into whichever of env's three context
// slots CONTEXT_FILL_MODE's bitmask enables: bit 0 = Context, bit 1 =
// RepoContext, bit 2 = ModeContext. A mask of 0 fills nothing.
func ApplyContextFillMode(env *entity.EnvInfo, mask uint8, text string) {
	if mask&0b001 != 0 {
		env.Context = text
	}
	if mask&0b010 != 0 {
		env.RepoContext = text
	}
	if mask&0b100 != 0 {
		env.ModeContext = text
	}
}

// BuildRequest encodes a NormalizedRequest into the upstream wire-format
// request body (messages, tools, resolved model id, environment info).
func BuildRequest(req *entity.NormalizedRequest) []byte {
	w := wireproto.NewWriter()

	for _, msg := range req.Messages {
		w.Message(reqFieldMessages, encodeMessage(msg))
	}
	for _, tool := range req.Tools {
		w.Message(reqFieldTools, encodeTool(tool))
	}
	w.String(reqFieldModelID, req.ModelID)
	w.Message(reqFieldEnvInfo, encodeEnv(req.Env))

	return w.Bytes()
}

func encodeMessage(msg entity.Message) *wireproto.Writer {
	w := wireproto.NewWriter()
	w.String(msgFieldRole, string(msg.Role))
	for _, block := range msg.Content {
		w.Message(msgFieldContent, encodeBlock(block))
	}
	return w
}

func encodeBlock(b entity.ContentBlock) *wireproto.Writer {
	w := wireproto.NewWriter()
	w.String(blockFieldKind, string(b.Kind))
	switch b.Kind {
	case entity.ContentText, entity.ContentThinking:
		w.String(blockFieldText, b.Text)
	case entity.ContentToolUse:
		w.String(blockFieldToolCallID, b.ToolCallID)
		w.String(blockFieldToolName, b.ToolName)
		w.String(blockFieldToolArguments, encodeToolInputJSON(b.ToolInput))
	case entity.ContentToolResult:
		w.String(blockFieldToolResultForID, b.ToolResultForID)
		w.String(blockFieldToolResultText, b.ToolResultText)
	}
	return w
}

func encodeTool(t entity.Tool) *wireproto.Writer {
	w := wireproto.NewWriter()
	w.String(toolFieldName, t.Name)
	w.String(toolFieldDescription, t.Description)
	w.String(toolFieldInputSchema, encodeToolInputJSON(t.InputSchema))
	return w
}

// encodeToolInputJSON renders a tool call's arguments (or a tool
// declaration's schema) as the JSON text the upstream field expects;
// map[string]any always round-trips through json.Marshal cleanly.
func encodeToolInputJSON(m map[string]any) string {
	if m == nil {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func encodeEnv(env entity.EnvInfo) *wireproto.Writer {
	w := wireproto.NewWriter()
	w.String(envFieldClientVersion, env.ClientVersion)
	w.String(envFieldOSHint, env.OSHint)
	w.String(envFieldContext, env.Context)
	w.String(envFieldRepoContext, env.RepoContext)
	w.String(envFieldModeContext, env.ModeContext)
	return w
}
