package entity

// Role is the speaker of one conversation message in the adapter-shared
// intermediate representation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentBlockKind distinguishes the polymorphic pieces a Message's
// content can carry, mirroring what both OpenAI and Anthropic need.
type ContentBlockKind string

const (
	ContentText       ContentBlockKind = "text"
	ContentImage      ContentBlockKind = "image"
	ContentToolUse    ContentBlockKind = "tool_use"
	ContentToolResult ContentBlockKind = "tool_result"
	ContentThinking   ContentBlockKind = "thinking"
)

// ContentBlock is one element of a Message's content, used for both
// directions of the OpenAI/Anthropic adapters' common IR.
type ContentBlock struct {
	Kind ContentBlockKind

	Text string

	// ContentImage
	ImageURL   string
	ImageBytes []byte
	MimeType   string

	// ContentToolUse (assistant requesting a call)
	ToolCallID string
	ToolName   string
	ToolInput  map[string]any

	// ContentToolResult (client returning a tool's output)
	ToolResultForID string
	ToolResultText  string

	// ContentThinking
	ThinkingKind    ThinkingKind
	ThinkingPayload string
}

// Message is one turn in the adapter-shared intermediate representation.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// Tool is a client-declared function the model may call.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// EnvInfo carries per-request environment the upstream protocol expects
// alongside the conversation itself.
type EnvInfo struct {
	ClientVersion string
	OSHint        string
	Context       string
	RepoContext   string
	ModeContext   string
}

// NormalizedRequest is the adapter-produced IR the translator (C7)
// consumes to build an upstream call, independent of which client
// protocol produced it.
type NormalizedRequest struct {
	ModelID     string
	Messages    []Message
	Tools       []Tool
	Stream      bool
	Env         EnvInfo
	MaxTokens   int
	Temperature float64

	// Tool-call follow-up shortcut (§4.7): set when the latest message is
	// a tool result matching the assistant's immediately-preceding call.
	FollowUpToolCallID string
	FollowUpToolName   string
	FollowUpArguments  string
}
