package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
	"github.com/ngoclaw/upstreamgw/internal/domain/service"
)

// StreamEncoder turns the translator's StreamMessage sequence into
// Anthropic's event-based SSE stream: message_start, a sequence of
// content_block_start/delta/stop triples (one per text run, thinking run,
// or tool call), message_delta, and message_stop. One encoder is created
// per client request and fed messages in wire order.
type StreamEncoder struct {
	id    string
	model string

	started   bool
	blockOpen bool
	blockType string // "text" | "thinking" | "tool_use"
	curIndex  int
	nextIndex int

	sawToolCall bool
	lastUsage   *entity.UsageSnapshot
}

// NewStreamEncoder returns an encoder for one streamed response.
func NewStreamEncoder(id, model string) *StreamEncoder {
	return &StreamEncoder{id: id, model: model}
}

// Encode returns the SSE bytes for every event the translator's message
// implies, which may be more than one ("event: ...\ndata: ...\n\n" blocks
// concatenated) since switching content kinds requires closing the
// previous block before opening the next. Returns nil if the message has
// no Anthropic-visible representation (BeginEdit, RangeReplace, Debug,
// and WebReference are not part of the Messages API streaming format).
func (e *StreamEncoder) Encode(msg entity.StreamMessage) []byte {
	if m, ok := msg.(entity.ModelInfo); ok {
		if m.ModelName != "" {
			e.model = m.ModelName
		}
		return nil
	}

	switch msg.(type) {
	case entity.Text, entity.Thinking, entity.ToolCallStart, entity.ToolCallDelta,
		entity.ToolCallEnd, entity.Usage, entity.StreamEnd:
	default:
		return nil
	}

	var out []byte
	out = append(out, e.ensureStarted()...)

	switch m := msg.(type) {
	case entity.Text:
		out = append(out, e.ensureBlock("text")...)
		out = append(out, e.delta(DeltaBlock{Type: "text_delta", Text: m.Text})...)

	case entity.Thinking:
		out = append(out, e.ensureBlock("thinking")...)
		out = append(out, e.delta(DeltaBlock{Type: "thinking_delta", Thinking: m.Payload})...)

	case entity.ToolCallStart:
		e.sawToolCall = true
		out = append(out, e.closeBlock()...)
		out = append(out, e.openToolBlock(m.ID, m.Name)...)

	case entity.ToolCallDelta:
		out = append(out, e.delta(DeltaBlock{Type: "input_json_delta", PartialJSON: m.ArgsChunk})...)

	case entity.ToolCallEnd:
		out = append(out, e.closeBlock()...)

	case entity.Usage:
		e.lastUsage = &entity.UsageSnapshot{Prompt: m.Prompt, Completion: m.Completion, CacheRead: m.CacheRead, CacheWrite: m.CacheWrite, TotalCents: m.TotalCents}

	case entity.StreamEnd:
		out = append(out, e.closeBlock()...)
		out = append(out, e.messageDelta()...)
		out = append(out, e.messageStop()...)

	default:
		return nil
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func (e *StreamEncoder) ensureStarted() []byte {
	if e.started {
		return nil
	}
	e.started = true
	return sseEvent("message_start", StreamEvent{
		Type: "message_start",
		Message: &Response{
			ID:    e.id,
			Type:  "message",
			Role:  "assistant",
			Model: e.model,
		},
	})
}

// ensureBlock opens a block of the given type, closing whatever block is
// currently open if it is of a different type.
func (e *StreamEncoder) ensureBlock(blockType string) []byte {
	if e.blockOpen && e.blockType == blockType {
		return nil
	}
	var out []byte
	out = append(out, e.closeBlock()...)
	idx := e.nextIndex
	e.nextIndex++
	e.blockOpen = true
	e.blockType = blockType
	e.curIndex = idx
	out = append(out, sseEvent("content_block_start", StreamEvent{
		Type:         "content_block_start",
		Index:        idx,
		ContentBlock: &ContentBlock{Type: blockType},
	})...)
	return out
}

func (e *StreamEncoder) openToolBlock(id, name string) []byte {
	idx := e.nextIndex
	e.nextIndex++
	e.blockOpen = true
	e.blockType = "tool_use"
	e.curIndex = idx
	return sseEvent("content_block_start", StreamEvent{
		Type:  "content_block_start",
		Index: idx,
		ContentBlock: &ContentBlock{
			Type: "tool_use",
			ID:   id,
			Name: name,
		},
	})
}

func (e *StreamEncoder) delta(d DeltaBlock) []byte {
	return sseEvent("content_block_delta", StreamEvent{
		Type:  "content_block_delta",
		Index: e.curIndex,
		Delta: &d,
	})
}

func (e *StreamEncoder) closeBlock() []byte {
	if !e.blockOpen {
		return nil
	}
	e.blockOpen = false
	return sseEvent("content_block_stop", StreamEvent{Type: "content_block_stop", Index: e.curIndex})
}

func (e *StreamEncoder) messageDelta() []byte {
	reason := "end_turn"
	if e.sawToolCall {
		reason = "tool_use"
	}
	return sseEvent("message_delta", StreamEvent{
		Type:  "message_delta",
		Delta: &DeltaBlock{StopReason: reason},
		Usage: e.usageOrZero(),
	})
}

func (e *StreamEncoder) usageOrZero() *Usage {
	if e.lastUsage == nil {
		return &Usage{}
	}
	return &Usage{InputTokens: e.lastUsage.Prompt, OutputTokens: e.lastUsage.Completion}
}

func (e *StreamEncoder) messageStop() []byte {
	return sseEvent("message_stop", StreamEvent{Type: "message_stop"})
}

func sseEvent(name string, payload StreamEvent) []byte {
	b, _ := json.Marshal(payload)
	return []byte("event: " + name + "\ndata: " + string(b) + "\n\n")
}

// BuildFinalJSON assembles the non-streaming Response for an accumulated
// conversation turn: concatenated text, any tool calls the turn issued,
// and the final usage snapshot.
func BuildFinalJSON(id, model, text string, toolCalls []ContentBlock, usage *entity.UsageSnapshot) *Response {
	stopReason := "end_turn"
	content := []ContentBlock{}
	if text != "" {
		content = append(content, ContentBlock{Type: "text", Text: text})
	}
	if len(toolCalls) > 0 {
		stopReason = "tool_use"
		content = append(content, toolCalls...)
	}
	resp := &Response{
		ID:         id,
		Type:       "message",
		Role:       "assistant",
		Model:      model,
		Content:    content,
		StopReason: stopReason,
	}
	if usage != nil {
		resp.Usage = Usage{InputTokens: usage.Prompt, OutputTokens: usage.Completion}
	}
	return resp
}

// apiError is the Anthropic error envelope shape.
type apiError struct {
	Type  string       `json:"type"`
	Error apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// MapError renders an upstream error kind as the HTTP status and JSON body
// an Anthropic-compatible client expects.
func MapError(kind entity.ErrorKind, detail string) (status int, body []byte) {
	status = service.HTTPStatusForKind(kind)
	msg := detail
	if msg == "" {
		msg = fmt.Sprintf("upstream error: %s", kind)
	}
	body, _ = json.Marshal(apiError{
		Type:  "error",
		Error: apiErrorBody{Type: string(kind), Message: msg},
	})
	return status, body
}
