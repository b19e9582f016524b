package openai

import (
	"encoding/json"
	"fmt"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
	"github.com/ngoclaw/upstreamgw/internal/domain/service"
)

// StreamEncoder turns the translator's StreamMessage sequence into OpenAI
// chat-completions SSE chunks. One encoder is created per client request
// and fed messages in wire order.
type StreamEncoder struct {
	id          string
	model       string
	toolIndex   map[string]int
	nextIndex   int
	sawToolCall bool
	lastUsage   *Usage
}

// NewStreamEncoder returns an encoder for one streamed response.
func NewStreamEncoder(id, model string) *StreamEncoder {
	return &StreamEncoder{id: id, model: model, toolIndex: make(map[string]int)}
}

// Encode returns the SSE bytes ("data: ...\n\n") for one decoded message,
// or nil if the message has no OpenAI-visible representation (Thinking,
// WebReference, Debug, and editor-only messages are not part of the chat
// completions format).
func (e *StreamEncoder) Encode(msg entity.StreamMessage) []byte {
	switch m := msg.(type) {
	case entity.ModelInfo:
		if m.ModelName != "" {
			e.model = m.ModelName
		}
		return nil

	case entity.Text:
		return e.chunk(StreamDelta{Content: m.Text}, nil)

	case entity.ToolCallStart:
		e.sawToolCall = true
		idx := e.indexFor(m.ID)
		return e.chunk(StreamDelta{ToolCalls: []ToolCall{{
			Index: idx,
			ID:    m.ID,
			Type:  "function",
			Function: ToolCallFunc{
				Name: m.Name,
			},
		}}}, nil)

	case entity.ToolCallDelta:
		idx := e.indexFor(m.ID)
		return e.chunk(StreamDelta{ToolCalls: []ToolCall{{
			Index:    idx,
			Function: ToolCallFunc{Arguments: m.ArgsChunk},
		}}}, nil)

	case entity.Usage:
		e.lastUsage = &Usage{
			PromptTokens:     m.Prompt,
			CompletionTokens: m.Completion,
			TotalTokens:      m.Prompt + m.Completion,
		}
		return nil

	case entity.StreamEnd:
		reason := "stop"
		if e.sawToolCall {
			reason = "tool_calls"
		}
		return e.chunk(StreamDelta{}, &reason)
	}
	return nil
}

// Done returns the terminating SSE sentinel. Callers write this once,
// after the final Encode call for a successful stream.
func (e *StreamEncoder) Done() []byte {
	return []byte("data: [DONE]\n\n")
}

func (e *StreamEncoder) indexFor(toolCallID string) int {
	if idx, ok := e.toolIndex[toolCallID]; ok {
		return idx
	}
	idx := e.nextIndex
	e.toolIndex[toolCallID] = idx
	e.nextIndex++
	return idx
}

func (e *StreamEncoder) chunk(delta StreamDelta, finishReason *string) []byte {
	data := StreamChunkData{
		ID:    e.id,
		Model: e.model,
		Choices: []StreamChoice{{
			Delta:        delta,
			FinishReason: finishReason,
		}},
	}
	if finishReason != nil {
		data.Usage = e.lastUsage
	}
	b, _ := json.Marshal(data)
	return sseEvent(b)
}

func sseEvent(data []byte) []byte {
	return []byte("data: " + string(data) + "\n\n")
}

// BuildFinalJSON assembles the non-streaming Response for an accumulated
// conversation turn: concatenated text, any tool calls the turn issued,
// and the final usage snapshot.
func BuildFinalJSON(id, model, text string, toolCalls []ToolCall, usage *entity.UsageSnapshot) *Response {
	finishReason := "stop"
	if len(toolCalls) > 0 {
		finishReason = "tool_calls"
	}
	resp := &Response{
		ID:    id,
		Model: model,
		Choices: []Choice{{
			Message: ResponseMessage{
				Role:      "assistant",
				Content:   text,
				ToolCalls: toolCalls,
			},
			FinishReason: finishReason,
		}},
	}
	if usage != nil {
		resp.Usage = Usage{
			PromptTokens:     usage.Prompt,
			CompletionTokens: usage.Completion,
			TotalTokens:      usage.Prompt + usage.Completion,
		}
	}
	return resp
}

// apiError is the OpenAI error envelope shape.
type apiError struct {
	Error apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// MapError renders an upstream error kind as the HTTP status and JSON body
// an OpenAI-compatible client expects.
func MapError(kind entity.ErrorKind, detail string) (status int, body []byte) {
	status = service.HTTPStatusForKind(kind)
	msg := detail
	if msg == "" {
		msg = fmt.Sprintf("upstream error: %s", kind)
	}
	body, _ = json.Marshal(apiError{Error: apiErrorBody{
		Message: msg,
		Type:    "upstream_error",
		Code:    string(kind),
	}})
	return status, body
}
