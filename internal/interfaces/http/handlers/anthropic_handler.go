package handlers

import (
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
	"github.com/ngoclaw/upstreamgw/internal/domain/service"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/llm/anthropic"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/upstream"
	"github.com/ngoclaw/upstreamgw/internal/interfaces/http/middleware"
)

// AnthropicHandler answers the Anthropic-compatible Messages endpoints,
// mirroring OpenAIHandler's shape against the same translator and adapter
// contract, generalized to Anthropic's block-structured wire format.
type AnthropicHandler struct {
	session               *upstream.Session
	httpClient            *http.Client
	logger                *zap.Logger
	contextFillMode       uint8
	bypassModelValidation bool
}

// NewAnthropicHandler returns a handler bound to session for forwarding
// requests and httpClient for fetching url-sourced image content.
func NewAnthropicHandler(session *upstream.Session, httpClient *http.Client, logger *zap.Logger, contextFillMode uint8, bypassModelValidation bool) *AnthropicHandler {
	return &AnthropicHandler{
		session:               session,
		httpClient:            httpClient,
		logger:                logger,
		contextFillMode:       contextFillMode,
		bypassModelValidation: bypassModelValidation,
	}
}

// Messages handles POST /v1/messages.
func (h *AnthropicHandler) Messages(c *gin.Context) {
	var req anthropic.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, entity.NewKindError(entity.ErrEmptyMessages, err.Error()))
		return
	}

	tok, ok := middleware.TokenEntryFrom(c)
	if !ok {
		h.writeError(c, entity.NewKindError(entity.ErrMissingToken, "no resolved token"))
		return
	}

	normalized, err := anthropic.ParseRequest(&req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := service.ValidateModel(normalized.ModelID, h.bypassModelValidation); err != nil {
		h.writeError(c, err)
		return
	}
	if err := fetchRemoteImages(c.Request.Context(), h.httpClient, normalized, anthropic.ClassifyFetchedImage); err != nil {
		h.writeError(c, err)
		return
	}
	upstream.ApplyContextFillMode(&normalized.Env, h.contextFillMode, leadingSystemTextAnthropic(normalized))

	id := "msg_" + uuid.NewString()
	sm := service.NewStateMachine(h.logger)

	if normalized.Stream {
		h.streamMessage(c, normalized, tok, sm, id)
		return
	}
	h.nonStreamMessage(c, normalized, tok, sm, id)
}

func (h *AnthropicHandler) nonStreamMessage(c *gin.Context, req *entity.NormalizedRequest, tok *entity.TokenEntry, sm *service.StateMachine, id string) {
	var (
		text       string
		toolCalls  []anthropic.ContentBlock
		toolIndex  = map[string]int{}
		toolInputs = map[string]string{}
		usage      *entity.UsageSnapshot
		model      = req.ModelID
	)

	h.session.Run(c.Request.Context(), req, tok, sm, func(msg entity.StreamMessage) {
		switch m := msg.(type) {
		case entity.ModelInfo:
			if m.ModelName != "" {
				model = m.ModelName
			}
		case entity.Text:
			text += m.Text
		case entity.ToolCallStart:
			toolIndex[m.ID] = len(toolCalls)
			toolCalls = append(toolCalls, anthropic.ContentBlock{Type: "tool_use", ID: m.ID, Name: m.Name})
		case entity.ToolCallDelta:
			toolInputs[m.ID] += m.ArgsChunk
		case entity.Usage:
			usage = &entity.UsageSnapshot{Prompt: m.Prompt, Completion: m.Completion, CacheRead: m.CacheRead, CacheWrite: m.CacheWrite, TotalCents: m.TotalCents}
		case entity.Error:
			status, body := anthropic.MapError(m.Kind, m.Detail)
			c.Data(status, "application/json", body)
		}
	})

	for id, idx := range toolIndex {
		toolCalls[idx].Input = decodeToolInput(toolInputs[id])
	}

	if c.Writer.Written() {
		return
	}
	c.JSON(http.StatusOK, anthropic.BuildFinalJSON(id, model, text, toolCalls, usage))
}

func (h *AnthropicHandler) streamMessage(c *gin.Context, req *entity.NormalizedRequest, tok *entity.TokenEntry, sm *service.StateMachine, id string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	enc := anthropic.NewStreamEncoder(id, req.ModelID)
	flusher, _ := c.Writer.(http.Flusher)

	h.session.Run(c.Request.Context(), req, tok, sm, func(msg entity.StreamMessage) {
		if errMsg, ok := msg.(entity.Error); ok && !c.Writer.Written() {
			status, body := anthropic.MapError(errMsg.Kind, errMsg.Detail)
			c.Data(status, "application/json", body)
			return
		}
		if b := enc.Encode(msg); b != nil {
			c.Writer.Write(b)
			if flusher != nil {
				flusher.Flush()
			}
		}
	})
}

// CountTokens handles POST /v1/messages/count_tokens: a cheap, local
// estimate derived from the normalized request's text content, since the
// upstream protocol has no dedicated tokenizer endpoint of its own.
func (h *AnthropicHandler) CountTokens(c *gin.Context) {
	var req anthropic.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, entity.NewKindError(entity.ErrEmptyMessages, err.Error()))
		return
	}

	normalized, err := anthropic.ParseRequest(&req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"input_tokens": estimateTokens(normalized)})
}

func (h *AnthropicHandler) writeError(c *gin.Context, err error) {
	kind, detail := classifyHandlerError(err)
	status, body := anthropic.MapError(kind, detail)
	c.Data(status, "application/json", body)
}

func leadingSystemTextAnthropic(req *entity.NormalizedRequest) string {
	if len(req.Messages) == 0 || req.Messages[0].Role != entity.RoleSystem {
		return ""
	}
	var out string
	for _, b := range req.Messages[0].Content {
		if b.Kind == entity.ContentText {
			out += b.Text
		}
	}
	return out
}

// estimateTokens approximates token count as a quarter of the rune count
// across every text/thinking/tool-result block, the same rough ratio the
// teacher used for its own usage accounting.
func estimateTokens(req *entity.NormalizedRequest) int {
	var runes int
	for _, msg := range req.Messages {
		for _, b := range msg.Content {
			switch b.Kind {
			case entity.ContentText:
				runes += utf8.RuneCountInString(b.Text)
			case entity.ContentThinking:
				runes += utf8.RuneCountInString(b.ThinkingPayload)
			case entity.ContentToolResult:
				runes += utf8.RuneCountInString(b.ToolResultText)
			}
		}
	}
	return runes / 4
}

func decodeToolInput(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
