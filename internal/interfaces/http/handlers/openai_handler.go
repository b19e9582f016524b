package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
	"github.com/ngoclaw/upstreamgw/internal/domain/service"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/llm/openai"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/upstream"
	"github.com/ngoclaw/upstreamgw/internal/interfaces/http/middleware"
)

// OpenAIHandler answers the OpenAI-compatible chat completions and models
// endpoints, translating through the adapter-shared intermediate
// representation and driving one upstream.Session per request.
type OpenAIHandler struct {
	session               *upstream.Session
	httpClient            *http.Client
	logger                *zap.Logger
	contextFillMode       uint8
	bypassModelValidation bool
}

// NewOpenAIHandler returns a handler bound to session for forwarding
// requests and httpClient for fetching image_url content.
func NewOpenAIHandler(session *upstream.Session, httpClient *http.Client, logger *zap.Logger, contextFillMode uint8, bypassModelValidation bool) *OpenAIHandler {
	return &OpenAIHandler{
		session:               session,
		httpClient:            httpClient,
		logger:                logger,
		contextFillMode:       contextFillMode,
		bypassModelValidation: bypassModelValidation,
	}
}

// ChatCompletions handles POST /v1/chat/completions.
func (h *OpenAIHandler) ChatCompletions(c *gin.Context) {
	var req openai.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, entity.NewKindError(entity.ErrEmptyMessages, err.Error()))
		return
	}

	tok, ok := middleware.TokenEntryFrom(c)
	if !ok {
		h.writeError(c, entity.NewKindError(entity.ErrMissingToken, "no resolved token"))
		return
	}

	normalized, err := openai.ParseRequest(&req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := service.ValidateModel(normalized.ModelID, h.bypassModelValidation); err != nil {
		h.writeError(c, err)
		return
	}
	if err := fetchRemoteImages(c.Request.Context(), h.httpClient, normalized, openai.ClassifyFetchedImage); err != nil {
		h.writeError(c, err)
		return
	}
	upstream.ApplyContextFillMode(&normalized.Env, h.contextFillMode, leadingSystemText(normalized))

	id := "chatcmpl-" + uuid.NewString()
	sm := service.NewStateMachine(h.logger)

	if normalized.Stream {
		h.streamChatCompletion(c, normalized, tok, sm, id)
		return
	}
	h.nonStreamChatCompletion(c, normalized, tok, sm, id)
}

// nonStreamChatCompletion accumulates the session's full StreamMessage
// sequence before writing one JSON response.
func (h *OpenAIHandler) nonStreamChatCompletion(c *gin.Context, req *entity.NormalizedRequest, tok *entity.TokenEntry, sm *service.StateMachine, id string) {
	var (
		text      string
		toolCalls []openai.ToolCall
		toolIndex = map[string]int{}
		usage     *entity.UsageSnapshot
		model     = req.ModelID
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
			toolCalls = append(toolCalls, openai.ToolCall{ID: m.ID, Type: "function", Function: openai.ToolCallFunc{Name: m.Name}})
		case entity.ToolCallDelta:
			if idx, ok := toolIndex[m.ID]; ok {
				toolCalls[idx].Function.Arguments += m.ArgsChunk
			}
		case entity.Usage:
			usage = &entity.UsageSnapshot{Prompt: m.Prompt, Completion: m.Completion, CacheRead: m.CacheRead, CacheWrite: m.CacheWrite, TotalCents: m.TotalCents}
		case entity.Error:
			status, body := openai.MapError(m.Kind, m.Detail)
			c.Data(status, "application/json", body)
		}
	})

	if c.Writer.Written() {
		return
	}
	c.JSON(http.StatusOK, openai.BuildFinalJSON(id, model, text, toolCalls, usage))
}

// streamChatCompletion forwards every StreamMessage to the client as an
// SSE chunk as soon as the translator produces it.
func (h *OpenAIHandler) streamChatCompletion(c *gin.Context, req *entity.NormalizedRequest, tok *entity.TokenEntry, sm *service.StateMachine, id string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	enc := openai.NewStreamEncoder(id, req.ModelID)
	flusher, _ := c.Writer.(http.Flusher)
	wroteError := false

	h.session.Run(c.Request.Context(), req, tok, sm, func(msg entity.StreamMessage) {
		if errMsg, ok := msg.(entity.Error); ok && !c.Writer.Written() {
			status, body := openai.MapError(errMsg.Kind, errMsg.Detail)
			c.Data(status, "application/json", body)
			wroteError = true
			return
		}
		if b := enc.Encode(msg); b != nil {
			c.Writer.Write(b)
			if flusher != nil {
				flusher.Flush()
			}
		}
		if _, ok := msg.(entity.StreamEnd); ok && !wroteError {
			c.Writer.Write(enc.Done())
			if flusher != nil {
				flusher.Flush()
			}
		}
	})
}

// ListModels handles GET /v1/models.
func (h *OpenAIHandler) ListModels(c *gin.Context) {
	ids := service.KnownModelIDs()
	data := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		data = append(data, gin.H{
			"id":       id,
			"object":   "model",
			"created":  time.Now().Unix(),
			"owned_by": "ngoclaw",
		})
	}
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": data})
}

func (h *OpenAIHandler) writeError(c *gin.Context, err error) {
	kind, detail := classifyHandlerError(err)
	status, body := openai.MapError(kind, detail)
	c.Data(status, "application/json", body)
}

// leadingSystemText concatenates every text block of req's leading system
// message, if any, as the explicit-context fill source (§4.7/§9: the
// distilled spec names the three context slots but not what populates
// them on the client-facing protocols this gateway serves; the system
// prompt is the only client-supplied free text available before the
// translator runs).
func leadingSystemText(req *entity.NormalizedRequest) string {
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
