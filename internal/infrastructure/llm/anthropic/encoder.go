package anthropic

import (
	"encoding/base64"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/imageinfo"
)

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// ParseRequest converts a client-sent Request into the adapter-shared
// intermediate representation the translator (C7) consumes.
func ParseRequest(req *Request) (*entity.NormalizedRequest, error) {
	if len(req.Messages) == 0 {
		return nil, entity.NewKindError(entity.ErrEmptyMessages, "messages must not be empty")
	}

	out := &entity.NormalizedRequest{
		ModelID:     req.Model,
		Stream:      req.Stream,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Env:         entity.EnvInfo{},
	}

	if req.System != "" {
		out.Messages = append(out.Messages, entity.Message{
			Role:    entity.RoleSystem,
			Content: []entity.ContentBlock{{Kind: entity.ContentText, Text: req.System}},
		})
	}

	for _, msg := range req.Messages {
		nm, err := parseMessage(msg)
		if err != nil {
			return nil, err
		}
		out.Messages = append(out.Messages, nm)
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, entity.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: ConvertSchema(t.InputSchema),
		})
	}

	applyFollowUpShortcut(out)
	return out, nil
}

// applyFollowUpShortcut detects the tool-call follow-up shortcut (§4.7):
// the conversation's latest message is a tool_result block, and the
// message immediately before it is the assistant tool_use it answers.
// Unlike OpenAI, Anthropic keeps tool calls and their results as blocks
// within user/assistant messages rather than dedicated roles, so both
// sides of the match are ContentBlock scans rather than role checks.
func applyFollowUpShortcut(req *entity.NormalizedRequest) {
	n := len(req.Messages)
	if n < 2 {
		return
	}
	last := req.Messages[n-1]
	prev := req.Messages[n-2]
	if last.Role != entity.RoleUser || prev.Role != entity.RoleAssistant {
		return
	}
	for _, block := range last.Content {
		if block.Kind != entity.ContentToolResult {
			continue
		}
		for _, pb := range prev.Content {
			if pb.Kind == entity.ContentToolUse && pb.ToolCallID == block.ToolResultForID {
				req.FollowUpToolCallID = pb.ToolCallID
				req.FollowUpToolName = pb.ToolName
				req.FollowUpArguments = block.ToolResultText
				return
			}
		}
	}
}

func parseMessage(msg Message) (entity.Message, error) {
	nm := entity.Message{Role: entity.Role(msg.Role)}
	for _, b := range msg.Content {
		switch b.Type {
		case "text":
			nm.Content = append(nm.Content, entity.ContentBlock{Kind: entity.ContentText, Text: b.Text})
		case "thinking":
			nm.Content = append(nm.Content, entity.ContentBlock{
				Kind:            entity.ContentThinking,
				ThinkingKind:    entity.ThinkingText,
				ThinkingPayload: b.Thinking,
			})
		case "image":
			block, err := parseImageBlock(b.Source)
			if err != nil {
				return entity.Message{}, err
			}
			nm.Content = append(nm.Content, block)
		case "tool_use":
			nm.Content = append(nm.Content, entity.ContentBlock{
				Kind:       entity.ContentToolUse,
				ToolCallID: b.ID,
				ToolName:   b.Name,
				ToolInput:  b.Input,
			})
		case "tool_result":
			nm.Content = append(nm.Content, entity.ContentBlock{
				Kind:            entity.ContentToolResult,
				ToolResultForID: b.ToolUseID,
				ToolResultText:  b.Content,
			})
		}
	}
	return nm, nil
}

// parseImageBlock classifies a base64-inline image immediately (bytes are
// already in hand); a URL source is passed through for the HTTP handler to
// fetch and classify via ClassifyFetchedImage, matching the OpenAI adapter.
func parseImageBlock(src *ImageSource) (entity.ContentBlock, error) {
	if src == nil {
		return entity.ContentBlock{Kind: entity.ContentImage}, nil
	}
	if src.Type == "url" {
		return entity.ContentBlock{Kind: entity.ContentImage, ImageURL: src.URL}, nil
	}

	data, err := decodeBase64(src.Data)
	if err != nil {
		return entity.ContentBlock{}, entity.NewKindError(entity.ErrUnsupportedImageFormat, err.Error())
	}
	block := entity.ContentBlock{Kind: entity.ContentImage}
	if err := ClassifyFetchedImage(&block, data); err != nil {
		return entity.ContentBlock{}, err
	}
	return block, nil
}

// ClassifyFetchedImage validates fetched image bytes per §4.8 and fills in
// MimeType on the block, or returns the Input-family error the translator
// should report to the client. Shared in shape with the OpenAI adapter's
// function of the same name; kept per-package since each adapter owns its
// own error envelope.
func ClassifyFetchedImage(block *entity.ContentBlock, data []byte) error {
	format, _, _, err := imageinfo.Classify(data)
	switch err {
	case nil:
		block.ImageBytes = data
		block.MimeType = string(format)
		return nil
	case imageinfo.ErrAnimatedGIF:
		return entity.NewKindError(entity.ErrUnsupportedAnimatedGif, err.Error())
	default:
		return entity.NewKindError(entity.ErrUnsupportedImageFormat, err.Error())
	}
}
