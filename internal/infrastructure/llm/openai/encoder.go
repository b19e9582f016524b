package openai

import (
	"encoding/json"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/imageinfo"
)

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

	for _, msg := range req.Messages {
		nm, err := parseMessage(msg)
		if err != nil {
			return nil, err
		}
		out.Messages = append(out.Messages, nm)
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, entity.Tool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: ConvertSchema(t.Function.Parameters),
		})
	}

	applyFollowUpShortcut(out)
	return out, nil
}

// applyFollowUpShortcut detects the tool-call follow-up shortcut (§4.7):
// the conversation's latest message is a tool result, and the message
// immediately before it is the assistant tool call it answers.
func applyFollowUpShortcut(req *entity.NormalizedRequest) {
	n := len(req.Messages)
	if n < 2 {
		return
	}
	last := req.Messages[n-1]
	prev := req.Messages[n-2]
	if last.Role != entity.RoleTool || prev.Role != entity.RoleAssistant {
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
	role := entity.Role(msg.Role)

	if len(msg.ToolCalls) > 0 {
		nm := entity.Message{Role: entity.RoleAssistant}
		if parts, err := msg.Parts(); err == nil {
			for _, p := range parts {
				if p.Type == "text" && p.Text != "" {
					nm.Content = append(nm.Content, entity.ContentBlock{Kind: entity.ContentText, Text: p.Text})
				}
			}
		}
		for _, tc := range msg.ToolCalls {
			var input map[string]any
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
			nm.Content = append(nm.Content, entity.ContentBlock{
				Kind:       entity.ContentToolUse,
				ToolCallID: tc.ID,
				ToolName:   tc.Function.Name,
				ToolInput:  input,
			})
		}
		return nm, nil
	}

	if msg.ToolCallID != "" {
		parts, err := msg.Parts()
		if err != nil {
			return entity.Message{}, err
		}
		return entity.Message{
			Role: entity.RoleTool,
			Content: []entity.ContentBlock{{
				Kind:            entity.ContentToolResult,
				ToolResultForID: msg.ToolCallID,
				ToolResultText:  joinText(parts),
			}},
		}, nil
	}

	parts, err := msg.Parts()
	if err != nil {
		return entity.Message{}, err
	}

	nm := entity.Message{Role: role}
	for _, p := range parts {
		switch p.Type {
		case "text":
			nm.Content = append(nm.Content, entity.ContentBlock{Kind: entity.ContentText, Text: p.Text})
		case "image_url":
			if p.ImageURL == nil {
				continue
			}
			block, err := parseImageBlock(p.ImageURL.URL)
			if err != nil {
				return entity.Message{}, err
			}
			nm.Content = append(nm.Content, block)
		}
	}
	return nm, nil
}

func joinText(parts []ContentPart) string {
	var out string
	for _, p := range parts {
		out += p.Text
	}
	return out
}

// parseImageBlock records an image_url part as an image block carrying
// only its URL; it neither fetches nor classifies anything, and a base64
// data URL is kept as a URL like any other.
func parseImageBlock(url string) (entity.ContentBlock, error) {
	// Fetching happens in the HTTP handler after ParseRequest returns,
	// which has the request context and client timeout; the handler then
	// classifies the fetched bytes with ClassifyFetchedImage.
	return entity.ContentBlock{Kind: entity.ContentImage, ImageURL: url}, nil
}

// ClassifyFetchedImage validates fetched image bytes per §4.8 and fills in
// MimeType on the block, or returns the Input-family error the translator
// should report to the client.
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
