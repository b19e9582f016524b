// Package streamdecoder wraps the frame codec (C1) and incremental buffer
// (C2) into the typed StreamMessage event sequence the translator (C7)
// consumes.
package streamdecoder

import (
	"go.uber.org/zap"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/framecodec"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/streambuf"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/wireproto"
)

// Field numbers for the upstream response message, as read off the wire.
// There is no generated stub for this schema in the retrieved pack (see
// wireproto's package doc); these are the fields the translator actually
// consumes, addressed directly by number.
const (
	fieldModelInfo     = 1
	fieldText          = 2
	fieldThinking      = 3
	fieldToolCallStart = 4
	fieldToolCallDelta = 5
	fieldToolCallEnd   = 6
	fieldUsage         = 7
	fieldWebReference  = 8
	fieldBeginEdit     = 9
	fieldRangeReplace  = 10
	fieldDebug         = 11
)

const (
	fieldModelInfoName      = 1
	fieldModelInfoMaxTokens = 2

	fieldThinkingKind    = 1
	fieldThinkingPayload = 2

	fieldToolCallID   = 1
	fieldToolCallName = 2
	fieldToolCallArgs = 2

	fieldUsagePrompt     = 1
	fieldUsageCompletion = 2
	fieldUsageCacheRead  = 3
	fieldUsageCacheWrite = 4
	fieldUsageTotalCents = 5

	fieldWebRefTitle = 1
	fieldWebRefURL   = 2
	fieldWebRefChunk = 3

	fieldRangeStartLine = 1
	fieldRangeEndLine   = 2
	fieldRangeText      = 3

	fieldErrorKind   = 1
	fieldErrorDetail = 2
)

// Decoder holds a per-session buffer and the running count of consecutive
// stalled decode calls, which callers use as an upper bound for detecting
// a stalled upstream connection.
type Decoder struct {
	buf         *streambuf.Buffer
	emptyChunks int
	logger      *zap.Logger
}

// New returns a decoder for one upstream session.
func New(logger *zap.Logger) *Decoder {
	return &Decoder{buf: streambuf.New(), logger: logger}
}

// StalledCount reports the running count of consecutive stalled Decode
// calls since the last call that left at least a frame header's worth of
// bytes buffered.
func (d *Decoder) StalledCount() int { return d.emptyChunks }

// Decode feeds one chunk of upstream bytes and returns the StreamMessages
// extracted from any complete frames now available. stalled is true when
// the chunk was empty, or left the buffer with fewer than a frame header's
// worth of bytes — the decoder made no forward progress.
func (d *Decoder) Decode(chunk []byte) (msgs []entity.StreamMessage, stalled bool) {
	if len(chunk) == 0 {
		d.emptyChunks++
		return nil, true
	}

	d.buf.Append(chunk)
	if d.buf.Len() < entity.FrameHeaderSize {
		d.emptyChunks++
		return nil, true
	}
	d.emptyChunks = 0

	it := d.buf.Frames()
	for {
		frame, ok := it.Next()
		if !ok {
			break
		}
		msgs = append(msgs, d.translate(frame)...)
	}
	d.buf.Advance(it.Offset())

	return msgs, false
}

func (d *Decoder) translate(frame entity.Frame) []entity.StreamMessage {
	body := frame.Body
	if frame.Compressed() {
		decoded, err := framecodec.Decompress(body)
		if err != nil {
			if d.logger != nil {
				d.logger.Debug("stream decoder: decompression rejected", zap.Uint8("kind", frame.Kind))
			}
			return []entity.StreamMessage{entity.Error{Kind: entity.ErrExceedSizeLimit, Detail: err.Error()}}
		}
		body = decoded
	}

	switch frame.SubType() {
	case entity.FrameSubTypeData:
		return decodeDataFrame(body)
	case entity.FrameSubTypeControl:
		return decodeControlFrame(body)
	default:
		if d.logger != nil {
			d.logger.Debug("stream decoder: skipping reserved frame kind", zap.Uint8("kind", frame.Kind))
		}
		return nil
	}
}

func decodeControlFrame(body []byte) []entity.StreamMessage {
	if len(body) == 2 {
		return []entity.StreamMessage{entity.StreamEnd{}}
	}

	r := wireproto.NewReader(body)
	var kind, detail string
	for {
		f, ok, err := r.Next()
		if err != nil || !ok {
			break
		}
		switch f.Number {
		case fieldErrorKind:
			kind = f.String()
		case fieldErrorDetail:
			detail = f.String()
		}
	}
	if kind == "" {
		kind = string(entity.ErrUnspecified)
	}
	return []entity.StreamMessage{entity.Error{Kind: entity.ErrorKind(kind), Detail: detail}}
}

func decodeDataFrame(body []byte) []entity.StreamMessage {
	var out []entity.StreamMessage
	r := wireproto.NewReader(body)
	for {
		f, ok, err := r.Next()
		if err != nil {
			break
		}
		if !ok {
			break
		}
		switch f.Number {
		case fieldModelInfo:
			out = append(out, decodeModelInfo(f.Raw))
		case fieldText:
			out = append(out, entity.Text{Text: f.String()})
		case fieldThinking:
			out = append(out, decodeThinking(f.Raw))
		case fieldToolCallStart:
			out = append(out, decodeToolCallStart(f.Raw))
		case fieldToolCallDelta:
			out = append(out, decodeToolCallDelta(f.Raw))
		case fieldToolCallEnd:
			out = append(out, decodeToolCallEnd(f.Raw))
		case fieldUsage:
			out = append(out, decodeUsage(f.Raw))
		case fieldWebReference:
			out = append(out, decodeWebReference(f.Raw))
		case fieldBeginEdit:
			out = append(out, entity.BeginEdit{})
		case fieldRangeReplace:
			out = append(out, decodeRangeReplace(f.Raw))
		case fieldDebug:
			out = append(out, entity.Debug{Info: f.String()})
		}
	}
	// A frame with len(body) == 0 decodes to no fields at all, i.e. the
	// protobuf default instance — translate it to a single empty Text,
	// matching §8's "zero-byte protobuf yields one StreamMessage" rule.
	if len(body) == 0 {
		out = append(out, entity.Text{})
	}
	return out
}

func decodeModelInfo(raw []byte) entity.StreamMessage {
	r := wireproto.NewReader(raw)
	var mi entity.ModelInfo
	for {
		f, ok, err := r.Next()
		if err != nil || !ok {
			break
		}
		switch f.Number {
		case fieldModelInfoName:
			mi.ModelName = f.String()
		case fieldModelInfoMaxTokens:
			mi.MaxTokens = int(f.Int64())
		}
	}
	return mi
}

func decodeThinking(raw []byte) entity.StreamMessage {
	r := wireproto.NewReader(raw)
	var th entity.Thinking
	for {
		f, ok, err := r.Next()
		if err != nil || !ok {
			break
		}
		switch f.Number {
		case fieldThinkingKind:
			th.Kind = entity.ThinkingKind(f.Int64())
		case fieldThinkingPayload:
			th.Payload = f.String()
		}
	}
	return th
}

func decodeToolCallStart(raw []byte) entity.StreamMessage {
	r := wireproto.NewReader(raw)
	var tc entity.ToolCallStart
	for {
		f, ok, err := r.Next()
		if err != nil || !ok {
			break
		}
		switch f.Number {
		case fieldToolCallID:
			tc.ID = f.String()
		case fieldToolCallName:
			tc.Name = f.String()
		}
	}
	return tc
}

func decodeToolCallDelta(raw []byte) entity.StreamMessage {
	r := wireproto.NewReader(raw)
	var tc entity.ToolCallDelta
	for {
		f, ok, err := r.Next()
		if err != nil || !ok {
			break
		}
		switch f.Number {
		case fieldToolCallID:
			tc.ID = f.String()
		case fieldToolCallArgs:
			tc.ArgsChunk = f.String()
		}
	}
	return tc
}

func decodeToolCallEnd(raw []byte) entity.StreamMessage {
	r := wireproto.NewReader(raw)
	var tc entity.ToolCallEnd
	for {
		f, ok, err := r.Next()
		if err != nil || !ok {
			break
		}
		if f.Number == fieldToolCallID {
			tc.ID = f.String()
		}
	}
	return tc
}

func decodeUsage(raw []byte) entity.StreamMessage {
	r := wireproto.NewReader(raw)
	var u entity.Usage
	for {
		f, ok, err := r.Next()
		if err != nil || !ok {
			break
		}
		switch f.Number {
		case fieldUsagePrompt:
			u.Prompt = int(f.Int64())
		case fieldUsageCompletion:
			u.Completion = int(f.Int64())
		case fieldUsageCacheRead:
			u.CacheRead = int(f.Int64())
		case fieldUsageCacheWrite:
			u.CacheWrite = int(f.Int64())
		case fieldUsageTotalCents:
			u.TotalCents = f.Double()
		}
	}
	return u
}

func decodeWebReference(raw []byte) entity.StreamMessage {
	r := wireproto.NewReader(raw)
	var wr entity.WebReference
	for {
		f, ok, err := r.Next()
		if err != nil || !ok {
			break
		}
		switch f.Number {
		case fieldWebRefTitle:
			wr.Title = f.String()
		case fieldWebRefURL:
			wr.URL = f.String()
		case fieldWebRefChunk:
			wr.Chunk = f.String()
		}
	}
	return wr
}

func decodeRangeReplace(raw []byte) entity.StreamMessage {
	r := wireproto.NewReader(raw)
	var rr entity.RangeReplace
	for {
		f, ok, err := r.Next()
		if err != nil || !ok {
			break
		}
		switch f.Number {
		case fieldRangeStartLine:
			rr.StartLine = int(f.Int64())
		case fieldRangeEndLine:
			rr.EndLine = int(f.Int64())
		case fieldRangeText:
			rr.Text = f.String()
		}
	}
	return rr
}
