// Package upstream implements the translator (C7): it turns a normalized
// request into an upstream HTTP streaming call, decodes the response
// through the stream decoder (C3), drives the session's state machine, and
// finalizes the request log for every terminal outcome.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
	"github.com/ngoclaw/upstreamgw/internal/domain/service"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/framecodec"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/logstore"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/streamdecoder"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/tokenstore"
)

// DefaultChatURL is the upstream streaming RPC endpoint every session
// targets unless overridden for testing.
const DefaultChatURL = "https://api2.cursor.sh/aiserver.v1.ChatService/StreamChat"

// maxStalledChunks bounds how many consecutive empty/sub-header chunks the
// session tolerates before giving up on the upstream connection and
// reporting entity.ErrStreamStalled rather than hanging forever.
const maxStalledChunks = 30

// readChunkSize is the buffer size used to pull bytes off the upstream
// response body between decode attempts.
const readChunkSize = 32 * 1024

// ErrNoTokenInfo is returned when a token entry has no decoded credential
// to derive upstream headers from.
var ErrNoTokenInfo = fmt.Errorf("upstream: token has no credential info")

// Session drives one upstream streaming call end to end.
type Session struct {
	httpClient    *http.Client
	chatURL       string
	clientVersion string
	logger        *zap.Logger
	logs          *logstore.Manager
	health        *tokenstore.HealthTracker
}

// New returns a Session bound to the given upstream chat endpoint.
func New(httpClient *http.Client, chatURL, clientVersion string, logger *zap.Logger, logs *logstore.Manager, health *tokenstore.HealthTracker) *Session {
	return &Session{
		httpClient:    httpClient,
		chatURL:       chatURL,
		clientVersion: clientVersion,
		logger:        logger,
		logs:          logs,
		health:        health,
	}
}

// Emit is called once per decoded StreamMessage, in wire order.
type Emit func(entity.StreamMessage)

// Run performs one request: builds the wire body, opens the upstream
// streaming call, decodes the response, drives sm, and calls emit for every
// message the decoder produces. It blocks until the stream ends, the
// upstream reports an error, ctx is cancelled, or the connection stalls.
// The returned log entry reflects the request's final outcome.
func (s *Session) Run(ctx context.Context, req *entity.NormalizedRequest, tok *entity.TokenEntry, sm *service.StateMachine, emit Emit) entity.LogEntry {
	logID := s.logs.NextLogID()
	log := entity.LogEntry{
		ID:       logID,
		ModelID:  req.ModelID,
		TokenKey: tok.Key,
		Stream:   req.Stream,
		Status:   entity.LogPending,
		Timing:   entity.TimingInfo{QueuedAt: time.Now(), StartedAt: time.Now()},
	}
	s.logs.Push(log, tok)

	finalize := func(status entity.LogStatus, kind entity.ErrorKind) entity.LogEntry {
		s.logs.Update(logID, func(e *entity.LogEntry) {
			e.Status = status
			e.Error = kind
			e.Timing.FinishedAt = time.Now()
		})
		entry, _ := s.logs.Find(logID)
		return entry
	}

	resp, err := s.doRequest(ctx, req, tok)
	if err != nil {
		if s.health != nil {
			s.health.MarkUnhealthy(tok.ID)
		}
		emit(entity.Error{Kind: entity.ErrUpstream, Detail: err.Error()})
		return finalize(entity.LogFailure, entity.ErrUpstream)
	}

	stream := NewDroppableStream(resp.Body)
	defer stream.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			stream.Drop()
		case <-done:
		}
	}()

	decoder := streamdecoder.New(s.logger)
	outcome := s.pump(ctx, stream, decoder, sm, log.TokenKey, logID, emit)

	if s.health != nil {
		if outcome == "" {
			s.health.MarkHealthy(tok.ID)
		} else {
			s.health.MarkUnhealthy(tok.ID)
		}
	}

	if outcome == "" {
		return finalize(entity.LogSuccess, "")
	}
	return finalize(entity.LogFailure, outcome)
}

// pump reads the response body, feeding every chunk through decoder,
// dispatching each decoded message to emit and the state machine, and
// returns "" on a clean StreamEnd or the terminating error kind otherwise.
// A read failure caused by the client disconnecting (ctx cancelled, or
// stream.Drop called from Run's watcher goroutine) is reported as
// ErrUserAbortedRequest rather than ErrStreamStalled, since the upstream
// session was deliberately torn down, not abandoned by the upstream side.
func (s *Session) pump(ctx context.Context, stream *DroppableStream, decoder *streamdecoder.Decoder, sm *service.StateMachine, tokenKey entity.TokenKey, logID uint64, emit Emit) entity.ErrorKind {
	buf := make([]byte, readChunkSize)
	stalled := 0

	for {
		n, readErr := stream.Read(buf)
		if n > 0 {
			msgs, wasStalled := decoder.Decode(buf[:n])
			if wasStalled {
				stalled++
			} else {
				stalled = 0
			}
			for _, msg := range msgs {
				if terminal, kind := s.dispatch(sm, msg, tokenKey, logID, emit); terminal {
					return kind
				}
			}
		} else {
			stalled++
		}

		if readErr != nil {
			if stream.Dropped() || ctx.Err() != nil {
				emit(entity.Error{Kind: entity.ErrUserAbortedRequest})
				return entity.ErrUserAbortedRequest
			}
			if readErr == io.EOF {
				// Connection closed without a StreamEnd control frame: the
				// upstream session never reached a terminal state.
				emit(entity.Error{Kind: entity.ErrStreamStalled})
				return entity.ErrStreamStalled
			}
			emit(entity.Error{Kind: entity.ErrUpstream, Detail: readErr.Error()})
			return entity.ErrUpstream
		}

		if stalled >= maxStalledChunks {
			emit(entity.Error{Kind: entity.ErrStreamStalled})
			return entity.ErrStreamStalled
		}
	}
}

// dispatch applies one decoded message to the state machine and usage
// accounting, then forwards it to emit. terminal is true once the stream
// has reached a final outcome (StreamEnd or Error), in which case kind
// names that outcome ("" for a clean end).
func (s *Session) dispatch(sm *service.StateMachine, msg entity.StreamMessage, tokenKey entity.TokenKey, logID uint64, emit Emit) (terminal bool, kind entity.ErrorKind) {
	switch m := msg.(type) {
	case entity.ModelInfo:
		sm.SetModel(m.ModelName)

	case entity.Text:
		s.openContentBlock(sm, service.ContentText)

	case entity.Thinking:
		s.openContentBlock(sm, service.ContentThinking)

	case entity.ToolCallStart:
		s.openContentBlock(sm, service.ContentInputJSON)

	case entity.ToolCallDelta, entity.ToolCallEnd, entity.RangeReplace, entity.BeginEdit, entity.WebReference, entity.Debug:
		// No content-block-boundary implications beyond what their
		// surrounding ToolCallStart/Text/Thinking already opened.

	case entity.Usage:
		s.logs.Update(logID, func(e *entity.LogEntry) {
			e.Usage = &entity.UsageSnapshot{
				Prompt:     m.Prompt,
				Completion: m.Completion,
				CacheRead:  m.CacheRead,
				CacheWrite: m.CacheWrite,
				TotalCents: m.TotalCents,
			}
		})

	case entity.StreamEnd:
		_ = sm.Transition(service.StateCompleted)
		emit(msg)
		return true, ""

	case entity.Error:
		_ = sm.Transition(service.StateCompleted)
		emit(msg)
		return true, m.Kind
	}

	emit(msg)
	return false, ""
}

// openContentBlock transitions NotStarted -> ContentBlockActive on the
// first content of any kind, and records kind as the last-opened content
// so later messages can tell when a boundary needs to close.
func (s *Session) openContentBlock(sm *service.StateMachine, kind service.ContentKind) {
	if sm.State() == service.StateNotStarted {
		_ = sm.Transition(service.StateContentBlockActive)
	}
	sm.SetLastContent(kind)
}

// doRequest builds and sends the upstream HTTP request for req, using tok's
// credential to derive headers.
func (s *Session) doRequest(ctx context.Context, req *entity.NormalizedRequest, tok *entity.TokenEntry) (*http.Response, error) {
	if tok.Credential.TokenInfo == nil {
		return nil, ErrNoTokenInfo
	}

	body := BuildRequest(req)
	frame, err := framecodec.EncodeFramed(entity.FrameSubTypeData, body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.chatURL, bytes.NewReader(frame))
	if err != nil {
		return nil, err
	}
	httpReq.Header = Headers(tok, s.clientVersion)
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("upstream: unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}

// FollowUp reports whether req's latest message is a tool result matching
// the assistant's immediately-preceding tool call, letting the caller skip
// re-deriving request state that the existing conversation already fixed.
func FollowUp(req *entity.NormalizedRequest) bool {
	return req.FollowUpToolCallID != ""
}
