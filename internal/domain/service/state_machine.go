package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ContentState is the coarse lifecycle of one upstream response stream.
type ContentState string

const (
	StateNotStarted       ContentState = "not_started"
	StateContentBlockActive ContentState = "content_block_active"
	StateCompleted        ContentState = "completed"
)

// validTransitions defines the allowed state transitions.
var validTransitions = map[ContentState]map[ContentState]bool{
	StateNotStarted: {
		StateContentBlockActive: true,
		StateCompleted:          true, // a stream can end with no content at all
	},
	StateContentBlockActive: {
		StateContentBlockActive: true, // re-entrant: tool calls interleave within this state
		StateCompleted:          true,
	},
	StateCompleted: {},
}

// ContentKind distinguishes what kind of content block is currently open,
// so adapters can decide when to close one boundary and open another.
type ContentKind int

const (
	ContentNone ContentKind = iota
	ContentThinking
	ContentText
	ContentInputJSON
)

func (k ContentKind) String() string {
	switch k {
	case ContentNone:
		return "none"
	case ContentThinking:
		return "thinking"
	case ContentText:
		return "text"
	case ContentInputJSON:
		return "input_json"
	default:
		return "unknown"
	}
}

// StateSnapshot captures the translator's runtime state at a point in time.
type StateSnapshot struct {
	State       ContentState
	LastContent ContentKind
	Elapsed     time.Duration
	ModelUsed   string
}

// StateMachine tracks one session's content-block lifecycle. A session is
// owned by exactly one goroutine for its whole lifetime, so unlike the
// teacher's multi-reader StateMachine this one carries no mutex.
type StateMachine struct {
	state       ContentState
	lastContent ContentKind
	startTime   time.Time
	modelUsed   string
	logger      *zap.Logger

	listeners []func(from, to ContentState, snap StateSnapshot)
}

// NewStateMachine creates a state machine starting in NotStarted.
func NewStateMachine(logger *zap.Logger) *StateMachine {
	return &StateMachine{
		state:     StateNotStarted,
		startTime: time.Now(),
		logger:    logger,
	}
}

// State returns the current state.
func (sm *StateMachine) State() ContentState { return sm.state }

// LastContent returns the most recently opened content kind.
func (sm *StateMachine) LastContent() ContentKind { return sm.lastContent }

// Snapshot returns a copy of the current runtime state.
func (sm *StateMachine) Snapshot() StateSnapshot {
	return StateSnapshot{
		State:       sm.state,
		LastContent: sm.lastContent,
		Elapsed:     time.Since(sm.startTime),
		ModelUsed:   sm.modelUsed,
	}
}

// Transition attempts to move to a new state, returning an error if the
// transition is not allowed.
func (sm *StateMachine) Transition(to ContentState) error {
	from := sm.state

	allowed, ok := validTransitions[from]
	if !ok || !allowed[to] {
		err := fmt.Errorf("invalid state transition: %s -> %s", from, to)
		sm.logger.Error("state machine violation", zap.Error(err))
		return err
	}

	sm.state = to
	snap := sm.Snapshot()

	sm.logger.Debug("state transition",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)

	for _, fn := range sm.listeners {
		fn(from, to, snap)
	}
	return nil
}

// OnTransition registers a listener called on every state change.
func (sm *StateMachine) OnTransition(fn func(from, to ContentState, snap StateSnapshot)) {
	sm.listeners = append(sm.listeners, fn)
}

// SetLastContent records which content kind is currently open, so the
// adapter layer can tell when a boundary needs to close before a new one
// opens (e.g. Text following Thinking, or a tool call following Text).
func (sm *StateMachine) SetLastContent(kind ContentKind) { sm.lastContent = kind }

// SetModel records the resolved model id for logging/snapshot purposes.
func (sm *StateMachine) SetModel(model string) { sm.modelUsed = model }

// IsTerminal reports whether the machine has reached Completed.
func (sm *StateMachine) IsTerminal() bool { return sm.state == StateCompleted }
