package service

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func TestNewStateMachine(t *testing.T) {
	sm := NewStateMachine(testLogger())
	if sm.State() != StateNotStarted {
		t.Errorf("expected initial state NotStarted, got %s", sm.State())
	}
	if sm.IsTerminal() {
		t.Error("new state machine should not be terminal")
	}
	if sm.LastContent() != ContentNone {
		t.Errorf("expected initial LastContent None, got %s", sm.LastContent())
	}
}

func TestTransition_ValidPaths(t *testing.T) {
	tests := []struct {
		name string
		path []ContentState
	}{
		{"not_started -> content_block_active -> completed", []ContentState{StateContentBlockActive, StateCompleted}},
		{"not_started -> completed (empty stream)", []ContentState{StateCompleted}},
		{"content block re-entrant for interleaved tool calls", []ContentState{StateContentBlockActive, StateContentBlockActive, StateContentBlockActive, StateCompleted}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachine(testLogger())
			for _, state := range tt.path {
				if err := sm.Transition(state); err != nil {
					t.Fatalf("failed transition to %s: %v", state, err)
				}
			}
			last := tt.path[len(tt.path)-1]
			if sm.State() != last {
				t.Errorf("expected state %s, got %s", last, sm.State())
			}
		})
	}
}

func TestTransition_InvalidPaths(t *testing.T) {
	sm := NewStateMachine(testLogger())
	if err := sm.Transition(StateCompleted); err != nil {
		t.Fatalf("not_started -> completed should be valid: %v", err)
	}
	if err := sm.Transition(StateContentBlockActive); err == nil {
		t.Errorf("expected completed -> content_block_active to be rejected (terminal state)")
	}
}

func TestIsTerminal(t *testing.T) {
	sm := NewStateMachine(testLogger())
	if sm.IsTerminal() {
		t.Errorf("NotStarted should not be terminal")
	}
	_ = sm.Transition(StateContentBlockActive)
	if sm.IsTerminal() {
		t.Errorf("ContentBlockActive should not be terminal")
	}
	_ = sm.Transition(StateCompleted)
	if !sm.IsTerminal() {
		t.Errorf("Completed should be terminal")
	}
}

func TestLastContentTracksBoundaries(t *testing.T) {
	sm := NewStateMachine(testLogger())
	_ = sm.Transition(StateContentBlockActive)

	sm.SetLastContent(ContentThinking)
	if sm.LastContent() != ContentThinking {
		t.Fatalf("got %s, want thinking", sm.LastContent())
	}
	sm.SetLastContent(ContentText)
	if sm.LastContent() != ContentText {
		t.Fatalf("got %s, want text", sm.LastContent())
	}
	sm.SetLastContent(ContentInputJSON)
	if sm.LastContent() != ContentInputJSON {
		t.Fatalf("got %s, want input_json", sm.LastContent())
	}
}

func TestOnTransitionListener(t *testing.T) {
	sm := NewStateMachine(testLogger())

	var transitions []struct{ from, to ContentState }
	sm.OnTransition(func(from, to ContentState, snap StateSnapshot) {
		transitions = append(transitions, struct{ from, to ContentState }{from, to})
	})

	_ = sm.Transition(StateContentBlockActive)
	_ = sm.Transition(StateCompleted)

	if len(transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(transitions))
	}
	if transitions[0].from != StateNotStarted || transitions[0].to != StateContentBlockActive {
		t.Errorf("transition[0]: got %s->%s", transitions[0].from, transitions[0].to)
	}
	if transitions[1].from != StateContentBlockActive || transitions[1].to != StateCompleted {
		t.Errorf("transition[1]: got %s->%s", transitions[1].from, transitions[1].to)
	}
}

func TestSnapshotModelAndElapsed(t *testing.T) {
	sm := NewStateMachine(testLogger())
	sm.SetModel("gpt-4o")

	snap1 := sm.Snapshot()
	if snap1.ModelUsed != "gpt-4o" {
		t.Errorf("ModelUsed: got %s, want gpt-4o", snap1.ModelUsed)
	}

	time.Sleep(2 * time.Millisecond)
	snap2 := sm.Snapshot()
	if snap2.Elapsed <= snap1.Elapsed {
		t.Errorf("elapsed should increase: %v <= %v", snap2.Elapsed, snap1.Elapsed)
	}
}
