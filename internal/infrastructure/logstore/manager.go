package logstore

import (
	"go.uber.org/zap"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
	"github.com/ngoclaw/upstreamgw/pkg/safego"
)

// mutationQueueDepth bounds the number of pending operations the owning
// goroutine has queued up; a full queue applies backpressure to callers
// rather than growing unbounded.
const mutationQueueDepth = 256

// Manager is the log manager's public handle. Every mutation and every
// query runs on a single dedicated goroutine (grounded on the teacher's
// pkg/safego.Go background-goroutine idiom), so the underlying state never
// needs its own mutex.
type Manager struct {
	ops chan func(*state)
	st  *state
}

// New starts a Manager's owning goroutine with the given retention limit.
func New(logger *zap.Logger, limit LogsLimit) *Manager {
	m := &Manager{
		ops: make(chan func(*state), mutationQueueDepth),
		st:  newState(limit),
	}
	safego.Go(logger, "logstore-owner", m.run)
	return m
}

func (m *Manager) run() {
	for op := range m.ops {
		op(m.st)
	}
}

// Close stops the owning goroutine. No further calls must be made after
// Close returns.
func (m *Manager) Close() {
	close(m.ops)
}

func (m *Manager) do(f func(*state)) {
	done := make(chan struct{})
	m.ops <- func(s *state) {
		f(s)
		close(done)
	}
	<-done
}

// Push appends a log entry, evicting the oldest entry first if the ring is
// full, and upserts the side table / refcount for its token.
func (m *Manager) Push(log entity.LogEntry, tok *entity.TokenEntry) {
	m.do(func(s *state) { s.push(log, tok) })
}

// Update applies f to the log with the given id, searching back-to-front.
// Returns false if no such log exists.
func (m *Manager) Update(id uint64, f func(*entity.LogEntry)) bool {
	var ok bool
	m.do(func(s *state) { ok = s.update(id, f) })
	return ok
}

// Find returns the log with the given id, searching back-to-front.
func (m *Manager) Find(id uint64) (entity.LogEntry, bool) {
	var (
		entry entity.LogEntry
		found bool
	)
	m.do(func(s *state) { entry, found = s.find(id) })
	return entry, found
}

// NextLogID returns the id the next pushed log should use.
func (m *Manager) NextLogID() uint64 {
	var id uint64
	m.do(func(s *state) { id = s.nextLogID() })
	return id
}

// Total returns the current number of logs in the ring.
func (m *Manager) Total() int {
	var n int
	m.do(func(s *state) { n = s.total() })
	return n
}

// Errors returns the number of logs currently in Failure status.
func (m *Manager) Errors() int {
	var n int
	m.do(func(s *state) { n = s.errors() })
	return n
}
