// Package logstore implements the log manager (C6): a bounded, ordered
// request-log sequence with a refcounted token side table, mutated
// exclusively by a single dedicated goroutine.
package logstore

import (
	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
)

// LogsLimit selects the ring's retention policy: Off drops every push
// (REQUEST_LOGS_LIMIT=0), Unbounded never evicts, otherwise the ring holds
// at most N entries.
type LogsLimit struct {
	Off       bool
	Unbounded bool
	N         int // meaningful only when neither Off nor Unbounded; must be >= 1
}

// Disabled returns the Off limit: push is a no-op.
func Disabled() LogsLimit { return LogsLimit{Off: true} }

// Unbounded returns the limit under which push never evicts.
func Unbounded() LogsLimit { return LogsLimit{Unbounded: true} }

// Limited returns a ring bounded to at most n entries.
func Limited(n int) LogsLimit {
	if n < 1 {
		n = 1
	}
	return LogsLimit{N: n}
}

// state is the mutable data a Manager's owning goroutine exclusively
// touches; every mutation and query runs on that goroutine via Manager.do.
type state struct {
	logs      []entity.LogEntry
	sideTable map[entity.TokenKey]*entity.TokenEntry
	refcount  map[entity.TokenKey]int
	limit     LogsLimit
}

func newState(limit LogsLimit) *state {
	return &state{
		sideTable: make(map[entity.TokenKey]*entity.TokenEntry),
		refcount:  make(map[entity.TokenKey]int),
		limit:     limit,
	}
}

// push appends log, maintaining the side table and refcounts. If the ring
// is full, the oldest entry is evicted first.
func (s *state) push(log entity.LogEntry, tok *entity.TokenEntry) {
	if s.limit.Off {
		return
	}
	if s.limit.Unbounded {
		s.logs = append(s.logs, log)
		s.bumpRef(log.TokenKey, tok)
		return
	}

	if len(s.logs) == s.limit.N {
		old := s.logs[0]
		s.logs = s.logs[1:]
		s.dropRef(old.TokenKey)
	}

	s.logs = append(s.logs, log)
	s.bumpRef(log.TokenKey, tok)
}

func (s *state) bumpRef(key entity.TokenKey, tok *entity.TokenEntry) {
	if tok != nil {
		s.sideTable[key] = tok
	}
	s.refcount[key]++
}

func (s *state) dropRef(key entity.TokenKey) {
	s.refcount[key]--
	if s.refcount[key] <= 0 {
		delete(s.refcount, key)
		delete(s.sideTable, key)
	}
}

// findIndex searches back-to-front for id, returning -1 if absent.
func (s *state) findIndex(id uint64) int {
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *state) find(id uint64) (entity.LogEntry, bool) {
	i := s.findIndex(id)
	if i < 0 {
		return entity.LogEntry{}, false
	}
	return s.logs[i], true
}

func (s *state) update(id uint64, f func(*entity.LogEntry)) bool {
	i := s.findIndex(id)
	if i < 0 {
		return false
	}
	f(&s.logs[i])
	return true
}

func (s *state) nextLogID() uint64 {
	if len(s.logs) == 0 {
		return 1
	}
	return s.logs[len(s.logs)-1].ID + 1
}

func (s *state) total() int { return len(s.logs) }

func (s *state) errors() int {
	n := 0
	for _, l := range s.logs {
		if l.Status == entity.LogFailure {
			n++
		}
	}
	return n
}

// rebuildRefcount recomputes refcount and evicts any side-table entry no
// longer referenced by a log, used after load().
func (s *state) rebuildRefcount() {
	s.refcount = make(map[entity.TokenKey]int, len(s.sideTable))
	for _, l := range s.logs {
		s.refcount[l.TokenKey]++
	}
	for key := range s.sideTable {
		if s.refcount[key] == 0 {
			delete(s.sideTable, key)
		}
	}
}
