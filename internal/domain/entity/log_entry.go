package entity

import "time"

// LogStatus is the lifecycle stage of a request log.
type LogStatus int

const (
	LogPending LogStatus = iota
	LogSuccess
	LogFailure
)

func (s LogStatus) String() string {
	switch s {
	case LogPending:
		return "pending"
	case LogSuccess:
		return "success"
	case LogFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// ChainTurn is one per-turn usage delta within a multi-turn request.
type ChainTurn struct {
	TurnIndex int
	Usage     UsageSnapshot
}

// TimingInfo records latency breakdown for a completed request.
type TimingInfo struct {
	QueuedAt   time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the total wall time from queue to completion, or zero
// if the request has not finished yet.
func (t TimingInfo) Duration() time.Duration {
	if t.FinishedAt.IsZero() {
		return 0
	}
	return t.FinishedAt.Sub(t.QueuedAt)
}

// LogEntry is one row of the log manager's bounded ring (C6).
type LogEntry struct {
	ID        uint64
	Timestamp time.Time
	ModelID   string
	TokenKey  TokenKey
	User      *UserProfile
	Usage     *UsageSnapshot
	Chain     []ChainTurn
	Timing    TimingInfo
	Stream    bool
	Status    LogStatus
	Error     ErrorKind
}
