package tokenstore

import (
	"sync"
	"time"
)

// HealthState is the circuit-breaker state of one token.
type HealthState int

const (
	HealthHealthy  HealthState = iota // normal operation
	HealthUnhealthy                   // failing, skip this token
	HealthProbing                     // testing recovery
)

func (s HealthState) String() string {
	switch s {
	case HealthHealthy:
		return "healthy"
	case HealthUnhealthy:
		return "unhealthy"
	case HealthProbing:
		return "probing"
	default:
		return "unknown"
	}
}

type tokenCircuit struct {
	state           HealthState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
}

// HealthTracker is a per-token circuit breaker pool: policy layers above
// the core registry use it to skip an unhealthy token without removing it
// from the registry outright. Adapted from the teacher's per-provider
// CircuitBreaker to per-token granularity.
type HealthTracker struct {
	mu               sync.Mutex
	circuits         map[int]*tokenCircuit
	failureThreshold int
	recoveryTimeout  time.Duration
}

// NewHealthTracker returns a tracker with the given consecutive-failure
// threshold and recovery probe delay. A zero delay makes an unhealthy
// token eligible for a probe immediately; a negative one selects 30s.
func NewHealthTracker(failureThreshold int, recoveryTimeout time.Duration) *HealthTracker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout < 0 {
		recoveryTimeout = 30 * time.Second
	}
	return &HealthTracker{
		circuits:         make(map[int]*tokenCircuit),
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

func (h *HealthTracker) circuitFor(id int) *tokenCircuit {
	c, ok := h.circuits[id]
	if !ok {
		c = &tokenCircuit{state: HealthHealthy}
		h.circuits[id] = c
	}
	return c
}

// IsHealthy reports whether id should currently be used. An unhealthy
// token becomes eligible for one probe once the recovery timeout elapses.
func (h *HealthTracker) IsHealthy(id int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.circuitFor(id)
	switch c.state {
	case HealthHealthy:
		return true
	case HealthUnhealthy:
		if time.Since(c.lastFailureTime) >= h.recoveryTimeout {
			c.state = HealthProbing
			c.successCount = 0
			return true
		}
		return false
	case HealthProbing:
		return true
	}
	return false
}

// MarkHealthy records a success against id, closing the circuit if it was
// probing.
func (h *HealthTracker) MarkHealthy(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.circuitFor(id)
	c.failureCount = 0
	if c.state == HealthProbing {
		c.successCount++
		if c.successCount >= 1 {
			c.state = HealthHealthy
		}
	}
}

// MarkUnhealthy records a failure against id. A failure while probing
// immediately re-opens the circuit; otherwise the circuit opens once
// failureThreshold consecutive failures accumulate.
func (h *HealthTracker) MarkUnhealthy(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.circuitFor(id)
	c.failureCount++
	c.lastFailureTime = time.Now()

	if c.state == HealthProbing {
		c.state = HealthUnhealthy
		return
	}
	if c.failureCount >= h.failureThreshold {
		c.state = HealthUnhealthy
	}
}

// State reports id's current health state.
func (h *HealthTracker) State(id int) HealthState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.circuitFor(id).state
}

// Reset forces id's circuit back to healthy, e.g. after an operator fixes
// the underlying credential.
func (h *HealthTracker) Reset(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.circuitFor(id)
	c.state = HealthHealthy
	c.failureCount = 0
	c.successCount = 0
}
