package db

import "sync"

// State follows the numbering document-store drivers report as readyState,
// plus a terminal state for an exhausted retry budget.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateConnecting
	StateDisconnecting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateConnecting:
		return "connecting"
	case StateDisconnecting:
		return "disconnecting"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Status is a point-in-time copy of the connection status. readyState is
// the numeric State; state is its name.
type Status struct {
	Connected bool   `json:"isConnected"`
	State     State  `json:"readyState"`
	StateName string `json:"state"`
	Host      string `json:"host"`
	Name      string `json:"name"`
	Retries   int    `json:"retries"`
}

// ConnStatus is the process-wide connection state. Every transition, and the
// retry counter that goes with it, changes under one lock.
type ConnStatus struct {
	mu        sync.Mutex
	state     State
	connected bool
	retries   int
	host      string
	name      string
}

func NewConnStatus() *ConnStatus {
	return &ConnStatus{state: StateDisconnected}
}

func (s *ConnStatus) MarkConnecting() {
	s.mu.Lock()
	s.state = StateConnecting
	s.connected = false
	s.mu.Unlock()
}

// MarkConnected also resets the retry counter.
func (s *ConnStatus) MarkConnected(host, name string) {
	s.mu.Lock()
	s.state = StateConnected
	s.connected = true
	s.retries = 0
	s.host = host
	s.name = name
	s.mu.Unlock()
}

func (s *ConnStatus) MarkDisconnecting() {
	s.mu.Lock()
	s.state = StateDisconnecting
	s.mu.Unlock()
}

func (s *ConnStatus) MarkDisconnected() {
	s.mu.Lock()
	s.state = StateDisconnected
	s.connected = false
	s.mu.Unlock()
}

func (s *ConnStatus) MarkTerminated() {
	s.mu.Lock()
	s.state = StateTerminated
	s.connected = false
	s.mu.Unlock()
}

// IncrementRetry consumes one unit of the retry budget and moves the state to
// connecting. It reports false, leaving the counter untouched, once max
// retries have been spent.
func (s *ConnStatus) IncrementRetry(max int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retries >= max {
		return s.retries, false
	}

	s.retries++
	s.state = StateConnecting
	s.connected = false

	return s.retries, true
}

func (s *ConnStatus) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		Connected: s.connected,
		State:     s.state,
		StateName: s.state.String(),
		Host:      s.host,
		Name:      s.name,
		Retries:   s.retries,
	}
}
