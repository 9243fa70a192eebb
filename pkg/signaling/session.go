package signaling

import (
	"sync"
	"time"
)

// Session is one negotiated transport connection to a remote peer,
// identified by an opaque unique id. Ids are never reused.
type Session struct {
	id        string
	transport Transport
	createdAt time.Time

	mu     sync.Mutex
	state  State
	closed bool
}

func newSession(id string, transport Transport) *Session {
	return &Session{
		id:        id,
		transport: transport,
		createdAt: time.Now(),
		state:     StatePending,
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Age returns how long the session has existed.
func (s *Session) Age() time.Duration {
	return time.Since(s.createdAt)
}

// setState records an observed transport state transition.
func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Close tears down the underlying transport exactly once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.state = StateClosed
	s.mu.Unlock()

	return s.transport.Close()
}
