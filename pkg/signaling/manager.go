package signaling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	wserrors "webscope/pkg/errors"
	"webscope/pkg/logger"
)

// ConnectInfo is the wire form of an offer or answer on the signaling
// endpoint. ID is empty on a first offer and set on renegotiations.
type ConnectInfo struct {
	SDP  string `json:"sdp"`
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// Event describes a session lifecycle transition, for observers such as
// the event store.
type Event struct {
	SessionID string
	Kind      string // created | established | failed | closed
	At        time.Time
}

// Manager owns the session registry and the offer/answer exchange. Offers
// for different ids are independent; concurrent offers for the same id
// race at the application level (last write to negotiation state wins).
type Manager struct {
	newTransport TransportFactory
	log          *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	shutdown bool

	onChannel func(sessionID string, ch Channel)
	onEvent   func(Event)
}

// NewManager creates a session manager using factory for new transports.
func NewManager(factory TransportFactory, log *logger.Logger) *Manager {
	return &Manager{
		newTransport: factory,
		log:          log,
		sessions:     make(map[string]*Session),
	}
}

// OnChannel sets the observer invoked for every data channel a remote
// peer opens. Set before the first offer is handled.
func (m *Manager) OnChannel(fn func(sessionID string, ch Channel)) {
	m.onChannel = fn
}

// OnEvent sets the session lifecycle observer. Optional.
func (m *Manager) OnEvent(fn func(Event)) {
	m.onEvent = fn
}

// HandleOffer processes one signaling request. An offer without an id
// creates a new session; an offer with an id renegotiates the existing
// one. The returned answer always carries the session id.
func (m *Manager) HandleOffer(ctx context.Context, offer ConnectInfo) (ConnectInfo, error) {
	if offer.SDP == "" || offer.Type == "" {
		return ConnectInfo{}, fmt.Errorf("%w: missing sdp or type", wserrors.ErrInvalidPayload)
	}

	m.mu.RLock()
	down := m.shutdown
	m.mu.RUnlock()
	if down {
		return ConnectInfo{}, wserrors.ErrShuttingDown
	}

	var sess *Session
	if offer.ID != "" {
		m.mu.RLock()
		sess = m.sessions[offer.ID]
		m.mu.RUnlock()
		if sess == nil {
			return ConnectInfo{}, fmt.Errorf("%w: %s", wserrors.ErrUnknownSession, offer.ID)
		}
		m.log.InfoWith("updating connection", "session", sess.ID())
	} else {
		var err error
		sess, err = m.createSession()
		if err != nil {
			return ConnectInfo{}, err
		}
		m.log.InfoWith("new connection", "session", sess.ID())
	}

	if err := sess.transport.ApplyRemote(offer.SDP, offer.Type); err != nil {
		return ConnectInfo{}, fmt.Errorf("%w: set remote description: %v", wserrors.ErrNegotiationFailed, err)
	}

	sdp, kind, err := sess.transport.Answer(ctx)
	if err != nil {
		return ConnectInfo{}, fmt.Errorf("%w: create answer: %v", wserrors.ErrNegotiationFailed, err)
	}

	return ConnectInfo{SDP: sdp, Type: kind, ID: sess.ID()}, nil
}

// createSession allocates an id, builds a transport and registers the
// lifecycle observers before the session becomes reachable.
func (m *Manager) createSession() (*Session, error) {
	transport, err := m.newTransport()
	if err != nil {
		return nil, fmt.Errorf("%w: create transport: %v", wserrors.ErrNegotiationFailed, err)
	}

	id := uuid.NewString()
	sess := newSession(id, transport)

	transport.OnStateChange(func(state State) {
		m.handleStateChange(sess, state)
	})

	if m.onChannel != nil {
		transport.OnChannel(func(ch Channel) {
			m.log.InfoWith("new data channel open", "session", id, "label", ch.Label())
			m.onChannel(id, ch)
		})
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	m.emit(Event{SessionID: id, Kind: "created", At: time.Now()})
	return sess, nil
}

// handleStateChange reacts to asynchronous transport state transitions.
// A terminal failure closes and evicts the session; this is fire-and-forget
// cleanup, never surfaced to a caller.
func (m *Manager) handleStateChange(sess *Session, state State) {
	switch state {
	case StateEstablished:
		sess.setState(StateEstablished)
		m.emit(Event{SessionID: sess.ID(), Kind: "established", At: time.Now()})

	case StateFailed:
		sess.setState(StateFailed)
		m.log.WarnWith("connection failed, closing session", "session", sess.ID())
		m.emit(Event{SessionID: sess.ID(), Kind: "failed", At: time.Now()})
		if err := sess.Close(); err != nil {
			m.log.ErrorWithErr("failed to close session", err, "session", sess.ID())
		}
		m.evict(sess.ID())
	}
}

// evict removes a session from the registry.
func (m *Manager) evict(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// emit notifies the lifecycle observer, if any.
func (m *Manager) emit(ev Event) {
	if m.onEvent != nil {
		m.onEvent(ev)
	}
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// Sessions returns a snapshot of all live sessions.
func (m *Manager) Sessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	return out
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown closes every live session concurrently and clears the
// registry. Offers arriving after Shutdown are rejected.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	m.log.InfoWith("closing sessions", "count", len(sessions))

	var wg sync.WaitGroup
	for _, sess := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			if err := s.Close(); err != nil {
				m.log.ErrorWithErr("error closing session", err, "session", s.ID())
			}
			m.emit(Event{SessionID: s.ID(), Kind: "closed", At: time.Now()})
		}(sess)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
