package signaling

import "context"

// State is the lifecycle state of a transport session.
type State int

const (
	StatePending State = iota
	StateEstablished
	StateFailed
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateEstablished:
		return "established"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Message is one discrete payload received on a data channel. IsText
// distinguishes text from binary so echoes preserve the message kind.
type Message struct {
	Data   []byte
	IsText bool
}

// Channel is an open data channel exposed by the transport layer.
type Channel interface {
	// Label returns the channel name chosen by the remote peer
	Label() string

	// Send writes a binary message, fire-and-forget
	Send(data []byte) error

	// SendText writes a text message
	SendText(text string) error

	// IsOpen reports whether the channel is currently deliverable
	IsOpen() bool

	// OnClose registers the close observer
	OnClose(fn func())

	// OnMessage registers the inbound message observer
	OnMessage(fn func(Message))
}

// Transport is one negotiated peer connection. The manager only drives
// the offer/answer contract and observes lifecycle events; negotiation
// mechanics belong to the implementation.
type Transport interface {
	// ApplyRemote consumes a remote session description
	ApplyRemote(sdp, kind string) error

	// Answer produces the local answer description, blocking until the
	// description is complete or ctx expires
	Answer(ctx context.Context) (sdp, kind string, err error)

	// OnStateChange registers the connection state observer
	OnStateChange(fn func(State))

	// OnChannel registers the data-channel-opened observer
	OnChannel(fn func(Channel))

	// Close tears down the connection
	Close() error
}

// TransportFactory creates a transport for a new session.
type TransportFactory func() (Transport, error)
