package broadcast

import "sync"

// Sender is an outbound data channel as seen by the broadcast loop. The
// transport layer owns the channel state; the registry only observes it.
type Sender interface {
	// Send attempts a fire-and-forget delivery of one frame payload
	Send(data []byte) error

	// IsOpen reports whether the channel is still in a deliverable state
	IsOpen() bool

	// OnClose registers the single close observer for the channel
	OnClose(fn func())
}

// Registry tracks the set of channels eligible for broadcast. Additions
// take effect immediately; removals are requested concurrently by channel
// close callbacks but only applied by the broadcast loop at cycle
// boundaries, so close events firing mid-cycle never mutate the set the
// loop is iterating.
type Registry struct {
	mu      sync.Mutex
	active  map[Sender]struct{}
	pending map[Sender]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		active:  make(map[Sender]struct{}),
		pending: make(map[Sender]struct{}),
	}
}

// Add inserts a channel into the active set and wires its close observer
// to request deferred removal. Duplicate removal requests are harmless.
func (r *Registry) Add(s Sender) {
	s.OnClose(func() {
		r.Defer(s)
	})

	r.mu.Lock()
	r.active[s] = struct{}{}
	r.mu.Unlock()
}

// Defer queues a channel for removal at the next cycle boundary.
func (r *Registry) Defer(s Sender) {
	r.mu.Lock()
	r.pending[s] = struct{}{}
	r.mu.Unlock()
}

// BeginCycle swaps out the pending-removal set, subtracts it from the
// active set, and returns a snapshot of the survivors. Channels added
// after the snapshot join the next cycle.
func (r *Registry) BeginCycle() []Sender {
	r.mu.Lock()
	defer r.mu.Unlock()

	removals := r.pending
	r.pending = make(map[Sender]struct{})
	for s := range removals {
		delete(r.active, s)
	}

	snapshot := make([]Sender, 0, len(r.active))
	for s := range r.active {
		snapshot = append(snapshot, s)
	}
	return snapshot
}

// RemovalQueued reports whether a channel was queued for removal during
// the current cycle.
func (r *Registry) RemovalQueued(s Sender) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[s]
	return ok
}

// Len returns the current active set size.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
