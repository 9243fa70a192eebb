package broadcast

import (
	"context"
	"sync/atomic"
	"time"

	"webscope/pkg/logger"
)

// progress log cadence, in frames
const logEveryNFrames = 64

// Stats is a snapshot of broadcaster counters.
type Stats struct {
	ActiveChannels  int           `json:"active_channels"`
	FramesGenerated uint64        `json:"frames_generated"`
	Deliveries      uint64        `json:"deliveries"`
	SoftErrors      uint64        `json:"soft_errors"`
	Pruned          uint64        `json:"pruned"`
	LastCycleWork   time.Duration `json:"last_cycle_work_ns"`
}

// Broadcaster drives the frame clock and best-effort delivers each
// generated frame to every channel in the registry's active set. A single
// goroutine owns the loop; channel churn arrives through the registry.
type Broadcaster struct {
	reg   *Registry
	gen   Generator
	clock *Clock
	log   *logger.Logger

	framesGenerated atomic.Uint64
	deliveries      atomic.Uint64
	softErrors      atomic.Uint64
	pruned          atomic.Uint64
	lastCycleWork   atomic.Int64
}

// New creates a broadcaster emitting frames from gen at the given interval.
func New(interval time.Duration, gen Generator, log *logger.Logger) *Broadcaster {
	return &Broadcaster{
		reg:   NewRegistry(),
		gen:   gen,
		clock: NewClock(interval),
		log:   log,
	}
}

// Add subscribes a channel to the broadcast, effective next cycle.
func (b *Broadcaster) Add(s Sender) {
	b.reg.Add(s)
	b.log.DebugWith("channel added to broadcast", "active", b.reg.Len())
}

// Run executes broadcast cycles until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.InfoWith("broadcast loop started", "interval", b.clock.Interval().String())

	for {
		frame, lastWork, ok := b.clock.Tick(ctx)
		if !ok {
			b.log.InfoWith("broadcast loop stopped")
			return
		}

		b.lastCycleWork.Store(int64(lastWork))
		if lastWork > b.clock.Interval() {
			b.log.WarnWith("broadcast cycle overran frame interval",
				"work", lastWork.String(), "interval", b.clock.Interval().String())
		}

		b.cycle(frame)
	}
}

// cycle performs one broadcast iteration: apply deferred removals, skip
// idle cycles, generate the shared frame, deliver to every survivor.
func (b *Broadcaster) cycle(frame uint16) {
	targets := b.reg.BeginCycle()
	if len(targets) == 0 {
		return
	}

	payload := b.gen.Frame(frame)
	b.framesGenerated.Add(1)

	if frame%logEveryNFrames == 0 {
		b.log.DebugWith("sending frame", "frame", frame, "channels", len(targets))
	}

	for _, ch := range targets {
		// A close callback may have fired since the snapshot was taken.
		if b.reg.RemovalQueued(ch) {
			continue
		}

		if err := ch.Send(payload); err != nil {
			b.softErrors.Add(1)
			b.log.DebugWith("frame delivery failed", "frame", frame, "error", err.Error())
			if !ch.IsOpen() {
				b.reg.Defer(ch)
				b.pruned.Add(1)
				b.log.DebugWith("removing channel, no longer open")
			}
			continue
		}
		b.deliveries.Add(1)
	}
}

// Stats returns a snapshot of the broadcaster's counters.
func (b *Broadcaster) Stats() Stats {
	return Stats{
		ActiveChannels:  b.reg.Len(),
		FramesGenerated: b.framesGenerated.Load(),
		Deliveries:      b.deliveries.Load(),
		SoftErrors:      b.softErrors.Load(),
		Pruned:          b.pruned.Load(),
		LastCycleWork:   time.Duration(b.lastCycleWork.Load()),
	}
}
