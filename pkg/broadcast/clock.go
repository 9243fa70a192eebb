package broadcast

import (
	"context"
	"time"
)

// Clock is a free-running frame ticker. Each Tick reports the next frame
// index and how long the previous cycle's work took, sleeping only for the
// remainder of the target interval so that slow cycles do not accumulate
// drift. Sustained overrun degrades the rate instead of queuing a backlog.
type Clock struct {
	interval   time.Duration
	frame      uint16
	started    bool
	cycleStart time.Time
}

// NewClock creates a clock with the given target interval per frame.
func NewClock(interval time.Duration) *Clock {
	return &Clock{interval: interval}
}

// Interval returns the target cycle duration.
func (c *Clock) Interval() time.Duration {
	return c.interval
}

// Tick blocks until the next cycle should begin and returns the frame
// index for that cycle along with the measured work duration of the
// previous one. The first call returns frame 0 immediately. ok is false
// once ctx is cancelled.
//
// Callers must do their per-frame work between consecutive Tick calls;
// that span is what gets measured and subtracted from the sleep.
func (c *Clock) Tick(ctx context.Context) (frame uint16, lastWork time.Duration, ok bool) {
	if !c.started {
		c.started = true
		c.cycleStart = time.Now()
		return c.frame, 0, true
	}

	lastWork = time.Since(c.cycleStart)
	c.frame = NextFrame(c.frame)

	sleep := c.interval - lastWork
	if sleep > 0 {
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, 0, false
		case <-timer.C:
		}
	} else {
		select {
		case <-ctx.Done():
			return 0, 0, false
		default:
		}
	}

	c.cycleStart = time.Now()
	return c.frame, lastWork, true
}
