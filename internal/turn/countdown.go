// internal/turn/countdown.go
//
// Per-guess countdown owned by a Controller.
//   - arm: (re)start the countdown at the full limit.
//   - stop: cancel it; any callback already in flight becomes a no-op.
//
// Every arm/stop bumps a generation number. A firing timer carries the
// generation it was armed with, and the controller drops fires whose
// generation is no longer current.

package turn

import "time"

// Clock abstracts time so countdowns can be driven by tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the handle returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type countdown struct {
	clock    Clock
	limit    time.Duration // 0 disables the countdown
	timer    Timer
	deadline time.Time
	gen      uint64
}

// arm restarts the countdown; fire is called with the new generation on expiry.
func (c *countdown) arm(fire func(gen uint64)) {
	c.stop()
	if c.limit <= 0 {
		return
	}
	gen := c.gen
	c.deadline = c.clock.Now().Add(c.limit)
	c.timer = c.clock.AfterFunc(c.limit, func() { fire(gen) })
}

// stop cancels the pending timer and invalidates in-flight fires.
func (c *countdown) stop() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.deadline = time.Time{}
	c.gen++
}

// current reports whether gen is the live generation.
func (c *countdown) current(gen uint64) bool { return c.timer != nil && gen == c.gen }

// secondsLeft rounds the time to the deadline up to whole seconds; 0 when idle.
func (c *countdown) secondsLeft() int {
	if c.timer == nil {
		return 0
	}
	left := c.deadline.Sub(c.clock.Now())
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}
