// Package countdown provides the expiry countdown used to surface remaining
// lab time without a server round-trip per tick. Remaining time is always
// derived from the authoritative expiry timestamp, never accumulated
// locally, so an externally extended session only needs a Reset with the
// new deadline. The completion callback fires at most once, regardless of
// how the countdown is stopped or reset.
package countdown

import (
	"sync"
	"time"
)

// DefaultTickInterval is the period between tick callbacks.
const DefaultTickInterval = time.Second

// Countdown ticks toward a deadline and invokes a completion callback
// exactly once when the deadline is reached. It is safe for concurrent use.
type Countdown struct {
	mu         sync.Mutex
	deadline   time.Time
	interval   time.Duration
	now        func() time.Time
	onTick     func(remaining time.Duration)
	onComplete func()
	completed  bool
	stop       chan struct{}
}

// Option configures a Countdown.
type Option func(*Countdown)

// WithTickInterval overrides the 1-second tick period.
func WithTickInterval(d time.Duration) Option {
	return func(c *Countdown) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithClock overrides the time source. Tests use this to drive expiry
// deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *Countdown) {
		if now != nil {
			c.now = now
		}
	}
}

// WithOnTick registers a per-tick callback receiving the remaining time.
func WithOnTick(fn func(remaining time.Duration)) Option {
	return func(c *Countdown) {
		c.onTick = fn
	}
}

// New creates a countdown toward deadline. onComplete is invoked exactly
// once when the deadline passes; it is never invoked after Stop.
func New(deadline time.Time, onComplete func(), opts ...Option) *Countdown {
	c := &Countdown{
		deadline:   deadline,
		interval:   DefaultTickInterval,
		now:        time.Now,
		onComplete: onComplete,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins ticking. Starting an already-running or completed countdown
// is a no-op.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil || c.completed {
		return
	}
	c.stop = make(chan struct{})
	go c.run(c.stop)
}

func (c *Countdown) run(stop chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			remaining := c.Remaining()
			if remaining > 0 {
				if c.onTick != nil {
					c.onTick(remaining)
				}
				continue
			}
			c.complete(stop)
			return
		}
	}
}

// complete fires the completion callback once and stops ticking.
func (c *Countdown) complete(stop chan struct{}) {
	c.mu.Lock()
	if c.completed || c.stop != stop {
		c.mu.Unlock()
		return
	}
	c.completed = true
	c.stop = nil
	fn := c.onComplete
	c.mu.Unlock()

	close(stop)
	if fn != nil {
		fn()
	}
}

// Stop cancels the countdown without firing the completion callback. It is
// safe to call from any exit path, including from within the callbacks and
// after completion. Once Stop returns, the completion callback can no
// longer fire.
func (c *Countdown) Stop() {
	c.mu.Lock()
	stop := c.stop
	c.stop = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
}

// Reset reseeds the countdown from a new authoritative deadline and
// restarts it. A completed countdown becomes runnable again only through
// Reset, mirroring a remount with a fresh expiry.
func (c *Countdown) Reset(deadline time.Time) {
	c.Stop()
	c.mu.Lock()
	c.deadline = deadline
	c.completed = false
	c.mu.Unlock()
	c.Start()
}

// Remaining returns the time left until the deadline, floored at zero.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	deadline := c.deadline
	now := c.now
	c.mu.Unlock()

	remaining := deadline.Sub(now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Completed reports whether the completion callback has fired.
func (c *Countdown) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}
