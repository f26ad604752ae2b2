package session

import (
	"context"
	"sync"
	"time"
)

// DefaultRefreshRate is the ticker clock rate used when no display frame
// callback is available.
const DefaultRefreshRate = 60

// FrameClock paces the pipeline. NextFrame blocks until the next display
// frame, so cycles never run faster than the display refreshes and never
// overlap.
type FrameClock interface {
	NextFrame(ctx context.Context) error
}

// TickerClock is a FrameClock driven by a wall-clock ticker. It stands in for
// a display frame callback in headless mode and tests.
type TickerClock struct {
	interval time.Duration

	once   sync.Once
	ticker *time.Ticker
}

// NewTickerClock creates a clock firing rate times per second. A
// non-positive rate selects DefaultRefreshRate.
func NewTickerClock(rate int) *TickerClock {
	if rate <= 0 {
		rate = DefaultRefreshRate
	}
	return &TickerClock{interval: time.Second / time.Duration(rate)}
}

// Interval returns the tick interval.
func (c *TickerClock) Interval() time.Duration {
	return c.interval
}

// NextFrame waits for the next tick.
func (c *TickerClock) NextFrame(ctx context.Context) error {
	c.once.Do(func() {
		c.ticker = time.NewTicker(c.interval)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ticker.C:
		return nil
	}
}

// Stop releases the ticker.
func (c *TickerClock) Stop() {
	c.once.Do(func() {})
	if c.ticker != nil {
		c.ticker.Stop()
	}
}
