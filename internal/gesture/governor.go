package gesture

import "time"

// DefaultCooldown is the minimum time between two emitted clicks.
const DefaultCooldown = time.Second

// Governor suppresses clicks that follow the previous emitted click too
// closely. Only emitted clicks start a new cooldown.
type Governor struct {
	cooldown time.Duration
	now      func() time.Time
	last     time.Time
}

// NewGovernor creates a governor. A nil now uses time.Now.
func NewGovernor(cooldown time.Duration, now func() time.Time) *Governor {
	if now == nil {
		now = time.Now
	}
	return &Governor{cooldown: cooldown, now: now}
}

// Allow reports whether a click may be emitted now and, if so, records it.
func (g *Governor) Allow() bool {
	t := g.now()
	if !g.last.IsZero() && t.Sub(g.last) < g.cooldown {
		return false
	}
	g.last = t
	return true
}

// Reset forgets the last emitted click.
func (g *Governor) Reset() {
	g.last = time.Time{}
}
