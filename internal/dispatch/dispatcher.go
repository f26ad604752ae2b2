package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/nritya/internal/geom"
)

// DefaultPulse is how long the click indicator stays on screen.
const DefaultPulse = 500 * time.Millisecond

// Config configures a Dispatcher.
type Config struct {
	Display   Display
	Indicator Indicator

	// Strategies run in order on every click. Nil selects
	// DefaultStrategies(MaxDepth).
	Strategies []Strategy

	// MaxDepth bounds the hover ancestor walk (default: 3).
	MaxDepth int

	// Pulse is the click indicator lifetime (default: 500ms).
	Pulse time.Duration

	Logger zerolog.Logger
}

// Outcome describes one click dispatch.
type Outcome struct {
	Point geom.Point
	Tag   string

	// Hit is false when nothing was rendered at the point.
	Hit bool

	// Applied lists the strategies that ran without error.
	Applied []string
}

// Dispatcher turns pointer intents into interactions on a Display.
type Dispatcher struct {
	display    Display
	indicator  Indicator
	strategies []Strategy
	maxDepth   int
	pulse      time.Duration
	log        zerolog.Logger
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.Pulse <= 0 {
		cfg.Pulse = DefaultPulse
	}
	if cfg.Strategies == nil {
		cfg.Strategies = DefaultStrategies(cfg.MaxDepth)
	}

	return &Dispatcher{
		display:    cfg.Display,
		indicator:  cfg.Indicator,
		strategies: cfg.Strategies,
		maxDepth:   cfg.MaxDepth,
		pulse:      cfg.Pulse,
		log:        cfg.Logger.With().Str("component", "dispatch").Logger(),
	}
}

// Strategies returns the configured strategy names in order.
func (d *Dispatcher) Strategies() []string {
	names := make([]string, len(d.strategies))
	for i, s := range d.strategies {
		names[i] = s.Name()
	}
	return names
}

// Click hit-tests pt and runs every strategy against the element found
// there. The point is resolved now, not at the last move. Strategy failures
// do not stop the remaining strategies; they are joined into the returned
// error.
func (d *Dispatcher) Click(ctx context.Context, pt geom.Point) (Outcome, error) {
	out := Outcome{Point: pt}

	el, err := d.display.ElementAt(ctx, pt)
	if err != nil {
		return out, fmt.Errorf("hit test: %w", err)
	}
	if el == nil {
		d.log.Debug().Float64("x", pt.X).Float64("y", pt.Y).Msg("nothing at click point")
		return out, nil
	}
	out.Hit = true

	tag, err := el.Tag(ctx)
	if err != nil {
		return out, fmt.Errorf("read tag: %w", err)
	}
	out.Tag = tag

	var errs []error
	if d.indicator != nil {
		if err := d.indicator.Pulse(ctx, pt, d.pulse); err != nil {
			errs = append(errs, fmt.Errorf("pulse: %w", err))
		}
	}

	hit := Hit{Point: pt, Element: el, Tag: tag, Display: d.display}
	for _, s := range d.strategies {
		if err := s.Apply(ctx, hit); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		out.Applied = append(out.Applied, s.Name())
	}

	d.log.Debug().
		Float64("x", pt.X).
		Float64("y", pt.Y).
		Str("tag", tag).
		Strs("applied", out.Applied).
		Msg("click dispatched")

	return out, errors.Join(errs...)
}

// Move places the pseudo-cursor at pt and colours it by whether an
// interactive element is within reach of the point. A failed hit test or
// ancestor walk still moves the cursor, uncoloured.
func (d *Dispatcher) Move(ctx context.Context, pt geom.Point) error {
	if d.indicator == nil {
		return nil
	}
	return d.indicator.MoveCursor(ctx, pt, d.hoverClickable(ctx, pt))
}

func (d *Dispatcher) hoverClickable(ctx context.Context, pt geom.Point) bool {
	el, err := d.display.ElementAt(ctx, pt)
	if err != nil {
		d.log.Debug().Err(err).Float64("x", pt.X).Float64("y", pt.Y).Msg("hover hit test")
		return false
	}
	if el == nil {
		return false
	}

	target, err := Clickable(ctx, el, d.maxDepth)
	if err != nil {
		d.log.Debug().Err(err).Float64("x", pt.X).Float64("y", pt.Y).Msg("hover ancestor walk")
		return false
	}
	return target != nil
}
