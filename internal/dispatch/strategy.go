package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/nritya/internal/geom"
)

// DefaultMaxDepth bounds the ancestor walk, counting the hit element.
const DefaultMaxDepth = 3

// Hit is the resolved target of a click.
type Hit struct {
	Point   geom.Point
	Element Element
	Tag     string
	Display Display
}

// Strategy is one way of getting a click observed by the target.
type Strategy interface {
	Name() string
	Apply(ctx context.Context, hit Hit) error
}

// interactiveTags are conventionally interactive elements.
var interactiveTags = map[string]bool{
	"a":        true,
	"button":   true,
	"input":    true,
	"select":   true,
	"textarea": true,
}

// Interactive reports whether el is a link, button or form control, has an
// inline click handler, or shows a pointer cursor.
func Interactive(ctx context.Context, el Element) (bool, error) {
	tag, err := el.Tag(ctx)
	if err != nil {
		return false, err
	}
	if interactiveTags[tag] {
		return true, nil
	}

	handler, err := el.HasClickHandler(ctx)
	if err != nil {
		return false, err
	}
	if handler {
		return true, nil
	}

	cursor, err := el.Cursor(ctx)
	if err != nil {
		return false, err
	}
	return cursor == "pointer", nil
}

// Clickable walks from el up through at most maxDepth elements and returns
// the first interactive one, or nil.
func Clickable(ctx context.Context, el Element, maxDepth int) (Element, error) {
	current := el
	for depth := 0; current != nil && depth < maxDepth; depth++ {
		ok, err := Interactive(ctx, current)
		if err != nil {
			return nil, err
		}
		if ok {
			return current, nil
		}

		current, err = current.Parent(ctx)
		if err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// DirectActivation activates the hit element itself.
type DirectActivation struct{}

func (DirectActivation) Name() string { return "direct" }

func (DirectActivation) Apply(ctx context.Context, hit Hit) error {
	return hit.Element.Activate(ctx)
}

// AncestorActivation activates the nearest interactive element within
// MaxDepth levels of the hit element.
type AncestorActivation struct {
	MaxDepth int
}

func (AncestorActivation) Name() string { return "ancestor" }

func (s AncestorActivation) Apply(ctx context.Context, hit Hit) error {
	depth := s.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}

	el, err := Clickable(ctx, hit.Element, depth)
	if err != nil {
		return err
	}
	if el == nil {
		return nil
	}
	return el.Activate(ctx)
}

// EventSequence dispatches ClickSequence to the hit element, the document
// and the window. Touch failures are tolerated since not every surface
// can construct touch events.
type EventSequence struct {
	// Now stamps touch identifiers. Defaults to time.Now.
	Now func() time.Time
}

func (EventSequence) Name() string { return "events" }

func (s EventSequence) Apply(ctx context.Context, hit Hit) error {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	touchID := now().UnixMilli()

	targets := []struct {
		name   string
		target Target
	}{
		{"element", hit.Element},
		{"document", hit.Display.Document()},
		{"window", hit.Display.Window()},
	}

	var errs []error
	for _, t := range targets {
		if t.target == nil {
			continue
		}
		for _, tmpl := range ClickSequence {
			err := t.target.Dispatch(ctx, at(tmpl, hit.Point, touchID))
			if err != nil && tmpl.Kind != KindTouch {
				errs = append(errs, fmt.Errorf("%s %s: %w", t.name, tmpl.Type, err))
			}
		}
	}
	return errors.Join(errs...)
}

// CanvasEvents repeats the press/release/click sequence on canvas elements.
type CanvasEvents struct{}

func (CanvasEvents) Name() string { return "canvas" }

func (CanvasEvents) Apply(ctx context.Context, hit Hit) error {
	if hit.Tag != "canvas" {
		return nil
	}

	var errs []error
	for _, tmpl := range CanvasSequence {
		if err := hit.Element.Dispatch(ctx, at(tmpl, hit.Point, 0)); err != nil {
			errs = append(errs, fmt.Errorf("canvas %s: %w", tmpl.Type, err))
		}
	}
	return errors.Join(errs...)
}

// DefaultStrategies returns the four reference strategies in order.
func DefaultStrategies(maxDepth int) []Strategy {
	return []Strategy{
		DirectActivation{},
		AncestorActivation{MaxDepth: maxDepth},
		EventSequence{},
		CanvasEvents{},
	}
}
