// Package dispatch delivers pointer intents to whatever is rendered at a
// display point. A click runs every configured strategy in order because
// there is no reliable signal that any single one was observed.
package dispatch

import (
	"context"
	"time"

	"github.com/ayusman/nritya/internal/geom"
)

// Target receives synthetic events.
type Target interface {
	Dispatch(ctx context.Context, ev Event) error
}

// Element is a rendered element returned by hit-testing.
type Element interface {
	Target

	// Tag returns the lower-case tag name.
	Tag(ctx context.Context) (string, error)

	// Parent returns the parent element, or nil at the root.
	Parent(ctx context.Context) (Element, error)

	// Activate invokes the element's own activation (element.click()).
	Activate(ctx context.Context) error

	// HasClickHandler reports whether an inline click handler is set.
	HasClickHandler(ctx context.Context) (bool, error)

	// Cursor returns the computed CSS cursor.
	Cursor(ctx context.Context) (string, error)
}

// Display is the rendered surface the pointer acts on.
type Display interface {
	// Viewport returns the display size in CSS pixels.
	Viewport(ctx context.Context) (geom.Size, error)

	// ElementAt hit-tests a point. It returns nil when nothing is there.
	ElementAt(ctx context.Context, pt geom.Point) (Element, error)

	// Document and Window are the coarse event targets.
	Document() Target
	Window() Target
}

// Indicator draws the pseudo-cursor and click pulse.
type Indicator interface {
	MoveCursor(ctx context.Context, pt geom.Point, clickable bool) error
	Pulse(ctx context.Context, pt geom.Point, d time.Duration) error
}
