package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod/lib/proto"

	"github.com/ayusman/nritya/internal/dispatch"
)

// TrustedInput is a dispatch strategy that clicks and taps through the
// DevTools Input domain. Unlike in-page synthetic events these are
// delivered as trusted input, so they reach listeners that check
// event.isTrusted.
type TrustedInput struct {
	Page *Page

	// Touch also sends a tap after the mouse click.
	Touch bool
}

func (TrustedInput) Name() string { return "trusted" }

func (s TrustedInput) Apply(ctx context.Context, hit dispatch.Hit) error {
	page := s.Page.page.Context(ctx)

	if err := page.Mouse.MoveTo(proto.Point{X: hit.Point.X, Y: hit.Point.Y}); err != nil {
		return fmt.Errorf("mouse move: %w", err)
	}
	if err := page.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("mouse click: %w", err)
	}

	if s.Touch {
		// Not every target enables touch emulation; a failed tap is ignored.
		_ = page.Touch.Tap(hit.Point.X, hit.Point.Y)
	}
	return nil
}
