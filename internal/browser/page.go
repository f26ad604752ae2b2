package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/ayusman/nritya/internal/dispatch"
	"github.com/ayusman/nritya/internal/geom"
)

// PageOptions configures the chrome injected into a page.
type PageOptions struct {
	// PreviewURL, when set, shows the overlay stream in the page's
	// bottom-left corner.
	PreviewURL string
}

// Page wraps a Rod page as the display surface.
type Page struct {
	page *rod.Page
	opts PageOptions
	doc  *globalTarget
	win  *globalTarget
}

type chromeIDs struct {
	Cursor  string `json:"cursor"`
	Status  string `json:"status"`
	Preview string `json:"preview"`
	Style   string `json:"style"`
}

var ids = chromeIDs{Cursor: cursorID, Status: statusID, Preview: previewID, Style: styleID}

// NewPage wraps an existing Rod page.
func NewPage(page *rod.Page, opts PageOptions) *Page {
	p := &Page{page: page, opts: opts}
	p.doc = &globalTarget{page: p, name: "document"}
	p.win = &globalTarget{page: p, name: "window"}
	return p
}

// Rod returns the underlying Rod page.
func (p *Page) Rod() *rod.Page {
	return p.page
}

// Attach injects the pseudo-cursor, status badge and preview. Attaching
// twice is a no-op.
func (p *Page) Attach(ctx context.Context) error {
	if _, err := p.page.Context(ctx).Eval(attachJS, ids, p.opts.PreviewURL); err != nil {
		return fmt.Errorf("browser: attach: %w", err)
	}
	return nil
}

// Detach removes the injected chrome.
func (p *Page) Detach(ctx context.Context) error {
	if _, err := p.page.Context(ctx).Eval(detachJS, ids); err != nil {
		return fmt.Errorf("browser: detach: %w", err)
	}
	return nil
}

// Attached reports whether the chrome is present.
func (p *Page) Attached(ctx context.Context) (bool, error) {
	res, err := p.page.Context(ctx).Eval(attachedJS, ids)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// SetStatus replaces the status badge text.
func (p *Page) SetStatus(ctx context.Context, text string) error {
	_, err := p.page.Context(ctx).Eval(statusJS, ids, text)
	return err
}

// NextFrame blocks until the page's next animation frame.
func (p *Page) NextFrame(ctx context.Context) error {
	_, err := p.page.Context(ctx).Eval(nextFrameJS)
	return err
}

// Viewport returns window.innerWidth × window.innerHeight.
func (p *Page) Viewport(ctx context.Context) (geom.Size, error) {
	res, err := p.page.Context(ctx).Eval(viewportJS)
	if err != nil {
		return geom.Size{}, fmt.Errorf("browser: viewport: %w", err)
	}
	return geom.Size{W: res.Value.Get("w").Num(), H: res.Value.Get("h").Num()}, nil
}

// ElementAt returns the topmost element at pt via document.elementFromPoint.
func (p *Page) ElementAt(ctx context.Context, pt geom.Point) (dispatch.Element, error) {
	page := p.page.Context(ctx)

	res, err := page.Evaluate(rod.Eval(elementAtJS, pt.X, pt.Y).ByObject())
	if err != nil {
		return nil, fmt.Errorf("browser: element at %v: %w", pt, err)
	}
	if isNull(res) {
		return nil, nil
	}

	el, err := page.ElementFromObject(res)
	if err != nil {
		return nil, err
	}
	return &element{el: el, page: p}, nil
}

// Document returns the document as an event target.
func (p *Page) Document() dispatch.Target { return p.doc }

// Window returns the window as an event target.
func (p *Page) Window() dispatch.Target { return p.win }

// MoveCursor moves the pseudo-cursor and colours it green over
// interactive elements.
func (p *Page) MoveCursor(ctx context.Context, pt geom.Point, clickable bool) error {
	_, err := p.page.Context(ctx).Eval(moveCursorJS, ids, pt.X, pt.Y, clickable)
	return err
}

// Pulse shows a click indicator at pt that removes itself after d.
func (p *Page) Pulse(ctx context.Context, pt geom.Point, d time.Duration) error {
	_, err := p.page.Context(ctx).Eval(pulseJS, pt.X, pt.Y, d.Milliseconds())
	return err
}

// Close closes the tab.
func (p *Page) Close() error {
	if p.page != nil {
		return p.page.Close()
	}
	return nil
}

type globalTarget struct {
	page *Page
	name string
}

func (t *globalTarget) Dispatch(ctx context.Context, ev dispatch.Event) error {
	_, err := t.page.page.Context(ctx).Eval(globalEventJS, t.name, ev)
	return err
}

func isNull(obj *proto.RuntimeRemoteObject) bool {
	return obj == nil || obj.ObjectID == "" || obj.Subtype == proto.RuntimeRemoteObjectSubtypeNull
}
