package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/nritya/internal/geom"
)

// MockTarget records dispatched events.
type MockTarget struct {
	mu     sync.Mutex
	Name   string
	events []Event
	err    error
	failOn map[Kind]error
}

// NewMockTarget creates a named recording target.
func NewMockTarget(name string) *MockTarget {
	return &MockTarget{Name: name}
}

// SetError makes every Dispatch fail.
func (t *MockTarget) SetError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

// FailKind makes Dispatch fail for one event kind only.
func (t *MockTarget) FailKind(kind Kind, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failOn == nil {
		t.failOn = make(map[Kind]error)
	}
	t.failOn[kind] = err
}

// Dispatch records the event.
func (t *MockTarget) Dispatch(ctx context.Context, ev Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	if err := t.failOn[ev.Kind]; err != nil {
		return err
	}
	t.events = append(t.events, ev)
	return nil
}

// Events returns the recorded events.
func (t *MockTarget) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events...)
}

// Types returns the recorded event types in order.
func (t *MockTarget) Types() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	types := make([]string, len(t.events))
	for i, ev := range t.events {
		types[i] = ev.Type
	}
	return types
}

// MockElement is an in-memory element.
type MockElement struct {
	*MockTarget

	TagName string
	OnClick bool
	CSS     string
	Up      *MockElement

	activateErr error
	parentErr   error
	mu          sync.Mutex
	activations int
}

// NewMockElement creates an element with the given tag.
func NewMockElement(tag string) *MockElement {
	return &MockElement{MockTarget: NewMockTarget(tag), TagName: tag, CSS: "auto"}
}

// Within sets the parent and returns the element.
func (e *MockElement) Within(parent *MockElement) *MockElement {
	e.Up = parent
	return e
}

// SetActivateError makes Activate fail.
func (e *MockElement) SetActivateError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activateErr = err
}

func (e *MockElement) Tag(ctx context.Context) (string, error) {
	return e.TagName, nil
}

// SetParentError makes Parent fail, as for a node removed from the document.
func (e *MockElement) SetParentError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.parentErr = err
}

func (e *MockElement) Parent(ctx context.Context) (Element, error) {
	e.mu.Lock()
	err := e.parentErr
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if e.Up == nil {
		return nil, nil
	}
	return e.Up, nil
}

func (e *MockElement) Activate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activateErr != nil {
		return e.activateErr
	}
	e.activations++
	return nil
}

func (e *MockElement) HasClickHandler(ctx context.Context) (bool, error) {
	return e.OnClick, nil
}

func (e *MockElement) Cursor(ctx context.Context) (string, error) {
	return e.CSS, nil
}

// Activations returns how many times Activate succeeded.
func (e *MockElement) Activations() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activations
}

// MockDisplay is an in-memory Display that returns a fixed element for
// every point.
type MockDisplay struct {
	mu      sync.Mutex
	size    geom.Size
	element *MockElement
	hitErr  error
	hits    []geom.Point
	Doc     *MockTarget
	Win     *MockTarget
}

// NewMockDisplay creates a display of the given size with nothing rendered.
func NewMockDisplay(w, h float64) *MockDisplay {
	return &MockDisplay{
		size: geom.Size{W: w, H: h},
		Doc:  NewMockTarget("document"),
		Win:  NewMockTarget("window"),
	}
}

// SetElement sets the element returned by hit-testing. Nil means nothing
// is rendered.
func (d *MockDisplay) SetElement(el *MockElement) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.element = el
}

// SetHitError makes hit-testing fail.
func (d *MockDisplay) SetHitError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hitErr = err
}

// SetSize changes the viewport.
func (d *MockDisplay) SetSize(w, h float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.size = geom.Size{W: w, H: h}
}

func (d *MockDisplay) Viewport(ctx context.Context) (geom.Size, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size, nil
}

func (d *MockDisplay) ElementAt(ctx context.Context, pt geom.Point) (Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hits = append(d.hits, pt)
	if d.hitErr != nil {
		return nil, d.hitErr
	}
	if d.element == nil {
		return nil, nil
	}
	return d.element, nil
}

func (d *MockDisplay) Document() Target { return d.Doc }
func (d *MockDisplay) Window() Target   { return d.Win }

// Hits returns the points hit-tested so far.
func (d *MockDisplay) Hits() []geom.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]geom.Point(nil), d.hits...)
}

// MockIndicator records cursor moves and pulses.
type MockIndicator struct {
	mu        sync.Mutex
	moves     []geom.Point
	clickable []bool
	pulses    []geom.Point
}

// NewMockIndicator creates a recording indicator.
func NewMockIndicator() *MockIndicator {
	return &MockIndicator{}
}

func (i *MockIndicator) MoveCursor(ctx context.Context, pt geom.Point, clickable bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.moves = append(i.moves, pt)
	i.clickable = append(i.clickable, clickable)
	return nil
}

func (i *MockIndicator) Pulse(ctx context.Context, pt geom.Point, d time.Duration) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.pulses = append(i.pulses, pt)
	return nil
}

// Moves returns the cursor positions in order.
func (i *MockIndicator) Moves() []geom.Point {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]geom.Point(nil), i.moves...)
}

// LastClickable reports the colour state of the last move.
func (i *MockIndicator) LastClickable() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.clickable) == 0 {
		return false
	}
	return i.clickable[len(i.clickable)-1]
}

// Pulses returns the pulse positions in order.
func (i *MockIndicator) Pulses() []geom.Point {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]geom.Point(nil), i.pulses...)
}
