package session

import (
	"context"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/nritya/internal/overlay"
	"github.com/ayusman/nritya/internal/store"
)

// ManualClock is a FrameClock advanced by hand. Tick blocks until the loop
// takes the frame, so two Ticks guarantee the first cycle has completed.
type ManualClock struct {
	ch chan struct{}
}

// NewManualClock creates a manual clock.
func NewManualClock() *ManualClock {
	return &ManualClock{ch: make(chan struct{})}
}

func (c *ManualClock) NextFrame(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ch:
		return nil
	}
}

// Tick releases one frame. It returns false if ctx ends first.
func (c *ManualClock) Tick(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case c.ch <- struct{}{}:
		return true
	}
}

// MockSurface is an in-memory Surface and StatusSink.
type MockSurface struct {
	mu        sync.Mutex
	attached  bool
	attaches  int
	detaches  int
	statuses  []string
	events    []string
	attachErr error
}

// NewMockSurface creates a detached mock surface.
func NewMockSurface() *MockSurface {
	return &MockSurface{}
}

// SetAttachError makes Attach fail with err.
func (m *MockSurface) SetAttachError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attachErr = err
}

func (m *MockSurface) Attach(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attachErr != nil {
		return m.attachErr
	}
	m.attached = true
	m.attaches++
	m.events = append(m.events, "attach")
	return nil
}

func (m *MockSurface) Detach(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attached = false
	m.detaches++
	m.events = append(m.events, "detach")
	return nil
}

func (m *MockSurface) SetStatus(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, text)
	m.events = append(m.events, "status:"+text)
	return nil
}

// Attached reports whether the surface is attached.
func (m *MockSurface) Attached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attached
}

// Detaches returns the number of Detach calls.
func (m *MockSurface) Detaches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detaches
}

// Statuses returns every status set, in order.
func (m *MockSurface) Statuses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.statuses...)
}

// Events returns attach, detach and "status:<text>" calls in order.
func (m *MockSurface) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

// MockRenderer records rendered views.
type MockRenderer struct {
	mu    sync.Mutex
	views []overlay.View
	err   error
}

// SetError makes Render fail with err.
func (r *MockRenderer) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *MockRenderer) Render(frame *gocv.Mat, v overlay.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
	return r.err
}

// Views returns the rendered views.
func (r *MockRenderer) Views() []overlay.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]overlay.View(nil), r.views...)
}

// MemoryClicks is an in-memory ClickRecorder.
type MemoryClicks struct {
	mu     sync.Mutex
	clicks []store.Click
}

func (m *MemoryClicks) Record(c *store.Click) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks = append(m.clicks, *c)
	return nil
}

// Clicks returns the recorded clicks.
func (m *MemoryClicks) Clicks() []store.Click {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Click(nil), m.clicks...)
}
