// Package browser drives the page the pointer acts on through the Chrome
// DevTools protocol. A Page implements hit-testing, synthetic event
// dispatch, the pseudo-cursor and status chrome, and the per-frame clock.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"
)

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Headless launches Chrome without a window. The default is headful
	// since the user watches and interacts with the page.
	Headless bool

	// Bin overrides the Chrome binary. Empty = launcher lookup/download.
	Bin string

	// Stealth opens pages with go-rod/stealth evasions applied.
	Stealth bool

	// NavigateTimeout bounds page navigation. Default: 30s.
	NavigateTimeout time.Duration

	Logger zerolog.Logger
}

func (c *Config) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
}

// Manager manages the Chrome lifecycle.
type Manager struct {
	cfg     Config
	log     zerolog.Logger
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a browser Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{
		cfg: cfg,
		log: cfg.Logger.With().Str("component", "browser").Logger(),
	}
}

// Start launches Chrome (or connects to a remote instance) and returns
// the Rod browser handle.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil {
		return m.browser, nil
	}

	b, err := m.launch(ctx)
	if err != nil {
		return nil, err
	}
	m.browser = b
	return b, nil
}

// Browser returns the current Rod browser handle. Thread-safe.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// OpenPage creates a tab, navigates it to pageURL and wraps it as a Page.
// An empty URL leaves the tab blank.
func (m *Manager) OpenPage(ctx context.Context, pageURL string, opts PageOptions) (*Page, error) {
	b := m.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error

	if m.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if pageURL != "" {
		navCtx, cancel := context.WithTimeout(ctx, m.cfg.NavigateTimeout)
		defer cancel()

		if err := page.Context(navCtx).Navigate(pageURL); err != nil {
			page.Close()
			return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
		}

		if err := page.Context(navCtx).WaitLoad(); err != nil {
			m.log.Warn().Str("url", pageURL).Err(err).Msg("wait load timeout")
		}
	}

	return NewPage(page, opts), nil
}

// Close shuts down Chrome.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	var wsURL string

	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		m.log.Info().Str("url", wsURL).Msg("connecting to remote chrome")
	} else {
		l := launcher.New().Context(ctx).Headless(m.cfg.Headless)
		if m.cfg.Bin != "" {
			l = l.Bin(m.cfg.Bin)
		}

		// Camera-driven pages are usually left in the background.
		l = l.Set("disable-background-timer-throttling").
			Set("disable-renderer-backgrounding")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		m.log.Info().Str("url", wsURL).Bool("headless", m.cfg.Headless).Msg("launched local chrome")
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	return b, nil
}

func (m *Manager) cleanup() error {
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return nil
}
