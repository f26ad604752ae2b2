// Package app wires the nritya components into one application: the store,
// the controlled page, the dispatcher, the motion-control session and the
// control surfaces built on top of it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ayusman/nritya/internal/browser"
	"github.com/ayusman/nritya/internal/capture"
	"github.com/ayusman/nritya/internal/config"
	"github.com/ayusman/nritya/internal/control"
	"github.com/ayusman/nritya/internal/dispatch"
	"github.com/ayusman/nritya/internal/overlay"
	"github.com/ayusman/nritya/internal/pose"
	"github.com/ayusman/nritya/internal/server"
	"github.com/ayusman/nritya/internal/session"
	"github.com/ayusman/nritya/internal/store"
	"github.com/ayusman/nritya/internal/telemetry"
)

// Options overrides the devices the application would otherwise create from
// its configuration. Nil fields use the configured device.
type Options struct {
	Store     *store.Store
	Camera    capture.Camera
	Estimator pose.Estimator

	// Display and Indicator replace the browser page. When Display is set
	// no browser is launched.
	Display   dispatch.Display
	Indicator dispatch.Indicator
	Surface   session.Surface
	Status    session.StatusSink
	Clock     session.FrameClock

	Logger zerolog.Logger
}

// App is the main application that owns every long-lived component.
type App struct {
	cfg  *config.Config
	opts Options
	log  zerolog.Logger

	store     *store.Store
	ownsStore bool
	browser   *browser.Manager
	page      *browser.Page
	hub       *overlay.Hub
	metrics   *telemetry.Metrics
	pointer   *dispatch.Dispatcher
	session   *session.Session
	control   *control.Controller
	server    *server.Server

	mu       sync.RWMutex
	onStatus []func(string)
	onClick  []func(*store.Click)
}

// New creates an App. Nothing is acquired until Init.
func New(cfg *config.Config, opts Options) *App {
	return &App{
		cfg:  cfg,
		opts: opts,
		log:  opts.Logger.With().Str("component", "app").Logger(),
		hub:  overlay.NewHub(),
	}
}

// Init opens the store and the page and builds the session and its control
// surfaces. On failure everything acquired so far is released.
func (a *App) Init(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			if cerr := a.Close(); cerr != nil {
				a.log.Warn().Err(cerr).Msg("cleanup after failed init")
			}
		}
	}()

	if err := a.openStore(); err != nil {
		return err
	}

	metrics, err := telemetry.New()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	a.metrics = metrics

	display, indicator, err := a.openDisplay(ctx)
	if err != nil {
		return err
	}

	strategies, err := a.strategies()
	if err != nil {
		return err
	}

	a.pointer = dispatch.New(dispatch.Config{
		Display:    display,
		Indicator:  indicator,
		Strategies: strategies,
		MaxDepth:   a.cfg.Dispatch.MaxDepth,
		Pulse:      a.cfg.Dispatch.Pulse,
		Logger:     a.opts.Logger,
	})
	a.log.Info().Strs("strategies", a.pointer.Strategies()).Msg("dispatcher ready")

	sess, err := a.newSession(display)
	if err != nil {
		return err
	}
	a.session = sess

	a.control = control.New(a.session, a.store.Settings(), a.opts.Logger)

	a.server = server.New(server.Config{
		StaticDir: a.cfg.Server.StaticDir,
		Control:   a.control,
		Clicks:    a.store.Clicks(),
		Hub:       a.hub,
		Status:    a.session.Status,
		Logger:    a.opts.Logger,
	})

	return nil
}

func (a *App) openStore() error {
	if a.opts.Store != nil {
		a.store = a.opts.Store
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(a.cfg.Store.Path), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(a.cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = st
	a.ownsStore = true
	return nil
}

// openDisplay returns the display surface: the injected one, or a page in
// a launched or remote Chrome.
func (a *App) openDisplay(ctx context.Context) (dispatch.Display, dispatch.Indicator, error) {
	if a.opts.Display != nil {
		return a.opts.Display, a.opts.Indicator, nil
	}

	a.browser = browser.NewManager(browser.Config{
		RemoteURL: a.cfg.Browser.RemoteURL,
		Headless:  a.cfg.Browser.Headless,
		Bin:       a.cfg.Browser.Bin,
		Stealth:   a.cfg.Browser.Stealth,
		Logger:    a.opts.Logger,
	})
	if _, err := a.browser.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("start browser: %w", err)
	}

	page, err := a.browser.OpenPage(ctx, a.cfg.Browser.URL, browser.PageOptions{
		PreviewURL: previewURL(a.cfg.Server.Addr),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open page: %w", err)
	}
	a.page = page
	return page, page, nil
}

// Controller returns the enable/disable controller.
func (a *App) Controller() *control.Controller {
	return a.control
}

// Session returns the motion-control session.
func (a *App) Session() *session.Session {
	return a.session
}

// Store returns the store.
func (a *App) Store() *store.Store {
	return a.store
}

// Hub returns the overlay hub.
func (a *App) Hub() *overlay.Hub {
	return a.hub
}

// Handler returns the HTTP control API.
func (a *App) Handler() http.Handler {
	return a.server
}

// OnStatus registers fn to receive every session status text.
func (a *App) OnStatus(fn func(string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onStatus = append(a.onStatus, fn)
}

// OnClick registers fn to receive every dispatched click.
func (a *App) OnClick(fn func(*store.Click)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onClick = append(a.onClick, fn)
}

// Serve runs the HTTP control API until ctx ends. An empty server address
// disables it.
func (a *App) Serve(ctx context.Context) error {
	if a.cfg.Server.Addr == "" {
		<-ctx.Done()
		return nil
	}
	return a.server.ListenAndServe(ctx, a.cfg.Server.Addr)
}

// Close stops the session without touching the saved preference, then
// releases the page, the browser and the store.
func (a *App) Close() error {
	var errs []error

	if a.session != nil {
		if err := a.session.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop session: %w", err))
		}
	}
	if a.page != nil {
		if err := a.page.Close(); err != nil {
			a.log.Debug().Err(err).Msg("close page")
		}
		a.page = nil
	}
	if a.browser != nil {
		if err := a.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		a.browser = nil
	}
	if a.ownsStore && a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		a.store = nil
	}

	return errors.Join(errs...)
}
