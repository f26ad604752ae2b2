// Package control implements the enable/disable commands shared by every
// control surface (tray, preview window, HTTP API) and the persisted on/off
// preference behind them.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ayusman/nritya/internal/session"
	"github.com/ayusman/nritya/internal/store"
)

// Runner is the session being controlled. *session.Session implements it.
type Runner interface {
	Start(ctx context.Context) error
	Stop() error
	Running() bool
}

// Preferences persists the enabled flag. *store.SettingsRepository
// implements it.
type Preferences interface {
	GetBool(key string, def bool) (bool, error)
	SetBool(key string, value bool) error
}

// Controller serialises enable/disable requests. Both commands are
// idempotent and record the requested state as the preference.
type Controller struct {
	runner Runner
	prefs  Preferences
	log    zerolog.Logger

	mu        sync.Mutex
	listeners []func(bool)
}

// New creates a Controller. prefs may be nil, in which case nothing is
// persisted.
func New(runner Runner, prefs Preferences, logger zerolog.Logger) *Controller {
	return &Controller{
		runner: runner,
		prefs:  prefs,
		log:    logger.With().Str("component", "control").Logger(),
	}
}

// OnChange registers fn to be called with the running state after every
// command.
func (c *Controller) OnChange(fn func(enabled bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Enable starts the session if it is not running.
func (c *Controller) Enable(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.save(true); err != nil {
		return err
	}

	if c.runner.Running() {
		return nil
	}

	err := c.runner.Start(ctx)
	if errors.Is(err, session.ErrAlreadyRunning) {
		err = nil
	}
	if err != nil {
		c.log.Error().Err(err).Msg("enable failed")
	} else {
		c.log.Info().Msg("motion control enabled")
	}
	c.notify()
	return err
}

// Disable stops the session if it is running.
func (c *Controller) Disable() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.save(false); err != nil {
		return err
	}

	if !c.runner.Running() {
		return nil
	}

	err := c.runner.Stop()
	if err != nil {
		c.log.Warn().Err(err).Msg("disable")
	} else {
		c.log.Info().Msg("motion control disabled")
	}
	c.notify()
	return err
}

// Set enables or disables.
func (c *Controller) Set(ctx context.Context, enabled bool) error {
	if enabled {
		return c.Enable(ctx)
	}
	return c.Disable()
}

// Toggle flips the running state and returns the new requested state.
func (c *Controller) Toggle(ctx context.Context) (bool, error) {
	want := !c.Enabled()
	return want, c.Set(ctx, want)
}

// Enabled reports whether the session is running.
func (c *Controller) Enabled() bool {
	return c.runner.Running()
}

// Preference returns the persisted preference; false when never set.
func (c *Controller) Preference() (bool, error) {
	if c.prefs == nil {
		return false, nil
	}
	v, err := c.prefs.GetBool(store.KeyMotionControlEnabled, false)
	if err != nil {
		return false, fmt.Errorf("read preference: %w", err)
	}
	return v, nil
}

// Restore re-applies the persisted preference, starting the session if it
// was last enabled.
func (c *Controller) Restore(ctx context.Context) error {
	on, err := c.Preference()
	if err != nil {
		return err
	}
	if !on {
		return nil
	}
	c.log.Info().Msg("restoring enabled preference")
	return c.Enable(ctx)
}

func (c *Controller) save(enabled bool) error {
	if c.prefs == nil {
		return nil
	}
	if err := c.prefs.SetBool(store.KeyMotionControlEnabled, enabled); err != nil {
		return fmt.Errorf("write preference: %w", err)
	}
	return nil
}

func (c *Controller) notify() {
	running := c.runner.Running()
	for _, fn := range c.listeners {
		fn(running)
	}
}
