package app

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/ayusman/nritya/internal/browser"
	"github.com/ayusman/nritya/internal/capture"
	"github.com/ayusman/nritya/internal/config"
	"github.com/ayusman/nritya/internal/dispatch"
	"github.com/ayusman/nritya/internal/mapper"
	"github.com/ayusman/nritya/internal/overlay"
	"github.com/ayusman/nritya/internal/plugin"
	"github.com/ayusman/nritya/internal/pose"
	"github.com/ayusman/nritya/internal/session"
	"github.com/ayusman/nritya/internal/store"
)

// newSession builds the session from the configured or injected devices.
// The page, when there is one, provides the surface, the status badge and
// the frame clock.
func (a *App) newSession(display dispatch.Display) (*session.Session, error) {
	roles, err := mapper.RolesFor(mapper.Hand(a.cfg.Gesture.PointerHand))
	if err != nil {
		return nil, err
	}

	est := a.opts.Estimator
	if est == nil {
		est, err = NewEstimator(a.cfg.Model)
		if err != nil {
			return nil, err
		}
	}

	cam := a.opts.Camera
	if cam == nil {
		cam = capture.NewCamera(capture.Options{
			DeviceID: a.cfg.Camera.Device,
			Width:    a.cfg.Camera.Width,
			Height:   a.cfg.Camera.Height,
		})
	}

	surface, status, clock := a.opts.Surface, a.opts.Status, a.opts.Clock
	if a.page != nil {
		if surface == nil {
			surface = a.page
		}
		if status == nil {
			status = a.page
		}
		if clock == nil {
			clock = a.page
		}
	}
	if clock == nil {
		clock = session.NewTickerClock(a.cfg.Pipeline.RefreshRate)
	}

	return session.New(session.Config{
		Camera:       cam,
		Estimator:    est,
		Pointer:      a.pointer,
		Viewport:     display,
		Clock:        clock,
		Surface:      surface,
		Status:       &statusFanout{app: a, next: status},
		Renderer:     overlay.NewRenderer(a.hub),
		Clicks:       &clickFanout{app: a, next: a.store.Clicks()},
		Metrics:      a.metrics,
		Roles:        roles,
		Confidence:   a.cfg.Gesture.Confidence,
		Cooldown:     a.cfg.Gesture.Cooldown,
		RetryBackoff: a.cfg.Pipeline.RetryBackoff,
		Logger:       a.opts.Logger,
	}), nil
}

// strategies returns the click strategies: the four in-page strategies,
// then trusted DevTools input and plugins when configured.
func (a *App) strategies() ([]dispatch.Strategy, error) {
	out := dispatch.DefaultStrategies(a.cfg.Dispatch.MaxDepth)

	if a.cfg.Dispatch.TrustedInput {
		if a.page == nil {
			a.log.Warn().Msg("trusted input needs a browser page; skipped")
		} else {
			out = append(out, browser.TrustedInput{Page: a.page, Touch: true})
		}
	}

	if len(a.cfg.Dispatch.Plugins) > 0 {
		mgr := plugin.NewManager(a.cfg.Plugins.Dir, a.opts.Logger)
		if err := mgr.Discover(); err != nil {
			return nil, fmt.Errorf("discover plugins: %w", err)
		}
		ps, err := plugin.Strategies(mgr, plugin.NewExecutor(a.cfg.Plugins.Timeout), a.cfg.Dispatch.Plugins)
		if err != nil {
			return nil, fmt.Errorf("plugin strategies: %w", err)
		}
		out = append(out, ps...)
	}

	return out, nil
}

// NewEstimator creates the configured keypoint model adapter. The mock
// backend replays a standing pose, which is enough to exercise the pipeline
// without a model.
func NewEstimator(cfg config.ModelConfig) (pose.Estimator, error) {
	pc := pose.Config{
		ModelPath:     cfg.Path,
		ModelSize:     cfg.Size,
		ServiceScript: cfg.ServiceScript,
		Python:        cfg.Python,
	}

	switch cfg.Backend {
	case config.BackendMoveNet, "":
		return pose.NewMoveNet(pc), nil
	case config.BackendService:
		return pose.NewService(pc), nil
	case config.BackendMock:
		return pose.NewScriptedEstimator(pose.Poses(pose.NeutralPose())...), nil
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
	}
}

// previewURL is the overlay stream as seen from the controlled page.
func previewURL(addr string) string {
	if addr == "" {
		return ""
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/api/stream"
}

// statusFanout forwards session status to the page and to OnStatus
// listeners.
type statusFanout struct {
	app  *App
	next session.StatusSink
}

func (s *statusFanout) SetStatus(ctx context.Context, text string) error {
	s.app.mu.RLock()
	listeners := s.app.onStatus
	s.app.mu.RUnlock()

	for _, fn := range listeners {
		fn(text)
	}
	if s.next == nil {
		return nil
	}
	return s.next.SetStatus(ctx, text)
}

// clickFanout records clicks in the store and notifies OnClick listeners.
type clickFanout struct {
	app  *App
	next session.ClickRecorder
}

func (c *clickFanout) Record(click *store.Click) error {
	err := c.next.Record(click)

	c.app.mu.RLock()
	listeners := c.app.onClick
	c.app.mu.RUnlock()

	for _, fn := range listeners {
		fn(click)
	}
	return err
}

// LastClickLabel describes a click for status displays.
func LastClickLabel(c *store.Click) string {
	target := c.Target
	if target == "" {
		target = "nothing"
	}
	if c.Error != "" {
		return fmt.Sprintf("%s (%s)", target, strings.SplitN(c.Error, "\n", 2)[0])
	}
	return fmt.Sprintf("%s at %.0f,%.0f", target, c.X, c.Y)
}
