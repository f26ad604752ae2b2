// Package session owns one motion-control session: the capture device, the
// pose estimator, the display surfaces and the per-session cursor and click
// gesture state. A single cooperative loop drives every cycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/ayusman/nritya/internal/capture"
	"github.com/ayusman/nritya/internal/dispatch"
	"github.com/ayusman/nritya/internal/geom"
	"github.com/ayusman/nritya/internal/gesture"
	"github.com/ayusman/nritya/internal/mapper"
	"github.com/ayusman/nritya/internal/overlay"
	"github.com/ayusman/nritya/internal/pose"
	"github.com/ayusman/nritya/internal/store"
	"github.com/ayusman/nritya/internal/telemetry"
)

// DefaultRetryBackoff is the pause after a failed cycle.
const DefaultRetryBackoff = time.Second

// Status texts.
const (
	StatusActive   = "Motion Control Active"
	StatusStarting = "Starting camera..."
	StatusStopped  = "Motion Control Stopped"
)

var (
	// ErrAlreadyRunning is returned by Start on a running session.
	ErrAlreadyRunning = errors.New("session already running")

	// ErrInferenceInFlight is returned by Start while the previous session's
	// inference has not returned yet.
	ErrInferenceInFlight = errors.New("previous inference still in flight")
)

// Setup stages reported by SetupError.
const (
	StageSurface = "surface"
	StageModel   = "model"
	StageCamera  = "camera"
)

// SetupError is a fatal error raised while starting a session.
type SetupError struct {
	Stage string
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// Surface is the render chrome attached to the display while a session runs.
type Surface interface {
	Attach(ctx context.Context) error
	Detach(ctx context.Context) error
}

// StatusSink shows the session status to the user.
type StatusSink interface {
	SetStatus(ctx context.Context, text string) error
}

// Renderer draws the overlay for one cycle.
type Renderer interface {
	Render(frame *gocv.Mat, v overlay.View) error
}

// Viewport reports the display size pointer coordinates are mapped into.
type Viewport interface {
	Viewport(ctx context.Context) (geom.Size, error)
}

// Pointer delivers pointer intents. *dispatch.Dispatcher implements it.
type Pointer interface {
	Move(ctx context.Context, pt geom.Point) error
	Click(ctx context.Context, pt geom.Point) (dispatch.Outcome, error)
}

// ClickRecorder persists emitted clicks. *store.ClickRepository implements it.
type ClickRecorder interface {
	Record(c *store.Click) error
}

// State is the session lifecycle state.
type State int

const (
	// Stopped means no loop is running and no resources are held.
	Stopped State = iota
	// Waiting means the loop runs but no decodable frame has arrived yet.
	Waiting
	// Running means frames are flowing.
	Running
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Waiting:
		return "waiting"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Config configures a Session.
type Config struct {
	Camera    capture.Camera
	Estimator pose.Estimator
	Pointer   Pointer
	Viewport  Viewport
	Clock     FrameClock

	// Optional collaborators.
	Surface  Surface
	Status   StatusSink
	Renderer Renderer
	Clicks   ClickRecorder
	Metrics  *telemetry.Metrics

	Roles      mapper.Roles
	Confidence float64
	Cooldown   time.Duration

	// RetryBackoff is the pause after a failed cycle (default: 1s).
	RetryBackoff time.Duration

	// Now is the clock for the click cooldown (default: time.Now).
	Now func() time.Time

	Logger zerolog.Logger
}

// Session is one start/stop lifecycle of the pipeline.
type Session struct {
	cfg      Config
	log      zerolog.Logger
	mapper   *mapper.Mapper
	detector *gesture.Detector

	mu      sync.Mutex
	running bool
	state   State
	status  string
	cursor  geom.Point
	lastErr error
	stale   int
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a stopped session. Zero Roles select the right-hand
// assignment.
func New(cfg Config) *Session {
	if cfg.Roles == (mapper.Roles{}) {
		cfg.Roles, _ = mapper.RolesFor(mapper.HandRight)
	}
	if cfg.Confidence <= 0 {
		cfg.Confidence = mapper.DefaultConfidence
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = gesture.DefaultCooldown
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Clock == nil {
		cfg.Clock = NewTickerClock(DefaultRefreshRate)
	}

	var canvas geom.Size
	if cfg.Camera != nil {
		canvas = cfg.Camera.Size()
	}

	done := make(chan struct{})
	close(done)

	return &Session{
		cfg:      cfg,
		log:      cfg.Logger.With().Str("component", "session").Logger(),
		mapper:   mapper.New(canvas, cfg.Roles, cfg.Confidence),
		detector: gesture.NewDetector(cfg.Confidence, cfg.Cooldown, cfg.Now),
		status:   StatusStopped,
		done:     done,
	}
}

// Start attaches the surfaces, loads the model and opens the camera, then
// starts the loop. Any failure is fatal: partially acquired resources are
// released, the status shows the error and the session stays stopped.
// ctx bounds setup only; the loop runs until Stop.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	prev := s.done
	s.mu.Unlock()

	// A previous loop may still be inside an inference; the estimator is
	// reused, so it has to finish first.
	waitErr := awaitLoop(ctx, prev)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	attached := false
	loaded := false
	fail := func(stage string, err error) error {
		serr := &SetupError{Stage: stage, Err: err}
		if loaded {
			if cerr := s.cfg.Estimator.Close(); cerr != nil {
				s.log.Warn().Err(cerr).Msg("close estimator")
			}
		}
		if attached {
			if derr := s.cfg.Surface.Detach(ctx); derr != nil {
				s.log.Warn().Err(derr).Msg("detach surface")
			}
		}
		// Posted after the detach so the error stays on screen.
		s.setStatusLocked(ctx, "Error: "+serr.Error())
		s.log.Error().Err(serr).Str("stage", stage).Msg("session start failed")
		return serr
	}

	if s.cfg.Camera == nil || s.cfg.Estimator == nil || s.cfg.Pointer == nil || s.cfg.Viewport == nil {
		return errors.New("session: camera, estimator, pointer and viewport are required")
	}
	if waitErr != nil {
		return fail(StageModel, waitErr)
	}

	if s.cfg.Surface != nil {
		if err := s.cfg.Surface.Attach(ctx); err != nil {
			return fail(StageSurface, err)
		}
		attached = true
	}
	s.setStatusLocked(ctx, StatusStarting)

	if err := s.cfg.Estimator.Load(ctx); err != nil {
		return fail(StageModel, err)
	}
	loaded = true

	if err := s.cfg.Camera.Open(); err != nil {
		return fail(StageCamera, err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mapper = mapper.New(s.cfg.Camera.Size(), s.cfg.Roles, s.cfg.Confidence)
	s.running = true
	s.state = Waiting
	s.lastErr = nil
	s.stale = 0
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(loopCtx, s.done)

	s.log.Info().Msg("session started")
	return nil
}

// Stop halts the loop and releases the camera and the surfaces. It does not
// wait for an in-flight inference: that result is discarded and the loop
// releases the estimator once the inference returns. Stopping a stopped
// session is a no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.state = Stopped
	s.cursor = geom.Point{}
	s.status = StatusStopped
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	var errs []error
	if err := s.cfg.Camera.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close camera: %w", err))
	}
	if s.cfg.Surface != nil {
		if err := s.cfg.Surface.Detach(ctx); err != nil {
			errs = append(errs, fmt.Errorf("detach surface: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		s.log.Warn().Err(err).Msg("session stop")
	}
	s.log.Info().Msg("session stopped")
	return err
}

// Running reports whether the loop is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the last status text.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Cursor returns the smoothed cursor position after the last cycle.
func (s *Session) Cursor() geom.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Done is closed when the loop has exited and released the estimator.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Session) setStatus(ctx context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatusLocked(ctx, text)
}

func (s *Session) setStatusLocked(ctx context.Context, text string) {
	s.status = text
	if s.cfg.Status == nil {
		return
	}
	if err := s.cfg.Status.SetStatus(ctx, text); err != nil {
		s.log.Debug().Err(err).Msg("set status")
	}
}

// teardown runs on the loop goroutine once the last cycle has returned.
func (s *Session) teardown() {
	if err := s.cfg.Estimator.Close(); err != nil {
		s.log.Warn().Err(err).Msg("close estimator")
	}
	s.mapper.Reset()
	s.detector.Reset()
}

// awaitLoop waits for a previous loop to exit, bounded by ctx and the
// teardown timeout.
func awaitLoop(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	default:
	}

	timer := time.NewTimer(teardownTimeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrInferenceInFlight
	}
}
