package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/nritya/internal/capture"
	"github.com/ayusman/nritya/internal/dispatch"
	"github.com/ayusman/nritya/internal/geom"
	"github.com/ayusman/nritya/internal/gesture"
	"github.com/ayusman/nritya/internal/pose"
)

const waitFor = 2 * time.Second

type harness struct {
	cam       *capture.MockCamera
	est       *pose.ScriptedEstimator
	display   *dispatch.MockDisplay
	indicator *dispatch.MockIndicator
	surface   *MockSurface
	renderer  *MockRenderer
	clicks    *MemoryClicks
	clock     *ManualClock
	sess      *Session

	mu  sync.Mutex
	now time.Time
}

func newHarness(t *testing.T, steps ...pose.Step) *harness {
	t.Helper()

	frame := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })

	h := &harness{
		cam:       capture.NewMockCamera([]*gocv.Mat{&frame}, true),
		est:       pose.NewScriptedEstimator(steps...),
		display:   dispatch.NewMockDisplay(1000, 800),
		indicator: dispatch.NewMockIndicator(),
		surface:   NewMockSurface(),
		renderer:  &MockRenderer{},
		clicks:    &MemoryClicks{},
		clock:     NewManualClock(),
		now:       time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	pointer := dispatch.New(dispatch.Config{Display: h.display, Indicator: h.indicator})

	h.sess = New(Config{
		Camera:       h.cam,
		Estimator:    h.est,
		Pointer:      pointer,
		Viewport:     h.display,
		Clock:        h.clock,
		Surface:      h.surface,
		Status:       h.surface,
		Renderer:     h.renderer,
		Clicks:       h.clicks,
		RetryBackoff: 10 * time.Millisecond,
		Now:          h.clockNow,
	})
	t.Cleanup(func() { h.sess.Stop() })
	return h
}

func (h *harness) clockNow() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = h.now.Add(d)
}

// cycles releases n frames and waits until n more views were rendered.
func (h *harness) cycles(t *testing.T, n int) {
	t.Helper()
	want := len(h.renderer.Views()) + n
	for i := 0; i < n; i++ {
		require.True(t, h.clock.Tick(context.Background()))
		target := want - n + i + 1
		require.Eventually(t, func() bool { return len(h.renderer.Views()) >= target }, waitFor, time.Millisecond)
	}
}

func TestSession_StartFailsWithoutCamera(t *testing.T) {
	h := newHarness(t, pose.Poses(pose.NeutralPose())...)
	h.cam.SetOpenError(capture.ErrDeviceUnavailable)

	err := h.sess.Start(context.Background())
	require.Error(t, err)

	var serr *SetupError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StageCamera, serr.Stage)
	assert.ErrorIs(t, err, capture.ErrDeviceUnavailable)

	assert.False(t, h.sess.Running())
	assert.Equal(t, Stopped, h.sess.State())
	assert.True(t, strings.HasPrefix(h.sess.Status(), "Error: camera:"), "status %q", h.sess.Status())
	assert.False(t, h.surface.Attached(), "surface left attached")
	assert.True(t, h.est.Closed(), "estimator not released")

	// The error is posted after the chrome is removed so it stays visible.
	events := h.surface.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "status:"+h.sess.Status(), events[len(events)-1])
	assert.Contains(t, events, "detach")
}

func TestSession_StartFailsOnModelLoad(t *testing.T) {
	h := newHarness(t)
	h.est.SetLoadError(errors.New("model missing"))

	err := h.sess.Start(context.Background())

	var serr *SetupError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StageModel, serr.Stage)
	assert.Equal(t, 0, h.cam.Opened(), "camera opened after model failure")
	assert.False(t, h.surface.Attached())
	assert.Equal(t, "Error: model: model missing", h.sess.Status())
}

func TestSession_StartFailsOnSurface(t *testing.T) {
	h := newHarness(t)
	h.surface.SetAttachError(errors.New("page gone"))

	err := h.sess.Start(context.Background())

	var serr *SetupError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StageSurface, serr.Stage)
	assert.Equal(t, 0, h.est.Calls())
	assert.Equal(t, 0, h.surface.Detaches())
}

func TestSession_StartTwice(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sess.Start(context.Background()))

	err := h.sess.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestSession_PointerMove(t *testing.T) {
	// Model-space (96, 96) is the canvas centre: display (500, 400) before
	// smoothing, (250, 200) after one step from zero.
	h := newHarness(t, pose.Poses(pose.PointerAt(96, 96))...)
	require.NoError(t, h.sess.Start(context.Background()))

	h.cycles(t, 1)

	assert.Equal(t, Running, h.sess.State())
	assert.Equal(t, geom.Pt(250, 200), h.sess.Cursor())
	require.Len(t, h.indicator.Moves(), 1)
	assert.Equal(t, geom.Pt(250, 200), h.indicator.Moves()[0])

	views := h.renderer.Views()
	require.Len(t, views, 1)
	assert.InDelta(t, 500, views[0].Pointer.Display.X, 1e-9)
	assert.InDelta(t, 400, views[0].Pointer.Display.Y, 1e-9)
	assert.Equal(t, StatusActive, h.sess.Status())
}

func TestSession_SmoothingConverges(t *testing.T) {
	h := newHarness(t, pose.Poses(pose.PointerAt(96, 96))...)
	require.NoError(t, h.sess.Start(context.Background()))

	prev := 0.0
	for i := 0; i < 12; i++ {
		h.cycles(t, 1)
		x := h.sess.Cursor().X
		assert.GreaterOrEqual(t, x, prev, "cursor moved away at step %d", i)
		assert.LessOrEqual(t, x, 500.0, "cursor overshot at step %d", i)
		prev = x
	}
	assert.InDelta(t, 500, prev, 0.5)
}

func TestSession_ClickOncePerRaise(t *testing.T) {
	h := newHarness(t, pose.Poses(
		pose.NeutralPose(),
		pose.ClickRaisedPose(),
		pose.ClickRaisedPose(),
		pose.ClickRaisedPose(),
	)...)
	button := dispatch.NewMockElement("button")
	h.display.SetElement(button)
	require.NoError(t, h.sess.Start(context.Background()))

	h.cycles(t, 4)

	clicks := h.clicks.Clicks()
	require.Len(t, clicks, 1)
	assert.Equal(t, "button", clicks[0].Target)
	assert.True(t, clicks[0].Hit)
	assert.Contains(t, clicks[0].Strategies, "direct")
	assert.Empty(t, clicks[0].Error)
	assert.Len(t, h.indicator.Pulses(), 1)
	assert.GreaterOrEqual(t, button.Activations(), 1)
}

func TestSession_ClickCooldown(t *testing.T) {
	h := newHarness(t, pose.Poses(
		pose.ClickRaisedPose(),
		pose.NeutralPose(),
		pose.ClickRaisedPose(),
		pose.NeutralPose(),
		pose.ClickRaisedPose(),
	)...)
	require.NoError(t, h.sess.Start(context.Background()))

	// Second raise within the cooldown is suppressed.
	h.cycles(t, 3)
	assert.Len(t, h.clicks.Clicks(), 1)

	h.cycles(t, 1)
	h.advance(1500 * time.Millisecond)
	h.cycles(t, 1)
	assert.Len(t, h.clicks.Clicks(), 2)
}

func TestSession_MissClickIsRecorded(t *testing.T) {
	h := newHarness(t, pose.Poses(pose.ClickRaisedPose())...)
	require.NoError(t, h.sess.Start(context.Background()))

	h.cycles(t, 1)

	clicks := h.clicks.Clicks()
	require.Len(t, clicks, 1)
	assert.False(t, clicks[0].Hit)
	assert.Empty(t, h.indicator.Pulses())
}

func TestSession_TransientErrorRecovers(t *testing.T) {
	h := newHarness(t,
		pose.Step{Err: errors.New("boom")},
		pose.Step{Pose: pose.NeutralPose()},
	)
	require.NoError(t, h.sess.Start(context.Background()))

	require.True(t, h.clock.Tick(context.Background()))
	require.Eventually(t, func() bool {
		return h.sess.Status() == "Error: inference: boom"
	}, waitFor, time.Millisecond)
	assert.True(t, h.sess.Running(), "transient error stopped the session")

	h.cycles(t, 1)
	assert.Equal(t, StatusActive, h.sess.Status())

	views := h.renderer.Views()
	require.Len(t, views, 1)
	require.Error(t, views[0].Err)
	assert.Contains(t, views[0].Err.Error(), "boom")

	h.cycles(t, 1)
	assert.NoError(t, h.renderer.Views()[1].Err)
}

func TestSession_WaitsForFirstFrame(t *testing.T) {
	h := newHarness(t, pose.Poses(pose.NeutralPose())...)
	h.cam.SetWarmup(2)
	require.NoError(t, h.sess.Start(context.Background()))
	assert.Equal(t, Waiting, h.sess.State())
	assert.Equal(t, StatusStarting, h.sess.Status())

	require.True(t, h.clock.Tick(context.Background()))
	require.True(t, h.clock.Tick(context.Background()))
	h.cycles(t, 1)

	assert.Equal(t, Running, h.sess.State())
	assert.Equal(t, 1, h.est.Calls())
}

func TestSession_StopReleasesEverything(t *testing.T) {
	h := newHarness(t, pose.Poses(pose.PointerAt(96, 96))...)
	require.NoError(t, h.sess.Start(context.Background()))
	h.cycles(t, 1)
	require.True(t, h.surface.Attached())

	require.NoError(t, h.sess.Stop())

	assert.False(t, h.sess.Running())
	assert.Equal(t, Stopped, h.sess.State())
	assert.Equal(t, StatusStopped, h.sess.Status())
	assert.False(t, h.cam.IsOpen())
	assert.False(t, h.surface.Attached())
	assert.Equal(t, geom.Point{}, h.sess.Cursor())

	select {
	case <-h.sess.Done():
	case <-time.After(waitFor):
		t.Fatal("loop did not exit after Stop")
	}
	assert.True(t, h.est.Closed())

	// Idempotent.
	assert.NoError(t, h.sess.Stop())
	assert.Equal(t, 1, h.surface.Detaches())
}

func TestSession_RestartResetsCursor(t *testing.T) {
	h := newHarness(t, pose.Poses(pose.PointerAt(96, 96))...)
	require.NoError(t, h.sess.Start(context.Background()))
	h.cycles(t, 2)
	assert.Equal(t, geom.Pt(375, 300), h.sess.Cursor())
	require.NoError(t, h.sess.Stop())

	require.NoError(t, h.sess.Start(context.Background()))
	h.cycles(t, 1)
	assert.Equal(t, geom.Pt(250, 200), h.sess.Cursor())
}

// blockingEstimator holds Estimate until released.
type blockingEstimator struct {
	pose.ScriptedEstimator
	entered chan struct{}
	release chan struct{}
}

func newBlockingEstimator() *blockingEstimator {
	return &blockingEstimator{entered: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingEstimator) Estimate(ctx context.Context, frame *gocv.Mat) (*pose.Pose, error) {
	close(b.entered)
	<-b.release
	return pose.PointerAt(96, 96), nil
}

// startBlocked rebuilds the harness session around est and starts it with
// one cycle inside Estimate.
func (h *harness) startBlocked(t *testing.T, est *blockingEstimator) {
	t.Helper()
	cfg := h.sess.cfg
	cfg.Estimator = est
	h.sess = New(cfg)

	require.NoError(t, h.sess.Start(context.Background()))
	require.True(t, h.clock.Tick(context.Background()))
	select {
	case <-est.entered:
	case <-time.After(waitFor):
		t.Fatal("estimator not entered")
	}
}

func TestSession_StopDiscardsInFlightResult(t *testing.T) {
	h := newHarness(t)
	est := newBlockingEstimator()
	h.startBlocked(t, est)

	require.NoError(t, h.sess.Stop())
	close(est.release)

	select {
	case <-h.sess.Done():
	case <-time.After(waitFor):
		t.Fatal("loop did not exit")
	}
	assert.Empty(t, h.indicator.Moves(), "result applied after stop")
	assert.Empty(t, h.renderer.Views())
	assert.Equal(t, geom.Point{}, h.sess.Cursor())
	assert.True(t, est.Closed())
}

func TestSession_StopDoesNotWaitForStalledInference(t *testing.T) {
	h := newHarness(t)
	est := newBlockingEstimator()
	h.startBlocked(t, est)
	t.Cleanup(func() { close(est.release) })

	stopped := make(chan error, 1)
	go func() { stopped <- h.sess.Stop() }()

	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Stop blocked on the stalled inference")
	}

	assert.False(t, h.sess.Running())
	assert.Equal(t, Stopped, h.sess.State())
	assert.False(t, h.cam.IsOpen(), "camera still held")
	assert.False(t, h.surface.Attached(), "surface still attached")
	assert.False(t, est.Closed(), "estimator closed under a running inference")

	select {
	case <-h.sess.Done():
		t.Fatal("loop exited while the inference is stalled")
	default:
	}

	// A restart cannot reuse the estimator until the inference returns.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := h.sess.Start(ctx)

	var serr *SetupError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StageModel, serr.Stage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, h.sess.Running())
	assert.Equal(t, 1, h.cam.Opened())
}

func TestSession_NoPoseKeepsGestureState(t *testing.T) {
	h := newHarness(t,
		pose.Step{Pose: pose.ClickRaisedPose()},
		pose.Step{},
	)
	require.NoError(t, h.sess.Start(context.Background()))

	h.cycles(t, 2)

	views := h.renderer.Views()
	require.Len(t, views, 2)
	assert.True(t, views[0].Gesture.Click)
	assert.Equal(t, gesture.Fired, views[0].Gesture.State)
	assert.Nil(t, views[1].Pose)
	assert.Equal(t, gesture.Fired, views[1].Gesture.State)
	assert.False(t, views[1].Gesture.Click)
}

func TestSession_StalledCameraReportsError(t *testing.T) {
	h := newHarness(t, pose.Poses(pose.NeutralPose())...)
	require.NoError(t, h.sess.Start(context.Background()))
	h.cycles(t, 1)
	require.Equal(t, StatusActive, h.sess.Status())

	h.cam.SetWarmup(staleFrameLimit)
	for i := 0; i < staleFrameLimit-1; i++ {
		require.True(t, h.clock.Tick(context.Background()))
	}
	// One short of the limit is still tolerated.
	assert.Equal(t, StatusActive, h.sess.Status())

	require.True(t, h.clock.Tick(context.Background()))
	require.Eventually(t, func() bool {
		return strings.HasPrefix(h.sess.Status(), "Error: capture: frame not ready")
	}, waitFor, time.Millisecond)
	assert.True(t, h.sess.Running(), "stalled camera stopped the session")

	// The device recovers on the next decodable frame.
	h.cycles(t, 1)
	assert.Equal(t, StatusActive, h.sess.Status())
	views := h.renderer.Views()
	assert.ErrorIs(t, views[len(views)-1].Err, capture.ErrFrameNotReady)
}

func TestTickerClock(t *testing.T) {
	c := NewTickerClock(100)
	defer c.Stop()
	assert.Equal(t, 10*time.Millisecond, c.Interval())

	require.NoError(t, c.NextFrame(context.Background()))

	slow := NewTickerClock(1)
	defer slow.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, slow.NextFrame(ctx), context.Canceled)
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Stopped, "stopped"},
		{Waiting, "waiting"},
		{Running, "running"},
		{State(9), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}
