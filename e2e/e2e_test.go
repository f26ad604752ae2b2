package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/nritya/internal/app"
	"github.com/ayusman/nritya/internal/capture"
	"github.com/ayusman/nritya/internal/config"
	"github.com/ayusman/nritya/internal/dispatch"
	"github.com/ayusman/nritya/internal/geom"
	"github.com/ayusman/nritya/internal/overlay"
	"github.com/ayusman/nritya/internal/pose"
	"github.com/ayusman/nritya/internal/session"
	"github.com/ayusman/nritya/testdata"
)

type rig struct {
	app       *app.App
	ts        *httptest.Server
	cam       *capture.MockCamera
	est       *pose.ScriptedEstimator
	display   *dispatch.MockDisplay
	indicator *dispatch.MockIndicator
	surface   *session.MockSurface
	clock     *session.ManualClock
}

func newRig(t *testing.T, steps ...pose.Step) *rig {
	t.Helper()

	frame := testdata.BlankFrame(320, 240)
	t.Cleanup(func() { frame.Close() })

	dir := t.TempDir()
	cfg := &config.Config{
		Camera:   config.CameraConfig{Width: 320, Height: 240},
		Model:    config.ModelConfig{Backend: config.BackendMock, Size: pose.DefaultModelSize},
		Gesture:  config.GestureConfig{Confidence: 0.2, Cooldown: time.Second, PointerHand: "right"},
		Pipeline: config.PipelineConfig{RetryBackoff: 10 * time.Millisecond},
		Dispatch: config.DispatchConfig{MaxDepth: 3, Pulse: time.Millisecond},
		Store:    config.StoreConfig{Path: filepath.Join(dir, "nritya.db")},
		UI:       config.UIConfig{Mode: config.UIHeadless},
	}

	r := &rig{
		cam:       capture.NewMockCamera([]*gocv.Mat{frame}, true),
		est:       pose.NewScriptedEstimator(steps...),
		display:   dispatch.NewMockDisplay(1000, 800),
		indicator: dispatch.NewMockIndicator(),
		surface:   session.NewMockSurface(),
		clock:     session.NewManualClock(),
	}
	r.app = app.New(cfg, app.Options{
		Camera:    r.cam,
		Estimator: r.est,
		Display:   r.display,
		Indicator: r.indicator,
		Surface:   r.surface,
		Status:    r.surface,
		Clock:     r.clock,
	})
	require.NoError(t, r.app.Init(context.Background()))
	t.Cleanup(func() { r.app.Close() })

	r.ts = httptest.NewServer(r.app.Handler())
	t.Cleanup(r.ts.Close)
	return r
}

func (r *rig) setEnabled(t *testing.T, enabled bool) (int, map[string]any) {
	t.Helper()
	body, _ := json.Marshal(map[string]bool{"enabled": enabled})
	req, err := http.NewRequest(http.MethodPut, r.ts.URL+"/api/control", bytes.NewReader(body))
	require.NoError(t, err)

	resp, err := r.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var state map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	return resp.StatusCode, state
}

func (r *rig) frames(t *testing.T, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i <= n; i++ {
		require.True(t, r.clock.Tick(ctx))
	}
}

func TestE2E_CaptureUnavailable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	r := newRig(t, pose.Poses(pose.NeutralPose())...)
	r.cam.SetOpenError(errors.New("no device"))

	code, state := r.setEnabled(t, true)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, false, state["enabled"])
	assert.Contains(t, state["error"], "camera")
	assert.True(t, strings.HasPrefix(state["status"].(string), "Error: camera"), state["status"])

	assert.False(t, r.surface.Attached(), "no surfaces remain attached")
	assert.Equal(t, 1, r.surface.Detaches())
	assert.Empty(t, r.indicator.Moves())
}

func TestE2E_PointerMoveAfterOneSmoothingStep(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	// Model centre is canvas-relative (0.5, 0.5), which mirroring keeps.
	r := newRig(t, pose.Poses(pose.PointerAt(96, 96))...)

	wsURL := "ws" + strings.TrimPrefix(r.ts.URL, "http") + "/api/pose"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return r.app.Hub().Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	code, state := r.setEnabled(t, true)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, state["enabled"])

	r.frames(t, 1)

	moves := r.indicator.Moves()
	require.NotEmpty(t, moves)
	assert.Equal(t, geom.Pt(250, 200), moves[0])

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap overlay.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, geom.Pt(250, 200), snap.Cursor)
	assert.Equal(t, "armed", snap.State)
	require.NotNil(t, snap.Pose)

	// Pointer moves never dispatch.
	assert.Empty(t, r.display.Doc.Events())

	code, state = r.setEnabled(t, false)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, state["enabled"])
	assert.Equal(t, false, state["preference"])
	assert.False(t, r.surface.Attached())
}

func TestE2E_ClickDispatchAndLog(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	steps, err := testdata.LoadSteps("raise_hold")
	require.NoError(t, err)
	r := newRig(t, steps...)

	canvas := dispatch.NewMockElement("canvas")
	r.display.SetElement(canvas)

	code, _ := r.setEnabled(t, true)
	require.Equal(t, http.StatusOK, code)

	r.frames(t, 6)

	assert.Len(t, r.indicator.Pulses(), 1, "held raise pulses once")
	assert.Equal(t, 1, canvas.Activations())
	assert.Contains(t, canvas.Types(), "mousedown")
	assert.Contains(t, r.display.Doc.Types(), "click")
	assert.Contains(t, r.display.Win.Types(), "click")

	resp, err := r.ts.Client().Get(r.ts.URL + "/api/clicks?limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()

	var list struct {
		Clicks []struct {
			Target     string   `json:"target"`
			Hit        bool     `json:"hit"`
			Strategies []string `json:"strategies"`
		} `json:"clicks"`
		Total int `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "canvas", list.Clicks[0].Target)
	assert.True(t, list.Clicks[0].Hit)
	assert.Equal(t, []string{"direct", "ancestor", "events", "canvas"}, list.Clicks[0].Strategies)
}
