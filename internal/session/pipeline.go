package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/nritya/internal/capture"
	"github.com/ayusman/nritya/internal/geom"
	"github.com/ayusman/nritya/internal/gesture"
	"github.com/ayusman/nritya/internal/overlay"
	"github.com/ayusman/nritya/internal/store"
)

const teardownTimeout = 5 * time.Second

// staleFrameLimit is how many consecutive undecodable reads a running
// session tolerates before it reports the capture as failing.
const staleFrameLimit = 30

// cycleError is a transient failure of one cycle.
type cycleError struct {
	stage string
	err   error
}

func (e *cycleError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *cycleError) Unwrap() error { return e.err }

// run is the pipeline loop. The run flag is checked before each cycle, so no
// cycle starts after Stop. A failed cycle is reported and retried after the
// backoff; only Stop ends the loop.
func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.teardown()

	for {
		if !s.Running() {
			return
		}

		if err := s.cfg.Clock.NextFrame(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			if !s.recover(ctx, &cycleError{stage: "clock", err: err}) {
				return
			}
			continue
		}

		if err := s.cycle(ctx); err != nil {
			if !s.recover(ctx, err) {
				return
			}
			continue
		}
	}
}

// recover reports a failed cycle and waits out the backoff. It returns false
// when the session was stopped meanwhile.
func (s *Session) recover(ctx context.Context, err error) bool {
	if !s.Running() {
		return false
	}

	stage := "cycle"
	var ce *cycleError
	if errors.As(err, &ce) {
		stage = ce.stage
	}

	s.log.Warn().Err(err).Str("stage", stage).Msg("cycle failed")
	s.cfg.Metrics.CycleError(ctx, stage)

	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.setStatus(ctx, "Error: "+err.Error())

	select {
	case <-ctx.Done():
		return false
	case <-time.After(s.cfg.RetryBackoff):
		return s.Running()
	}
}

// cycle processes one frame: read, infer, map, gesture, dispatch, render.
func (s *Session) cycle(ctx context.Context) error {
	frame, err := s.cfg.Camera.ReadFrame()
	if errors.Is(err, capture.ErrFrameNotReady) {
		return s.staleFrame(err)
	}
	if err != nil {
		return &cycleError{stage: "capture", err: err}
	}
	defer frame.Close()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.stale = 0
	first := s.state == Waiting
	if first {
		s.state = Running
	}
	recovered := s.lastErr != nil
	reported := s.lastErr
	s.lastErr = nil
	s.mu.Unlock()

	if first {
		s.log.Info().Msg("first frame decoded")
	}
	if first || recovered {
		s.setStatus(ctx, StatusActive)
	}

	// Inference is not aborted by Stop; its result is dropped instead.
	start := time.Now()
	raw, err := s.cfg.Estimator.Estimate(context.WithoutCancel(ctx), frame)
	s.cfg.Metrics.Inference(ctx, time.Since(start))
	if !s.Running() {
		return nil
	}
	if err != nil {
		return &cycleError{stage: "inference", err: err}
	}

	display, err := s.cfg.Viewport.Viewport(ctx)
	if err != nil {
		return &cycleError{stage: "viewport", err: err}
	}

	mf := s.mapper.Map(raw, display)

	var res gesture.Result
	if mf.Canvas != nil {
		roles := s.cfg.Roles
		res = s.detector.Step(gesture.InputFrom(mf.Canvas, roles.Click, roles.Shoulder, roles.Head))
	} else {
		res.State = s.detector.State()
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.cursor = mf.Cursor
	s.mu.Unlock()

	if mf.Moved {
		if err := s.cfg.Pointer.Move(ctx, mf.Cursor); err != nil {
			s.log.Warn().Err(err).Msg("move cursor")
		}
	}

	switch {
	case res.Click:
		s.cfg.Metrics.Click(ctx, true)
		s.click(ctx, mf.Cursor)
	case res.Suppressed:
		s.cfg.Metrics.Click(ctx, false)
		s.log.Debug().Msg("click suppressed by cooldown")
	}

	if s.cfg.Renderer != nil {
		v := overlay.View{
			Pose:    mf.Canvas,
			Canvas:  s.mapper.Canvas(),
			Floor:   s.cfg.Confidence,
			Roles:   s.cfg.Roles,
			Pointer: mf.Pointer,
			Cursor:  mf.Cursor,
			Gesture: res,
			Err:     reported,
		}
		if err := s.cfg.Renderer.Render(frame, v); err != nil {
			return &cycleError{stage: "render", err: err}
		}
	}

	s.cfg.Metrics.Cycle(ctx)
	return nil
}

// staleFrame counts an undecodable read. Before the first frame that is the
// camera warming up; once frames have flowed, a long run of them means the
// device stopped delivering and is reported as a capture failure.
func (s *Session) staleFrame(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Running {
		return nil
	}
	s.stale++
	if s.stale < staleFrameLimit {
		return nil
	}
	n := s.stale
	s.stale = 0
	return &cycleError{stage: "capture", err: fmt.Errorf("%w: %d consecutive reads", err, n)}
}

// click dispatches at the cursor and records the outcome. Dispatch failures
// are logged and recorded; they never fail the cycle.
func (s *Session) click(ctx context.Context, pt geom.Point) {
	out, err := s.cfg.Pointer.Click(ctx, pt)

	rec := &store.Click{
		X:          pt.X,
		Y:          pt.Y,
		Target:     out.Tag,
		Hit:        out.Hit,
		Strategies: out.Applied,
		CreatedAt:  s.cfg.Now(),
	}
	if err != nil {
		rec.Error = err.Error()
		s.cfg.Metrics.DispatchFailure(ctx)
		s.log.Warn().Err(err).Float64("x", pt.X).Float64("y", pt.Y).Msg("click dispatch")
	} else {
		s.log.Info().Float64("x", pt.X).Float64("y", pt.Y).Str("tag", out.Tag).Msg("click")
	}

	if s.cfg.Clicks == nil {
		return
	}
	if err := s.cfg.Clicks.Record(rec); err != nil {
		s.log.Warn().Err(err).Msg("record click")
	}
}
