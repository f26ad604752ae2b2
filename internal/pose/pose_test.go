package pose

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func TestLandmark_String(t *testing.T) {
	tests := []struct {
		landmark Landmark
		want     string
	}{
		{Nose, "nose"},
		{LeftWrist, "leftWrist"},
		{RightShoulder, "rightShoulder"},
		{RightAnkle, "rightAnkle"},
		{Landmark(42), "Landmark(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.landmark.String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseLandmark(t *testing.T) {
	for i := 0; i < NumLandmarks; i++ {
		l := Landmark(i)
		got, err := ParseLandmark(l.String())
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", l, err)
		}
		if got != l {
			t.Errorf("expected %v, got %v", l, got)
		}
	}

	if _, err := ParseLandmark("leftPinky"); err == nil {
		t.Error("expected error for unknown landmark")
	}
}

func TestSkeleton_IndicesInRange(t *testing.T) {
	if len(Skeleton) != 16 {
		t.Errorf("expected 16 skeleton edges, got %d", len(Skeleton))
	}
	for _, e := range Skeleton {
		for _, l := range e {
			if l < 0 || int(l) >= NumLandmarks {
				t.Errorf("edge %v references landmark out of range", e)
			}
		}
	}
}

func TestKeypoint_Confident(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  bool
	}{
		{"below floor", 0.1, false},
		{"at floor is absent", 0.2, false},
		{"above floor", 0.21, true},
		{"certain", 1.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := Keypoint{Score: tt.score}
			if got := k.Confident(0.2); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPose_Detected(t *testing.T) {
	t.Run("nil pose is not detected", func(t *testing.T) {
		var p *Pose
		if p.Detected(0.2) {
			t.Error("expected nil pose to be undetected")
		}
	})

	t.Run("all scores at floor is not detected", func(t *testing.T) {
		p := NewPose(DefaultModelSize)
		for i := range p.Keypoints {
			p.Keypoints[i].Score = 0.2
		}
		if p.Detected(0.2) {
			t.Error("expected pose to be undetected")
		}
	})

	t.Run("one confident keypoint is detected", func(t *testing.T) {
		p := NewPose(DefaultModelSize)
		p.Set(Nose, 10, 10, 0.5)
		if !p.Detected(0.2) {
			t.Error("expected pose to be detected")
		}
	})
}

func TestPose_Clone(t *testing.T) {
	p := NeutralPose()
	c := p.Clone()
	c.Set(Nose, 0, 0, 0)

	if p.Get(Nose).X != 96 {
		t.Error("expected clone to be independent of the original")
	}
	if c.Get(Nose).Name != Nose {
		t.Error("expected clone to keep landmark names")
	}
}

func TestDecodeMoveNet(t *testing.T) {
	t.Run("scales normalized output into model space", func(t *testing.T) {
		values := make([]float32, moveNetValues)
		// [y, x, score] for the right wrist
		values[int(RightWrist)*3] = 0.25
		values[int(RightWrist)*3+1] = 0.5
		values[int(RightWrist)*3+2] = 0.8

		p, err := decodeMoveNet(values, 192)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		kp := p.Get(RightWrist)
		if math.Abs(kp.X-96) > 1e-4 || math.Abs(kp.Y-48) > 1e-4 {
			t.Errorf("expected (96, 48), got (%f, %f)", kp.X, kp.Y)
		}
		if math.Abs(kp.Score-0.8) > 1e-6 {
			t.Errorf("expected score 0.8, got %f", kp.Score)
		}
		if p.Space.W != 192 || p.Space.H != 192 {
			t.Errorf("expected 192x192 space, got %v", p.Space)
		}
	})

	t.Run("short output is an error", func(t *testing.T) {
		if _, err := decodeMoveNet(make([]float32, 10), 192); err == nil {
			t.Error("expected error for short output")
		}
	})
}

func TestMoveNet_EstimateBeforeLoad(t *testing.T) {
	m := NewMoveNet(DefaultConfig())
	_, err := m.Estimate(context.Background(), nil)
	if !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
}

func TestMoveNet_LoadMissingModel(t *testing.T) {
	m := NewMoveNet(Config{ModelPath: "/nonexistent/movenet.onnx"})
	if err := m.Load(context.Background()); err == nil {
		t.Error("expected error for missing model file")
	}
}

func TestDecodeResponse(t *testing.T) {
	t.Run("named keypoints", func(t *testing.T) {
		resp := jsonResponse{
			Size: 192,
			Keypoints: []jsonKeypoint{
				{Name: "leftWrist", X: 10, Y: 20, Score: 0.7},
				{Name: "nose", X: 96, Y: 40, Score: 0.9},
			},
		}
		line, _ := json.Marshal(resp)

		p, err := decodeResponse(line, 192)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := p.Get(LeftWrist); got.X != 10 || got.Y != 20 || got.Score != 0.7 {
			t.Errorf("unexpected left wrist %+v", got)
		}
		if got := p.Get(Nose); got.Score != 0.9 {
			t.Errorf("unexpected nose %+v", got)
		}
	})

	t.Run("empty keypoints means no pose", func(t *testing.T) {
		p, err := decodeResponse([]byte(`{"size":192,"keypoints":[]}`), 192)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p != nil {
			t.Errorf("expected nil pose, got %+v", p)
		}
	})

	t.Run("missing size falls back to model size", func(t *testing.T) {
		p, err := decodeResponse([]byte(`{"keypoints":[{"x":1,"y":2,"score":0.5}]}`), 256)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Space.W != 256 {
			t.Errorf("expected space 256, got %v", p.Space.W)
		}
		if p.Get(Nose).X != 1 {
			t.Error("expected unnamed keypoint to be placed by index")
		}
	})

	t.Run("service error is returned", func(t *testing.T) {
		if _, err := decodeResponse([]byte(`{"error":"model crashed"}`), 192); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := decodeResponse([]byte(`not json`), 192); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestService_EstimateBeforeLoad(t *testing.T) {
	s := NewService(DefaultConfig())
	_, err := s.Estimate(context.Background(), nil)
	if !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
}

func TestScriptedEstimator(t *testing.T) {
	ctx := context.Background()

	t.Run("estimate before load", func(t *testing.T) {
		s := NewScriptedEstimator()
		if _, err := s.Estimate(ctx, nil); !errors.Is(err, ErrNotLoaded) {
			t.Errorf("expected ErrNotLoaded, got %v", err)
		}
	})

	t.Run("load error", func(t *testing.T) {
		s := NewScriptedEstimator()
		s.SetLoadError(errors.New("fetch failed"))
		if err := s.Load(ctx); err == nil {
			t.Error("expected load error")
		}
	})

	t.Run("replays steps then repeats last", func(t *testing.T) {
		boom := errors.New("inference failed")
		s := NewScriptedEstimator(
			Step{Pose: NeutralPose()},
			Step{Err: boom},
			Step{Pose: ClickRaisedPose()},
		)
		if err := s.Load(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		p, err := s.Estimate(ctx, nil)
		if err != nil || p == nil {
			t.Fatalf("expected neutral pose, got %v, %v", p, err)
		}

		if _, err := s.Estimate(ctx, nil); !errors.Is(err, boom) {
			t.Errorf("expected scripted error, got %v", err)
		}

		for i := 0; i < 3; i++ {
			p, err := s.Estimate(ctx, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Get(LeftWrist).Y != 20 {
				t.Errorf("expected raised pose to repeat, got wrist y %f", p.Get(LeftWrist).Y)
			}
		}

		if s.Calls() != 5 {
			t.Errorf("expected 5 calls, got %d", s.Calls())
		}
	})

	t.Run("returned poses are copies", func(t *testing.T) {
		s := NewScriptedEstimator(Poses(NeutralPose())...)
		s.Load(ctx)

		p, _ := s.Estimate(ctx, nil)
		p.Set(Nose, 0, 0, 0)

		again, _ := s.Estimate(ctx, nil)
		if math.Abs(again.Get(Nose).X-96) > epsilon {
			t.Error("expected script to be unaffected by caller mutation")
		}
	})
}

func TestPresetPoses(t *testing.T) {
	raised := ClickRaisedPose()
	if raised.Get(LeftWrist).Y >= raised.Get(Nose).Y {
		t.Error("expected left wrist above nose in raised pose")
	}

	neutral := NeutralPose()
	if neutral.Get(LeftWrist).Y <= neutral.Get(LeftShoulder).Y {
		t.Error("expected left wrist below shoulder in neutral pose")
	}

	p := PointerAt(10, 20)
	if got := p.Get(RightWrist); got.X != 10 || got.Y != 20 {
		t.Errorf("expected right wrist at (10, 20), got (%f, %f)", got.X, got.Y)
	}
}
