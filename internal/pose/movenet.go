package pose

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// moveNetValues is the number of floats in a single-pose MoveNet output:
// 17 keypoints of [y, x, score], all normalized to [0,1].
const moveNetValues = NumLandmarks * 3

// MoveNet implements Estimator with a single-pose MoveNet model run
// in-process through OpenCV's DNN module.
type MoveNet struct {
	config Config
	net    *gocv.Net
	mu     sync.Mutex
}

// NewMoveNet creates a MoveNet estimator. The model file is read by Load.
func NewMoveNet(config Config) *MoveNet {
	config.defaults()
	return &MoveNet{config: config}
}

// Load reads the model from disk.
func (m *MoveNet) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.net != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := os.Stat(m.config.ModelPath); err != nil {
		return fmt.Errorf("movenet: model %q: %w", m.config.ModelPath, err)
	}

	net := gocv.ReadNet(m.config.ModelPath, "")
	if net.Empty() {
		net.Close()
		return fmt.Errorf("movenet: failed to read model %q", m.config.ModelPath)
	}

	m.net = &net
	return nil
}

// Estimate resizes the frame to the model's square input and runs a
// forward pass.
func (m *MoveNet) Estimate(ctx context.Context, frame *gocv.Mat) (*Pose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.net == nil {
		return nil, ErrNotLoaded
	}
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("movenet: empty frame")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := m.config.ModelSize
	blob := gocv.BlobFromImage(*frame, 1.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	defer out.Close()

	values, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("movenet: read output: %w", err)
	}

	return decodeMoveNet(values, float64(size))
}

// Close releases the network.
func (m *MoveNet) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.net != nil {
		err := m.net.Close()
		m.net = nil
		return err
	}
	return nil
}

// decodeMoveNet converts the flat [y, x, score] output into a Pose in
// model space.
func decodeMoveNet(values []float32, modelSize float64) (*Pose, error) {
	if len(values) < moveNetValues {
		return nil, fmt.Errorf("movenet: output has %d values, want %d", len(values), moveNetValues)
	}

	p := NewPose(modelSize)
	for i := 0; i < NumLandmarks; i++ {
		y := float64(values[i*3]) * modelSize
		x := float64(values[i*3+1]) * modelSize
		score := float64(values[i*3+2])
		p.Set(Landmark(i), x, y, score)
	}
	return p, nil
}
