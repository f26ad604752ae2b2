package pose

import (
	"context"
	"errors"

	"gocv.io/x/gocv"
)

// ErrNotLoaded is returned by Estimate when Load has not succeeded.
var ErrNotLoaded = errors.New("pose model not loaded")

// Estimator defines the interface for pose estimation implementations.
type Estimator interface {
	// Load fetches and initialises the model. A failure is fatal to
	// session start.
	Load(ctx context.Context) error

	// Estimate runs inference on a frame and returns keypoints in model
	// space. A nil pose with a nil error means nobody was detected.
	Estimate(ctx context.Context, frame *gocv.Mat) (*Pose, error)

	// Close releases any resources held by the estimator.
	Close() error
}

// Config holds configuration shared by the estimators.
type Config struct {
	// ModelPath is the model file for in-process inference.
	ModelPath string

	// ModelSize is the square input resolution of the model (default: 192).
	ModelSize int

	// ServiceScript is the estimator script for the out-of-process backend.
	ServiceScript string

	// Python is the interpreter used to run ServiceScript (default: python3).
	Python string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelSize: DefaultModelSize,
		Python:    "python3",
	}
}

func (c *Config) defaults() {
	if c.ModelSize <= 0 {
		c.ModelSize = DefaultModelSize
	}
	if c.Python == "" {
		c.Python = "python3"
	}
}
