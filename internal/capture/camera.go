// Package capture provides the video capture device used as the frame
// source of a motion-control session.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/nritya/internal/geom"
)

// Default capture settings. The resolution is kept low so inference stays
// fast; the pose model resizes to its own square input anyway.
const (
	DefaultWidth  = 320
	DefaultHeight = 240
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrDeviceUnavailable is returned by Open when the device cannot be
	// acquired (missing device, permission denied, busy).
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrFrameNotReady is returned by ReadFrame when the device is open but
	// has not produced a decodable frame yet.
	ErrFrameNotReady = errors.New("frame not ready")
)

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the current frame. The caller owns the returned Mat
	// and must close it.
	ReadFrame() (*gocv.Mat, error)
	// Size reports the requested capture resolution.
	Size() geom.Size
	IsOpen() bool
}

// Options configures a device camera.
type Options struct {
	DeviceID int
	Width    int
	Height   int
}

func (o *Options) defaults() {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	opts    Options
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
}

// NewCamera creates a new Camera for the given device. Nothing is acquired
// until Open is called.
func NewCamera(opts Options) Camera {
	opts.defaults()
	return &cameraImpl{opts: opts}
}

// Open acquires the device and requests the configured resolution.
// Opening an already open camera is a no-op.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.opts.DeviceID)
	if err != nil {
		return fmt.Errorf("%w: device %d: %v", ErrDeviceUnavailable, c.opts.DeviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("%w: device %d", ErrDeviceUnavailable, c.opts.DeviceID)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.opts.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.opts.Height))

	c.capture = capture
	c.running = true

	return nil
}

// Close releases the device. Closing a camera that is not open returns nil.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrFrameNotReady
	}

	return &mat, nil
}

// Size returns the requested capture resolution.
func (c *cameraImpl) Size() geom.Size {
	return geom.Size{W: float64(c.opts.Width), H: float64(c.opts.Height)}
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
