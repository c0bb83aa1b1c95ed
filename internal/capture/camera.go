// Package capture provides local camera capture using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultWidth    = 640
	DefaultHeight   = 480
	DefaultMaxProbe = 10
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoCamera is returned when no probed device yields a frame.
	ErrNoCamera = errors.New("no working camera found")
)

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	IsOpen() bool
	Device() int
}

// OpenFunc creates an unopened camera for a device index.
type OpenFunc func(deviceID int) Camera

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	deviceID int
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
}

// NewCamera creates a new Camera with the given device ID.
func NewCamera(deviceID int) Camera {
	return &cameraImpl{deviceID: deviceID}
}

// Open opens the camera and requests 640x480 frames.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.deviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open camera %d: %w", c.deviceID, ErrCameraNotOpen)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)

	c.capture = capture
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
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
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	return &mat, nil
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

func (c *cameraImpl) Device() int {
	return c.deviceID
}

// Verify opens cam and reads one frame, closing the camera again if
// either step fails.
func Verify(cam Camera) error {
	if err := cam.Open(); err != nil {
		return err
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		cam.Close()
		return fmt.Errorf("camera %d: %w", cam.Device(), err)
	}
	mat.Close()

	return nil
}

// Probe tries device indices 0..maxDevices-1 and returns the first open
// camera that yields a frame.
func Probe(maxDevices int, open OpenFunc) (Camera, error) {
	if maxDevices <= 0 {
		maxDevices = DefaultMaxProbe
	}

	var errs []error
	for i := 0; i < maxDevices; i++ {
		cam := open(i)
		if err := Verify(cam); err != nil {
			errs = append(errs, err)
			continue
		}
		return cam, nil
	}

	return nil, fmt.Errorf("%w (tried %d devices): %w", ErrNoCamera, maxDevices, errors.Join(errs...))
}

// Mirror flips frame horizontally in place.
func Mirror(frame *gocv.Mat) {
	if frame == nil || frame.Empty() {
		return
	}
	gocv.Flip(*frame, frame, 1)
}
