package source

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
)

// NoDevice asks the camera source to probe for a device.
const NoDevice = -1

// CameraConfig configures a CameraSource.
type CameraConfig struct {
	// Device is the preferred index, or NoDevice to probe.
	Device   int
	MaxProbe int
	// Mirror flips frames horizontally for a selfie view.
	Mirror bool
}

// CameraSource reads frames from a local camera.
type CameraSource struct {
	config CameraConfig
	open   capture.OpenFunc
	log    *zap.Logger

	mu  sync.Mutex
	cam capture.Camera
}

// NewCamera creates a camera source. A nil open uses capture.NewCamera.
func NewCamera(config CameraConfig, open capture.OpenFunc, log *zap.Logger) *CameraSource {
	if open == nil {
		open = capture.NewCamera
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CameraSource{config: config, open: open, log: log}
}

// Connect opens the configured device. If it is unset or does not yield a
// frame, devices are probed in order.
func (c *CameraSource) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.config.Device != NoDevice {
		cam := c.open(c.config.Device)
		err := capture.Verify(cam)
		if err == nil {
			c.setCamera(cam)
			return nil
		}
		c.log.Warn("configured camera not available", zap.Int("device", c.config.Device), zap.Error(err))
	}

	c.log.Info("auto-detecting camera", zap.Int("max_devices", c.config.MaxProbe))
	cam, err := capture.Probe(c.config.MaxProbe, c.open)
	if err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	c.setCamera(cam)
	return nil
}

func (c *CameraSource) setCamera(cam capture.Camera) {
	c.mu.Lock()
	c.cam = cam
	c.mu.Unlock()
	c.log.Info("using camera", zap.Int("device", cam.Device()))
}

func (c *CameraSource) Frame() (*gocv.Mat, bool) {
	c.mu.Lock()
	cam := c.cam
	c.mu.Unlock()
	if cam == nil {
		return nil, false
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		c.log.Debug("camera read failed", zap.Error(err))
		return nil, false
	}
	if c.config.Mirror {
		capture.Mirror(mat)
	}
	return mat, true
}

func (c *CameraSource) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cam != nil && c.cam.IsOpen()
}

func (c *CameraSource) Mode() Mode { return LocalCamera }

func (c *CameraSource) Describe() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cam == nil {
		return "Camera"
	}
	return fmt.Sprintf("Camera %d", c.cam.Device())
}

func (c *CameraSource) Cleanup() error {
	c.mu.Lock()
	cam := c.cam
	c.cam = nil
	c.mu.Unlock()

	if cam == nil {
		return nil
	}
	return cam.Close()
}
