package opencv

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"film-scanner/internal/core"
)

// Camera grabs frames from a local video device. The device is opened on the
// first capture and held until Close.
type Camera struct {
	device int
	logger *logrus.Logger

	mu      sync.Mutex
	capture *gocv.VideoCapture
	frame   gocv.Mat
}

// NewCamera creates a source for the given device index.
func NewCamera(device int, logger *logrus.Logger) *Camera {
	return &Camera{
		device: device,
		logger: core.LoggerOrDiscard(logger),
		frame:  gocv.NewMat(),
	}
}

// CaptureFrame reads one frame and hands back an independent snapshot.
func (c *Camera) CaptureFrame(ctx context.Context) (*core.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		vc, err := gocv.OpenVideoCapture(c.device)
		if err != nil {
			return nil, fmt.Errorf("failed to open camera %d: %w", c.device, err)
		}
		c.capture = vc
		c.logger.WithField("device", c.device).Info("Camera opened")
	}

	if ok := c.capture.Read(&c.frame); !ok || c.frame.Empty() {
		return nil, fmt.Errorf("camera %d returned no frame", c.device)
	}

	buf, err := FromMat(c.frame)
	if err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"device": c.device,
		"width":  buf.Width,
		"height": buf.Height,
	}).Debug("Frame captured")
	return buf, nil
}

// Close releases the device.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.capture != nil {
		err = c.capture.Close()
		c.capture = nil
	}
	c.frame.Close()
	c.frame = gocv.NewMat()
	return err
}
