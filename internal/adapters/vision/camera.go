package vision

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"
)

// Camera reads live frames from a capture device.
type Camera struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	device  int
	frames  atomic.Int64
}

// OpenCamera opens device and requests the given resolution.
func OpenCamera(device, width, height int) (*Camera, error) {
	capture, err := gocv.VideoCaptureDevice(device)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", device, err)
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return nil, fmt.Errorf("%w: device %d", ErrCameraClosed, device)
	}
	capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(height))
	capture.Set(gocv.VideoCaptureBufferSize, 1)
	return &Camera{capture: capture, device: device}, nil
}

// Read blocks until the next frame is available. The returned *Frame must be
// closed by the caller. Concurrent reads are serialized.
func (c *Camera) Read(ctx context.Context) (io.Closer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		_ = mat.Close()
		return nil, fmt.Errorf("%w: camera %d returned no frame", ErrEmptyFrame, c.device)
	}
	return &Frame{Image: mat, Index: c.frames.Add(1), Timestamp: time.Now()}, nil
}

// Close releases the device.
func (c *Camera) Close() error {
	return c.capture.Close()
}

// ProbeCameras returns the device indices below limit that can be opened.
func ProbeCameras(limit int) []int {
	var found []int
	for i := 0; i < limit; i++ {
		capture, err := gocv.VideoCaptureDevice(i)
		if err != nil {
			continue
		}
		if capture.IsOpened() {
			found = append(found, i)
		}
		_ = capture.Close()
	}
	return found
}
