// Package vision adapts OpenCV (through gocv) to the pipeline ports: camera
// capture, cropping and thresholding, ONNX classification and image loading.
package vision

import (
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"gocv.io/x/gocv"
)

// Sentinel kinds for vision errors.
var (
	ErrNotAFrame      = errors.New("not a vision frame")
	ErrEmptyFrame     = errors.New("empty frame")
	ErrROIOutOfBounds = errors.New("region of interest outside the frame")
	ErrShapeMismatch  = errors.New("classifier shape mismatch")
	ErrCameraClosed   = errors.New("camera not opened")
)

// Frame wraps a gocv.Mat. Closing it frees the native buffer.
type Frame struct {
	Image     gocv.Mat
	Index     int64
	Timestamp time.Time
}

// Close releases the image.
func (f *Frame) Close() error {
	return f.Image.Close()
}

// Bounds returns the image rectangle anchored at the origin.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Image.Cols(), f.Image.Rows())
}

// AsFrame returns the vision frame behind c.
func AsFrame(c io.Closer) (*Frame, error) {
	f, ok := c.(*Frame)
	if !ok || f == nil {
		return nil, fmt.Errorf("%w: %T", ErrNotAFrame, c)
	}
	if f.Image.Empty() {
		return nil, ErrEmptyFrame
	}
	return f, nil
}

// CheckROI reports whether roi is non-empty and fully inside bounds.
func CheckROI(roi, bounds image.Rectangle) error {
	if roi.Empty() || !roi.In(bounds) {
		return fmt.Errorf("%w: %v not in %v", ErrROIOutOfBounds, roi, bounds)
	}
	return nil
}
