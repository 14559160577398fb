package vision

import (
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/okian/kartpos/internal/domain/position"
)

// Shape declares the classifier's input and output.
type Shape struct {
	Width     int
	Height    int
	Positions int
}

// ONNXClassifier runs a position classifier exported to ONNX.
type ONNXClassifier struct {
	mu      sync.Mutex
	net     gocv.Net
	shape   Shape
	softmax bool
}

// LoadONNXClassifier loads the model at path and verifies that a blank input
// of the declared shape yields exactly shape.Positions outputs. With softmax
// the raw outputs are treated as logits and normalized.
func LoadONNXClassifier(path string, shape Shape, softmax bool) (*ONNXClassifier, error) {
	if shape.Width <= 0 || shape.Height <= 0 || shape.Positions <= 0 {
		return nil, fmt.Errorf("%w: invalid declared shape %+v", ErrShapeMismatch, shape)
	}
	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load ONNX model from %s", path)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	c := &ONNXClassifier{net: net, shape: shape, softmax: softmax}

	probe := gocv.NewMatWithSize(shape.Height, shape.Width, gocv.MatTypeCV8UC1)
	defer probe.Close()
	out, err := c.forward(probe)
	if err != nil {
		_ = net.Close()
		return nil, err
	}
	if len(out) != shape.Positions {
		_ = net.Close()
		return nil, fmt.Errorf("%w: model emits %d values, want %d", ErrShapeMismatch, len(out), shape.Positions)
	}
	return c, nil
}

// Shape returns the declared shape.
func (c *ONNXClassifier) Shape() Shape { return c.shape }

// Predict classifies a grayscale crop. Crops of another size are resized to
// the declared input.
func (c *ONNXClassifier) Predict(ctx context.Context, f io.Closer) (position.Distribution, error) {
	frame, err := AsFrame(f)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame.Image.Channels() != 1 {
		return nil, fmt.Errorf("%w: input has %d channels, want 1", ErrShapeMismatch, frame.Image.Channels())
	}

	out, err := c.forward(frame.Image)
	if err != nil {
		return nil, err
	}
	if len(out) != c.shape.Positions {
		return nil, fmt.Errorf("%w: model emitted %d values, want %d", ErrShapeMismatch, len(out), c.shape.Positions)
	}
	if c.softmax {
		return Softmax(out), nil
	}
	d := make(position.Distribution, len(out))
	for i, v := range out {
		d[i] = float64(v)
	}
	return d, nil
}

// Close releases the network.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Close()
}

func (c *ONNXClassifier) forward(img gocv.Mat) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(c.shape.Width, c.shape.Height), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	c.net.SetInput(blob, "")
	output := c.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read classifier output: %w", err)
	}
	return append([]float32(nil), data...), nil
}

// Softmax normalizes logits into a probability distribution.
func Softmax(logits []float32) position.Distribution {
	d := make(position.Distribution, len(logits))
	if len(logits) == 0 {
		return d
	}
	peak := math.Inf(-1)
	for _, v := range logits {
		peak = math.Max(peak, float64(v))
	}
	var sum float64
	for i, v := range logits {
		d[i] = math.Exp(float64(v) - peak)
		sum += d[i]
	}
	for i := range d {
		d[i] /= sum
	}
	return d
}
