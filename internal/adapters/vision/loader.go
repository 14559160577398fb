package vision

import (
	"fmt"
	"io"
	"time"

	"gocv.io/x/gocv"
)

// ImageLoader reads still images from disk.
type ImageLoader struct{}

// Load decodes the image at path as BGR.
func (ImageLoader) Load(path string) (io.Closer, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		_ = img.Close()
		return nil, fmt.Errorf("%w: cannot decode %s", ErrEmptyFrame, path)
	}
	return &Frame{Image: img, Timestamp: time.Now()}, nil
}

// EncodePNG encodes a frame for consumers that take image bytes.
func EncodePNG(c io.Closer) ([]byte, error) {
	f, err := AsFrame(c)
	if err != nil {
		return nil, err
	}
	buf, err := gocv.IMEncode(gocv.PNGFileExt, f.Image)
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
