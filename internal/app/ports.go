// Package service runs the live position tracker and the offline finish-grid
// scorer on top of the vision, OCR and persistence ports.
package service

import (
	"context"
	"io"

	"github.com/okian/kartpos/internal/domain/finishgrid"
	"github.com/okian/kartpos/internal/domain/position"
)

// Frame is an image buffer moved between ports. Closing it releases the
// underlying memory; every Frame handed out must be closed exactly once.
type Frame = io.Closer

// FrameSource delivers live frames, one per Read.
type FrameSource interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// Preprocessor prepares frames for the classifier and the OCR reader.
// Returned frames are new buffers owned by the caller.
type Preprocessor interface {
	// PositionCrop cuts the position badge out of a live frame and converts
	// it to the classifier's input format.
	PositionCrop(f Frame) (Frame, error)
	// ResultsMask cuts the results table out of a screenshot and binarizes
	// it for OCR.
	ResultsMask(f Frame) (Frame, error)
}

// Classifier maps a prepared crop to a distribution over positions.
type Classifier interface {
	Predict(ctx context.Context, f Frame) (position.Distribution, error)
}

// Recognizer reads word tokens from a binarized image.
type Recognizer interface {
	Recognize(ctx context.Context, f Frame) ([]finishgrid.Entry, error)
}

// ImageLoader reads a still image from disk.
type ImageLoader interface {
	Load(path string) (Frame, error)
}

// RowAppender receives one results row per processed screenshot.
type RowAppender interface {
	Append(row []string)
}

// ResultArchive keeps per-image finish results.
type ResultArchive interface {
	SaveFinishResult(ctx context.Context, image string, res finishgrid.Result) error
}
