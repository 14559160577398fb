// Package ocr reads finish-grid tokens from binarized screenshots with
// Tesseract through gosseract.
package ocr

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/okian/kartpos/internal/adapters/vision"
	"github.com/okian/kartpos/internal/domain/finishgrid"
)

// Defaults for the recognizer.
const (
	DefaultLanguage  = "fra"
	DefaultWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Tesseract recognizes word tokens. A client is not safe for concurrent
// use, so calls are serialized.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract creates a recognizer for language restricted to whitelist.
// An empty whitelist allows every character.
func NewTesseract(language, whitelist string) (*Tesseract, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if whitelist != "" {
		if err := client.SetWhitelist(whitelist); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to set OCR whitelist: %w", err)
		}
	}
	return &Tesseract{client: client}, nil
}

// Recognize returns the words found in f in reading order.
func (t *Tesseract) Recognize(ctx context.Context, f io.Closer) ([]finishgrid.Entry, error) {
	img, err := vision.EncodePNG(f)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(img); err != nil {
		return nil, fmt.Errorf("failed to set OCR image: %w", err)
	}
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get bounding boxes: %w", err)
	}
	return Entries(boxes), nil
}

// Close releases the Tesseract client.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}

// Entries converts word boxes to finish-grid entries, dropping blank words
// and scaling confidence to [0,1].
func Entries(boxes []gosseract.BoundingBox) []finishgrid.Entry {
	out := make([]finishgrid.Entry, 0, len(boxes))
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		out = append(out, finishgrid.Entry{
			Text:       word,
			Box:        b.Box,
			Confidence: b.Confidence / 100,
		})
	}
	return out
}
