package vision

import (
	"image"
	"io"

	"gocv.io/x/gocv"
)

// DefaultValueMin is the lowest HSV value kept by Binarize.
const DefaultValueMin = 210

// Preprocessor crops frames to the configured regions and converts them to
// what the classifier and the OCR reader expect.
type Preprocessor struct {
	positionROI image.Rectangle
	resultsROI  image.Rectangle
	valueMin    uint8
}

// NewPreprocessor creates a preprocessor. positionROI locates the position
// badge on live frames, resultsROI the results table on screenshots.
func NewPreprocessor(positionROI, resultsROI image.Rectangle, valueMin uint8) *Preprocessor {
	return &Preprocessor{positionROI: positionROI, resultsROI: resultsROI, valueMin: valueMin}
}

// PositionCrop returns the grayscale position badge.
func (p *Preprocessor) PositionCrop(c io.Closer) (io.Closer, error) {
	f, err := AsFrame(c)
	if err != nil {
		return nil, err
	}
	region, err := Crop(f.Image, p.positionROI)
	if err != nil {
		return nil, err
	}
	defer region.Close()

	return &Frame{Image: Gray(region), Index: f.Index, Timestamp: f.Timestamp}, nil
}

// ResultsMask returns the binarized results table.
func (p *Preprocessor) ResultsMask(c io.Closer) (io.Closer, error) {
	f, err := AsFrame(c)
	if err != nil {
		return nil, err
	}
	region, err := Crop(f.Image, p.resultsROI)
	if err != nil {
		return nil, err
	}
	defer region.Close()

	return &Frame{Image: Binarize(region, p.valueMin), Index: f.Index, Timestamp: f.Timestamp}, nil
}

// Crop returns a copy of roi. The region must lie inside img.
func Crop(img gocv.Mat, roi image.Rectangle) (gocv.Mat, error) {
	if err := CheckROI(roi, image.Rect(0, 0, img.Cols(), img.Rows())); err != nil {
		return gocv.NewMat(), err
	}
	view := img.Region(roi)
	defer view.Close()
	return view.Clone(), nil
}

// Gray converts a BGR image to single-channel grayscale. Images that are
// already single-channel are copied.
func Gray(img gocv.Mat) gocv.Mat {
	if img.Channels() == 1 {
		return img.Clone()
	}
	gray := gocv.NewMat()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	return gray
}

// Binarize keeps the pixels whose HSV value is at least valueMin, ignoring
// hue and saturation, and returns dark text on a white background.
func Binarize(img gocv.Mat, valueMin uint8) gocv.Mat {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(hsv, gocv.NewScalar(0, 0, float64(valueMin), 0), gocv.NewScalar(255, 255, 255, 0), &mask)

	inverted := gocv.NewMat()
	gocv.BitwiseNot(mask, &inverted)
	return inverted
}
