package ocr

import (
	"image"
	"testing"

	"github.com/otiai10/gosseract/v2"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/kartpos/internal/domain/finishgrid"
)

func TestEntries(t *testing.T) {
	Convey("Given word boxes from Tesseract", t, func() {
		boxes := []gosseract.BoundingBox{
			{Box: image.Rect(0, 0, 50, 10), Word: "Alice", Confidence: 91},
			{Box: image.Rect(0, 12, 50, 22), Word: "  ", Confidence: 10},
			{Box: image.Rect(0, 24, 50, 34), Word: " Bob ", Confidence: 80},
		}

		Convey("When converting them", func() {
			entries := Entries(boxes)

			Convey("Then blank words are dropped and order is kept", func() {
				So(finishgrid.Texts(entries), ShouldResemble, []string{"Alice", "Bob"})
			})

			Convey("And confidence is scaled to [0,1]", func() {
				So(entries[0].Confidence, ShouldAlmostEqual, 0.91, 1e-9)
				So(entries[1].Box, ShouldResemble, image.Rect(0, 24, 50, 34))
			})
		})
	})
}
