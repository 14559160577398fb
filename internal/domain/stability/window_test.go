package stability_test

import (
	"fmt"
	"testing"

	"github.com/okian/kartpos/internal/domain/position"
	"github.com/okian/kartpos/internal/domain/stability"
	. "github.com/smartystreets/goconvey/convey"
)

func feed(w *stability.Window, labels ...position.Label) bool {
	var stable bool
	for _, l := range labels {
		stable = w.Observe(l)
	}
	return stable
}

func TestWindowObserve(t *testing.T) {
	Convey("Given a window of capacity 3", t, func() {
		w := stability.NewWindow(3)

		Convey("When three agreeing positions are observed", func() {
			stable := feed(w, 2, 2, 2)

			Convey("Then it is stable", func() {
				So(stable, ShouldBeTrue)
				So(w.Stable(), ShouldBeTrue)
			})
		})

		Convey("When the newest position disagrees", func() {
			stable := feed(w, 2, 2, 3)

			Convey("Then it is not stable", func() {
				So(stable, ShouldBeFalse)
			})
		})

		Convey("When only two positions are observed", func() {
			stable := feed(w, 2, 2)

			Convey("Then it is not stable even though they agree", func() {
				So(stable, ShouldBeFalse)
				So(w.Len(), ShouldEqual, 2)
			})
		})

		Convey("When a disagreeing frame sits in the middle", func() {
			stable := feed(w, 2, 4, 2)

			Convey("Then the whole window must agree", func() {
				So(stable, ShouldBeFalse)
			})
		})

		Convey("When more positions than the capacity are observed", func() {
			stable := feed(w, 1, 5, 5, 5)

			Convey("Then the oldest entry is evicted", func() {
				So(w.Len(), ShouldEqual, 3)
				So(w.Entries(), ShouldResemble, []position.Label{5, 5, 5})
				So(stable, ShouldBeTrue)
			})
		})

		Convey("When the window is reset", func() {
			feed(w, 2, 2, 2)
			w.Reset()

			Convey("Then it is empty and unstable", func() {
				So(w.Len(), ShouldEqual, 0)
				So(w.Stable(), ShouldBeFalse)
			})
		})
	})

	Convey("Given a full stable window", t, func() {
		w := stability.NewWindow(3)
		feed(w, 2, 2, 2)

		Convey("When a rejected frame arrives nothing is observed", func() {
			before := w.Entries()

			Convey("Then window and stability are unchanged", func() {
				So(w.Entries(), ShouldResemble, before)
				So(w.Stable(), ShouldBeTrue)
			})
		})
	})

	Convey("Given a misconfigured capacity", t, func() {
		for _, capacity := range []int{0, -4} {
			w := stability.NewWindow(capacity)

			Convey(fmt.Sprintf("Then capacity %d is permanently unstable", capacity), func() {
				So(feed(w, 1, 1, 1, 1), ShouldBeFalse)
				So(w.Len(), ShouldEqual, 0)
				So(w.Capacity(), ShouldEqual, 0)
			})
		}
	})
}

func TestEntriesReturnsCopy(t *testing.T) {
	w := stability.NewWindow(2)
	feed(w, 7, 7)
	entries := w.Entries()
	entries[0] = 1
	if !w.Stable() {
		t.Fatal("mutating the returned slice must not affect the window")
	}
}
