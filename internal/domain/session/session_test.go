package session_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/kartpos/internal/domain/position"
	"github.com/okian/kartpos/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSession(t *testing.T) {
	Convey("Given a new session", t, func() {
		start := time.Date(2026, 5, 16, 18, 45, 52, 0, time.UTC)
		s := session.New(start, 10)

		Convey("Then it has an id, an empty window and no records", func() {
			_, err := uuid.Parse(s.ID)
			So(err, ShouldBeNil)
			So(s.Window().Len(), ShouldEqual, 0)
			So(s.Window().Capacity(), ShouldEqual, 10)
			So(s.Len(), ShouldEqual, 0)
			So(s.Document(), ShouldBeEmpty)
		})

		Convey("When computing elapsed time", func() {
			Convey("Then it is measured from the start", func() {
				So(s.Elapsed(start.Add(1200*time.Millisecond)), ShouldEqual, 1.2)
				So(s.Elapsed(start.Add(2400*time.Millisecond)), ShouldEqual, 2.4)
			})
		})

		Convey("When records are stored", func() {
			s.Record(2.4, 3)
			s.Record(1.2, 3)

			Convey("Then the document keys are the elapsed seconds", func() {
				So(s.Document(), ShouldResemble, map[string]int{"1.2": 3, "2.4": 3})
			})

			Convey("And records come back in time order", func() {
				So(s.Records(), ShouldResemble, []session.Record{
					{Elapsed: 1.2, Position: 3},
					{Elapsed: 2.4, Position: 3},
				})
			})
		})

		Convey("When a record is stored twice at the same key", func() {
			s.Record(5, 4)
			s.Record(5, position.Label(6))

			Convey("Then the last write wins", func() {
				So(s.Len(), ShouldEqual, 1)
				So(s.Document()["5"], ShouldEqual, 6)
			})
		})
	})

	Convey("Given two sessions", t, func() {
		a := session.New(time.Now(), 3)
		b := session.New(time.Now(), 3)

		Convey("Then their ids differ", func() {
			So(a.ID, ShouldNotEqual, b.ID)
		})
	})
}

func TestFormatElapsed(t *testing.T) {
	cases := map[float64]string{
		1.2:       "1.2",
		10:        "10",
		0.0001:    "0.0001",
		3.1415926: "3.1415926",
	}
	for in, want := range cases {
		if got := session.FormatElapsed(in); got != want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", in, got, want)
		}
	}
}
