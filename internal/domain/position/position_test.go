package position_test

import (
	"errors"
	"testing"

	"github.com/okian/kartpos/internal/domain/position"
	. "github.com/smartystreets/goconvey/convey"
)

func TestResolve(t *testing.T) {
	Convey("Given a distribution with a unique maximum", t, func() {
		d := position.Distribution{0.05, 0.05, 0.6, 0.05, 0, 0.03, 0.1, 0.05, 0.05, 0, 0, 0.02}

		Convey("When the maximum is above the threshold", func() {
			v := position.Resolve(d, 0.5)

			Convey("Then the label at that index is accepted", func() {
				So(v.Accepted, ShouldBeTrue)
				So(v.Position, ShouldEqual, position.Label(3))
				So(v.Confidence, ShouldEqual, 0.6)
			})
		})

		Convey("When the maximum equals the threshold", func() {
			v := position.Resolve(d, 0.6)

			Convey("Then it is rejected with the maximum as confidence", func() {
				So(v.Accepted, ShouldBeFalse)
				So(v.Confidence, ShouldEqual, 0.6)
			})
		})

		Convey("When the maximum is below the threshold", func() {
			v := position.Resolve(d, 0.75)

			Convey("Then it is rejected", func() {
				So(v, ShouldResemble, position.Rejected(0.6))
			})
		})
	})

	Convey("Given a tie between the first two labels", t, func() {
		d := position.Distribution{0.5, 0.5, 0, 0}

		Convey("Then the first maximum wins", func() {
			v := position.Resolve(d, 0.4)
			So(v, ShouldResemble, position.Accepted(1, 0.5))
		})
	})

	Convey("Given a tie further right", t, func() {
		d := position.Distribution{0.1, 0.2, 0.35, 0.35}

		Convey("Then the leftmost of the tied labels wins", func() {
			So(position.Resolve(d, 0.3).Position, ShouldEqual, position.Label(3))
		})
	})

	Convey("Given an empty distribution", t, func() {
		Convey("Then it is rejected with zero confidence", func() {
			So(position.Resolve(nil, 0.1), ShouldResemble, position.Rejected(0))
		})
	})
}

func TestResolveEveryIndex(t *testing.T) {
	for i := 0; i < position.DefaultCount; i++ {
		d := make(position.Distribution, position.DefaultCount)
		rest := 0.2 / float64(position.DefaultCount-1)
		for j := range d {
			d[j] = rest
		}
		d[i] = 0.8

		v := position.Resolve(d, 0.6)
		if !v.Accepted || v.Position != position.Label(i+1) || v.Confidence != 0.8 {
			t.Errorf("index %d: got %v", i, v)
		}
	}
}

func TestDistributionValidate(t *testing.T) {
	Convey("Given distributions to validate", t, func() {
		Convey("A well formed distribution passes", func() {
			So(position.Distribution{0.25, 0.25, 0.5}.Validate(3), ShouldBeNil)
		})

		Convey("An empty distribution fails", func() {
			err := position.Distribution{}.Validate(3)
			So(errors.Is(err, position.ErrEmptyDistribution), ShouldBeTrue)
		})

		Convey("A wrong length fails", func() {
			err := position.Distribution{0.5, 0.5}.Validate(3)
			So(errors.Is(err, position.ErrInvalidDistribution), ShouldBeTrue)
		})

		Convey("An out of range value fails", func() {
			err := position.Distribution{1.5, -0.5, 0}.Validate(3)
			So(errors.Is(err, position.ErrInvalidDistribution), ShouldBeTrue)
		})

		Convey("A distribution that does not sum to one fails", func() {
			err := position.Distribution{0.2, 0.2, 0.2}.Validate(3)
			So(errors.Is(err, position.ErrInvalidDistribution), ShouldBeTrue)
		})
	})
}

func TestLabelValid(t *testing.T) {
	cases := []struct {
		label position.Label
		want  bool
	}{
		{0, false},
		{1, true},
		{12, true},
		{13, false},
	}
	for _, c := range cases {
		if got := c.label.Valid(12); got != c.want {
			t.Errorf("Label(%d).Valid(12) = %v, want %v", c.label, got, c.want)
		}
	}
}
