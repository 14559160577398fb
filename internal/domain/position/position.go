// Package position defines race position labels, classifier distributions
// and the verdict obtained by thresholding them.
package position

import (
	"errors"
	"fmt"
	"math"
)

// DefaultCount is the number of ranks in a full race.
const DefaultCount = 12

// sumTolerance bounds how far a distribution may drift from summing to one.
const sumTolerance = 1e-3

// Sentinel errors for malformed distributions.
var (
	ErrEmptyDistribution   = errors.New("empty distribution")
	ErrInvalidDistribution = errors.New("invalid distribution")
)

// Label is a finishing rank in [1, N].
type Label int

// Valid reports whether l lies in [1, n].
func (l Label) Valid(n int) bool {
	return l >= 1 && int(l) <= n
}

// Distribution holds one probability per label; index i maps to Label(i+1).
type Distribution []float64

// Validate checks the distribution has n entries in [0,1] summing to ~1.
func (d Distribution) Validate(n int) error {
	if len(d) == 0 {
		return ErrEmptyDistribution
	}
	if len(d) != n {
		return fmt.Errorf("%w: got %d probabilities, want %d", ErrInvalidDistribution, len(d), n)
	}
	var sum float64
	for i, p := range d {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%w: probability %v at index %d out of [0,1]", ErrInvalidDistribution, p, i)
		}
		sum += p
	}
	if math.Abs(sum-1) > sumTolerance {
		return fmt.Errorf("%w: probabilities sum to %v", ErrInvalidDistribution, sum)
	}
	return nil
}

// Verdict is the outcome of thresholding a distribution. Confidence is always
// the maximum probability; Position is only meaningful when Accepted is true.
type Verdict struct {
	Accepted   bool
	Position   Label
	Confidence float64
}

// Accepted builds an accepted verdict.
func Accepted(p Label, confidence float64) Verdict {
	return Verdict{Accepted: true, Position: p, Confidence: confidence}
}

// Rejected builds a rejected verdict.
func Rejected(confidence float64) Verdict {
	return Verdict{Confidence: confidence}
}

func (v Verdict) String() string {
	if v.Accepted {
		return fmt.Sprintf("accepted(%d, %.3f)", v.Position, v.Confidence)
	}
	return fmt.Sprintf("rejected(%.3f)", v.Confidence)
}

// Resolve picks the most probable label and accepts it when its probability
// is strictly greater than threshold. Ties go to the lowest label. An empty
// distribution is rejected with zero confidence.
func Resolve(d Distribution, threshold float64) Verdict {
	if len(d) == 0 {
		return Rejected(0)
	}
	best := 0
	for i := 1; i < len(d); i++ {
		if d[i] > d[best] {
			best = i
		}
	}
	confidence := d[best]
	if confidence > threshold {
		return Accepted(Label(best+1), confidence)
	}
	return Rejected(confidence)
}
