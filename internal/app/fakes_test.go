package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	service "github.com/okian/kartpos/internal/app"
	"github.com/okian/kartpos/internal/domain/finishgrid"
	"github.com/okian/kartpos/internal/domain/position"
	"github.com/okian/kartpos/internal/domain/session"
	"github.com/okian/kartpos/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeFrame struct {
	name   string
	closed *atomic.Int64
}

func (f *fakeFrame) Close() error {
	f.closed.Add(1)
	return nil
}

// fakeSource hands out frames and calls onRead with the 1-based read count.
type fakeSource struct {
	reads  atomic.Int64
	closed atomic.Int64
	onRead func(n int64)
	block  bool
}

func (s *fakeSource) Read(ctx context.Context) (service.Frame, error) {
	n := s.reads.Add(1)
	if s.onRead != nil {
		s.onRead(n)
	}
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &fakeFrame{name: "frame", closed: &s.closed}, nil
}

func (s *fakeSource) Close() error { return nil }

type fakePreprocessor struct {
	closed atomic.Int64
	err    error
}

func (p *fakePreprocessor) PositionCrop(service.Frame) (service.Frame, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &fakeFrame{name: "crop", closed: &p.closed}, nil
}

func (p *fakePreprocessor) ResultsMask(f service.Frame) (service.Frame, error) {
	if p.err != nil {
		return nil, p.err
	}
	name := "mask"
	if ff, ok := f.(*fakeFrame); ok {
		name = ff.name
	}
	return &fakeFrame{name: name, closed: &p.closed}, nil
}

// fakeClassifier returns the distribution produced by next for each call.
type fakeClassifier struct {
	calls atomic.Int64
	next  func(n int64) (position.Distribution, error)
}

func (c *fakeClassifier) Predict(context.Context, service.Frame) (position.Distribution, error) {
	return c.next(c.calls.Add(1))
}

// onehot returns a distribution with confidence p on label and the rest
// spread evenly over the other labels.
func onehot(label position.Label, p float64) position.Distribution {
	d := make(position.Distribution, position.DefaultCount)
	rest := (1 - p) / float64(position.DefaultCount-1)
	for i := range d {
		d[i] = rest
	}
	d[int(label)-1] = p
	return d
}

// stepClock returns the given instants in order and then repeats the last.
type stepClock struct {
	mu    sync.Mutex
	times []time.Time
}

func newStepClock(start time.Time, offsets ...time.Duration) *stepClock {
	c := &stepClock{}
	for _, o := range offsets {
		c.times = append(c.times, start.Add(o))
	}
	return c
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.times[0]
	if len(c.times) > 1 {
		c.times = c.times[1:]
	}
	return t
}

type captureStore struct {
	mu    sync.Mutex
	saved []map[string]int
}

func (s *captureStore) Save(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, sess.Document())
	return nil
}

func (s *captureStore) Saved() []map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]int(nil), s.saved...)
}

type fakeLoader struct {
	closed atomic.Int64
	fail   map[string]bool
}

func (l *fakeLoader) Load(path string) (service.Frame, error) {
	if l.fail[path] {
		return nil, errors.New("cannot decode image")
	}
	return &fakeFrame{name: path, closed: &l.closed}, nil
}

// fakeRecognizer returns tokens keyed by the frame name, which the fake
// preprocessor carries over from the loaded image path.
type fakeRecognizer struct {
	tokens map[string][]string
	err    error
}

func (r *fakeRecognizer) Recognize(_ context.Context, f service.Frame) ([]finishgrid.Entry, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []finishgrid.Entry
	for _, tok := range r.tokens[f.(*fakeFrame).name] {
		out = append(out, finishgrid.Entry{Text: tok, Confidence: 0.9})
	}
	return out, nil
}

type rowSink struct {
	rows [][]string
}

func (s *rowSink) Append(row []string) { s.rows = append(s.rows, row) }

type resultSink struct {
	images []string
}

func (s *resultSink) SaveFinishResult(_ context.Context, image string, _ finishgrid.Result) error {
	s.images = append(s.images, image)
	return nil
}

// stallingSource blocks its first Read for stall without watching ctx, the
// way a capture call stuck in the driver does, and tracks how many reads
// overlap.
type stallingSource struct {
	stall    time.Duration
	reads    atomic.Int64
	closed   atomic.Int64
	inFlight atomic.Int64
	maxSeen  atomic.Int64
	onRead   func(n int64)
}

func (s *stallingSource) Read(context.Context) (service.Frame, error) {
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if cur <= seen || s.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}

	n := s.reads.Add(1)
	if s.onRead != nil {
		s.onRead(n)
	}
	if n == 1 {
		time.Sleep(s.stall)
	}
	return &fakeFrame{name: "frame", closed: &s.closed}, nil
}

func (s *stallingSource) Close() error { return nil }
