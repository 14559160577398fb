package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/kartpos/internal/adapters/mq/queue"
	"github.com/okian/kartpos/internal/domain/position"
	"github.com/okian/kartpos/internal/domain/recording"
	"github.com/okian/kartpos/pkg/logger"
	"github.com/okian/kartpos/pkg/metrics"
)

// Default tracker configuration.
const (
	DefaultThreshold       = 0.6
	DefaultPortTimeout     = 2 * time.Second
	DefaultMaxPortFailures = 5
)

// Tracker runs the live pipeline: frame, crop, classify, resolve, filter,
// record. Frames are processed strictly one after another on the goroutine
// that calls Run.
type Tracker struct {
	mu      sync.RWMutex
	running bool

	source     FrameSource
	pre        Preprocessor
	classifier Classifier
	recorder   *recording.Recorder
	control    queue.Queue

	threshold       float64
	positionCount   int
	portTimeout     time.Duration
	maxPortFailures int

	// one call in flight per port, even after a timeout
	sourceGate     portGate
	classifierGate portGate

	frames      atomic.Int64
	accepted    atomic.Int64
	rejected    atomic.Int64
	recorded    atomic.Int64
	failures    atomic.Int64
	consecutive atomic.Int64
	lastError   atomic.Value

	logger logger.Logger
}

// TrackerOption applies a configuration option to the Tracker.
type TrackerOption func(*Tracker)

// WithThreshold sets the confidence a verdict must exceed to be accepted.
func WithThreshold(threshold float64) TrackerOption {
	return func(t *Tracker) {
		t.threshold = threshold
	}
}

// WithPositionCount sets the number of positions the classifier emits.
func WithPositionCount(n int) TrackerOption {
	return func(t *Tracker) {
		if n > 0 {
			t.positionCount = n
		}
	}
}

// WithPortTimeout sets the deadline for each port call. Zero disables it.
func WithPortTimeout(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d >= 0 {
			t.portTimeout = d
		}
	}
}

// WithMaxPortFailures sets how many consecutive port failures are retried
// before Run gives up.
func WithMaxPortFailures(n int) TrackerOption {
	return func(t *Tracker) {
		if n >= 0 {
			t.maxPortFailures = n
		}
	}
}

// WithControlQueue sets the queue control events are read from.
func WithControlQueue(q queue.Queue) TrackerOption {
	return func(t *Tracker) {
		if q != nil {
			t.control = q
		}
	}
}

// WithRecorder sets the recording state machine.
func WithRecorder(r *recording.Recorder) TrackerOption {
	return func(t *Tracker) {
		if r != nil {
			t.recorder = r
		}
	}
}

// WithLogger sets a custom logger for the tracker.
func WithLogger(l logger.Logger) TrackerOption {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTracker constructs a tracker over the given ports.
func NewTracker(source FrameSource, pre Preprocessor, classifier Classifier, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		source:          source,
		pre:             pre,
		classifier:      classifier,
		threshold:       DefaultThreshold,
		positionCount:   position.DefaultCount,
		portTimeout:     DefaultPortTimeout,
		maxPortFailures: DefaultMaxPortFailures,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logger.Get().Named("tracker")
	}
	if t.recorder == nil {
		t.recorder = recording.New(nil, recording.WithLogger(t.logger))
	}
	if t.control == nil {
		t.control = queue.NewInMemoryQueue()
	}
	return t
}

// Recorder returns the tracker's recording state machine.
func (t *Tracker) Recorder() *recording.Recorder { return t.recorder }

// Toggle asks the pipeline to start or stop recording.
func (t *Tracker) Toggle(ctx context.Context, source string) error {
	return t.control.Publish(ctx, queue.Toggle, source)
}

// Quit asks the pipeline to stop. An unsaved session is discarded.
func (t *Tracker) Quit(ctx context.Context, source string) error {
	return t.control.Publish(ctx, queue.Quit, source)
}

// Status returns the recorder status.
func (t *Tracker) Status() recording.Status { return t.recorder.Status() }

// Run processes frames until a quit event, ctx cancellation or too many
// consecutive port failures. Quitting discards an in-flight session.
func (t *Tracker) Run(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return errors.New("tracker already running")
	}
	t.running = true
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	t.logger.Info(ctx, "tracker started",
		logger.Float64("threshold", t.threshold),
		logger.Int("positions", t.positionCount),
		logger.Duration("portTimeout", t.portTimeout),
		logger.Int("maxPortFailures", t.maxPortFailures),
	)

	for {
		if quit := t.drain(ctx); quit {
			t.shutdown(ctx, "quit requested")
			return nil
		}
		if ctx.Err() != nil {
			t.shutdown(ctx, "context cancelled")
			return nil
		}

		err := t.step(ctx)
		if err == nil {
			t.consecutive.Store(0)
			continue
		}
		if ctx.Err() != nil {
			t.shutdown(ctx, "context cancelled")
			return nil
		}

		n := t.consecutive.Add(1)
		t.failures.Add(1)
		t.lastError.Store(err.Error())
		if n > int64(t.maxPortFailures) {
			t.logger.Error(ctx, "giving up after consecutive port failures",
				logger.Int64("failures", n),
				logger.Error(err),
			)
			t.shutdown(ctx, "source unavailable")
			return err
		}
		t.logger.Warn(ctx, "port failure, retrying on next frame",
			logger.Int64("failures", n),
			logger.Error(err),
		)
	}
}

// drain handles every pending control event and reports whether a quit
// was among them.
func (t *Tracker) drain(ctx context.Context) bool {
	for {
		e, ok := t.control.Poll(ctx)
		if !ok {
			return false
		}
		switch e.Kind {
		case queue.Quit:
			t.logger.Info(ctx, "quit received", logger.String("origin", e.Source))
			return true
		case queue.Toggle:
			state, err := t.recorder.Toggle(ctx)
			if err != nil {
				t.lastError.Store(err.Error())
				t.logger.Error(ctx, "toggle failed", logger.String("origin", e.Source), logger.Error(err))
				continue
			}
			t.logger.Info(ctx, "recording toggled",
				logger.String("origin", e.Source),
				logger.String("state", state.String()),
			)
		default:
			t.logger.Warn(ctx, "unknown control event", logger.String("kind", e.Kind.String()))
		}
	}
}

// step reads one frame and, while recording, runs it through the pipeline.
func (t *Tracker) step(ctx context.Context) error {
	frame, err := callPort(ctx, &t.sourceGate, t.portTimeout, "source", t.source.Read, nil)
	if err != nil {
		return err
	}
	t.frames.Add(1)
	metrics.RecordFrameProcessed()

	if t.recorder.State() != recording.Recording {
		_ = frame.Close()
		return nil
	}

	dist, err := callPort(ctx, &t.classifierGate, t.portTimeout, "classifier", func(ctx context.Context) (position.Distribution, error) {
		crop, err := t.pre.PositionCrop(frame)
		if err != nil {
			return nil, err
		}
		defer crop.Close()
		return t.classifier.Predict(ctx, crop)
	}, func() { _ = frame.Close() })
	if err != nil {
		return err
	}
	if err := dist.Validate(t.positionCount); err != nil {
		metrics.RecordPortFailure("classifier", "invalid_distribution")
		return fmt.Errorf("%w: classifier: %w", ErrSourceUnavailable, err)
	}

	v := position.Resolve(dist, t.threshold)
	metrics.RecordVerdict(v.Accepted)
	if v.Accepted {
		t.accepted.Add(1)
	} else {
		t.rejected.Add(1)
		t.logger.Debug(ctx, "uncertain", logger.Float64("confidence", v.Confidence))
	}

	reading, ok := t.recorder.Observe(ctx, v)
	if ok && reading.Recorded {
		t.recorded.Add(1)
	}
	return nil
}

func (t *Tracker) shutdown(ctx context.Context, reason string) {
	if lost := t.recorder.Discard(ctx); lost > 0 {
		t.logger.Warn(ctx, "unsaved session discarded on exit", logger.Int("records", lost))
	}
	t.logger.Info(ctx, "tracker stopped", logger.String("reason", reason))
}

// GetStats returns tracker statistics for monitoring.
func (t *Tracker) GetStats() map[string]interface{} {
	t.mu.RLock()
	running := t.running
	t.mu.RUnlock()

	st := t.recorder.Status()
	stats := map[string]interface{}{
		"running":             running,
		"state":               st.StateName,
		"framesProcessed":     t.frames.Load(),
		"verdictsAccepted":    t.accepted.Load(),
		"verdictsRejected":    t.rejected.Load(),
		"stableReadings":      t.recorded.Load(),
		"portFailures":        t.failures.Load(),
		"consecutiveFailures": t.consecutive.Load(),
		"threshold":           t.threshold,
		"controlQueueLength":  t.control.Len(context.Background()),
	}
	if st.SessionID != "" {
		stats["sessionID"] = st.SessionID
		stats["sessionRecords"] = st.Records
		stats["windowLength"] = st.WindowLen
	}
	if last, ok := t.lastError.Load().(string); ok && last != "" {
		stats["lastError"] = last
	}
	return stats
}
