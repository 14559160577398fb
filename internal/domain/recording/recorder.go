// Package recording implements the Idle/Recording state machine that decides
// when positions are tracked and when a session's records are persisted.
package recording

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/kartpos/internal/domain/position"
	"github.com/okian/kartpos/internal/domain/session"
	"github.com/okian/kartpos/internal/domain/stability"
	"github.com/okian/kartpos/pkg/logger"
	"github.com/okian/kartpos/pkg/metrics"
)

// Sentinel errors returned by the recorder.
var (
	ErrPersist = errors.New("persist session failed")
	ErrNoStore = errors.New("no session store configured")
)

// State is the recorder state.
type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Store persists a finished session. Implementations overwrite whatever the
// destination held before.
type Store interface {
	Save(ctx context.Context, s *session.Session) error
}

// Clock returns the current time.
type Clock func() time.Time

// Reading is the outcome of observing one verdict while recording.
type Reading struct {
	Verdict   position.Verdict
	Elapsed   float64
	Stable    bool
	Recorded  bool
	WindowLen int
}

// Status is a point-in-time view of the recorder.
type Status struct {
	State     State     `json:"-"`
	StateName string    `json:"state"`
	SessionID string    `json:"session_id,omitempty"`
	Started   time.Time `json:"started,omitzero"`
	Records   int       `json:"records"`
	WindowLen int       `json:"window_len"`
}

// Recorder owns the live TrackingSession, if any. All methods are safe for
// concurrent use; a stop never interleaves with an observation.
type Recorder struct {
	mu      sync.Mutex
	state   State
	current *session.Session

	store          Store
	clock          Clock
	windowCapacity int
	logger         logger.Logger
}

// New creates an idle recorder persisting through store.
func New(store Store, opts ...Option) *Recorder {
	r := &Recorder{
		state:          Idle,
		store:          store,
		clock:          time.Now,
		windowCapacity: stability.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("recorder")
	}
	return r
}

// State returns the current state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Status returns a snapshot of the recorder.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{State: r.state, StateName: r.state.String()}
	if r.current != nil {
		st.SessionID = r.current.ID
		st.Started = r.current.Started
		st.Records = r.current.Len()
		st.WindowLen = r.current.Window().Len()
	}
	return st
}

// Toggle starts a session when idle and stops the running one otherwise.
// It returns the state after the transition.
func (r *Recorder) Toggle(ctx context.Context) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Recording {
		err := r.stopLocked(ctx)
		return r.state, err
	}
	r.startLocked(ctx)
	return r.state, nil
}

// Start begins a new session. Starting while recording is a no-op.
func (r *Recorder) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Recording {
		return
	}
	r.startLocked(ctx)
}

// Stop persists the running session and returns to idle. Stopping while
// idle is a no-op and writes nothing. When persisting fails the recorder
// stays in Recording with the session untouched.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Idle {
		r.logger.Debug(ctx, "stop ignored while idle")
		return nil
	}
	return r.stopLocked(ctx)
}

// Discard drops the running session without persisting it and returns the
// number of records lost.
func (r *Recorder) Discard(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Idle {
		return 0
	}
	lost := r.current.Len()
	r.logger.Warn(ctx, "discarding unsaved session",
		logger.String("session", r.current.ID),
		logger.Int("records", lost),
	)
	r.current = nil
	r.state = Idle
	metrics.RecordSessionEvent("discarded")
	metrics.UpdateRecording(false)
	metrics.UpdateWindowFill(0)
	return lost
}

// Observe feeds a verdict into the running session. Rejected verdicts leave
// the window untouched. When the window is stable the position is recorded at
// the elapsed time since the session start. ok is false when idle.
func (r *Recorder) Observe(ctx context.Context, v position.Verdict) (reading Reading, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Recording {
		return Reading{}, false
	}

	w := r.current.Window()
	reading = Reading{Verdict: v}
	if v.Accepted {
		reading.Stable = w.Observe(v.Position)
	} else {
		reading.Stable = w.Stable()
	}
	reading.WindowLen = w.Len()
	metrics.UpdateWindowFill(reading.WindowLen)

	if v.Accepted && reading.Stable {
		reading.Elapsed = r.current.Elapsed(r.clock())
		r.current.Record(reading.Elapsed, v.Position)
		reading.Recorded = true
		metrics.RecordStableReading()
		r.logger.Debug(ctx, "stable position recorded",
			logger.Int("position", int(v.Position)),
			logger.Float64("elapsed", reading.Elapsed),
		)
	}
	return reading, true
}

func (r *Recorder) startLocked(ctx context.Context) {
	r.current = session.New(r.clock(), r.windowCapacity)
	r.state = Recording
	metrics.RecordSessionEvent("started")
	metrics.UpdateRecording(true)
	metrics.UpdateWindowFill(0)
	r.logger.Info(ctx, "recording started",
		logger.String("session", r.current.ID),
		logger.Int("window", r.windowCapacity),
	)
}

func (r *Recorder) stopLocked(ctx context.Context) error {
	s := r.current
	if r.store == nil {
		metrics.RecordSessionEvent("persist_failed")
		return fmt.Errorf("%w: %w", ErrPersist, ErrNoStore)
	}

	s.Stopped = r.clock()
	if err := r.store.Save(ctx, s); err != nil {
		s.Stopped = time.Time{}
		metrics.RecordSessionEvent("persist_failed")
		r.logger.Error(ctx, "failed to persist session; still recording",
			logger.String("session", s.ID),
			logger.Int("records", s.Len()),
			logger.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	r.current = nil
	r.state = Idle
	metrics.RecordSessionEvent("stopped")
	metrics.RecordRecordsPersisted(s.Len())
	metrics.UpdateRecording(false)
	metrics.UpdateWindowFill(0)
	r.logger.Info(ctx, "recording stopped",
		logger.String("session", s.ID),
		logger.Int("records", s.Len()),
		logger.Duration("duration", s.Stopped.Sub(s.Started)),
	)
	return nil
}
