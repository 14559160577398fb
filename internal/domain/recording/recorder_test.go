package recording_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/kartpos/internal/domain/position"
	"github.com/okian/kartpos/internal/domain/recording"
	"github.com/okian/kartpos/internal/domain/session"
	"github.com/okian/kartpos/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type memoryStore struct {
	mu    sync.Mutex
	saved []map[string]int
	err   error
}

func (m *memoryStore) Save(_ context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, s.Document())
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func accept(p position.Label) position.Verdict { return position.Accepted(p, 0.9) }

func TestRecorderTransitions(t *testing.T) {
	Convey("Given an idle recorder", t, func() {
		ctx := context.Background()
		store := &memoryStore{}
		clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
		r := recording.New(store, recording.WithClock(clock.Now), recording.WithWindowCapacity(3))

		Convey("Then it starts idle", func() {
			So(r.State(), ShouldEqual, recording.Idle)
			So(r.Status().StateName, ShouldEqual, "idle")
		})

		Convey("When stopping while idle", func() {
			err := r.Stop(ctx)

			Convey("Then nothing happens and nothing is persisted", func() {
				So(err, ShouldBeNil)
				So(r.State(), ShouldEqual, recording.Idle)
				So(store.saved, ShouldBeEmpty)
			})
		})

		Convey("When observing while idle", func() {
			_, ok := r.Observe(ctx, accept(2))

			Convey("Then the verdict is ignored", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When toggled on", func() {
			state, err := r.Toggle(ctx)

			Convey("Then a session is recording with an empty window", func() {
				So(err, ShouldBeNil)
				So(state, ShouldEqual, recording.Recording)
				st := r.Status()
				So(st.SessionID, ShouldNotBeEmpty)
				So(st.Started, ShouldEqual, clock.now)
				So(st.WindowLen, ShouldEqual, 0)
				So(st.Records, ShouldEqual, 0)
			})

			Convey("And starting again keeps the same session", func() {
				id := r.Status().SessionID
				r.Start(ctx)
				So(r.Status().SessionID, ShouldEqual, id)
			})

			Convey("And toggling off persists and returns to idle", func() {
				state, err := r.Toggle(ctx)
				So(err, ShouldBeNil)
				So(state, ShouldEqual, recording.Idle)
				So(store.saved, ShouldHaveLength, 1)
				So(store.saved[0], ShouldBeEmpty)
				So(r.Status().SessionID, ShouldBeEmpty)
			})
		})
	})
}

func TestRecorderEndToEnd(t *testing.T) {
	Convey("Given a recorder with a window of 3", t, func() {
		ctx := context.Background()
		store := &memoryStore{}
		clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
		r := recording.New(store, recording.WithClock(clock.Now), recording.WithWindowCapacity(3))
		r.Start(ctx)

		Convey("When position 3 becomes stable at 1.2s and again at 2.4s", func() {
			r.Observe(ctx, accept(3))
			r.Observe(ctx, accept(3))
			clock.Advance(1200 * time.Millisecond)
			first, _ := r.Observe(ctx, accept(3))

			clock.Advance(1200 * time.Millisecond)
			second, _ := r.Observe(ctx, accept(3))

			So(r.Stop(ctx), ShouldBeNil)

			Convey("Then the persisted document holds both readings", func() {
				So(first.Recorded, ShouldBeTrue)
				So(first.Elapsed, ShouldEqual, 1.2)
				So(second.Elapsed, ShouldEqual, 2.4)
				So(store.saved, ShouldHaveLength, 1)
				So(store.saved[0], ShouldResemble, map[string]int{"1.2": 3, "2.4": 3})
			})
		})

		Convey("When the window is not yet full", func() {
			reading, ok := r.Observe(ctx, accept(5))

			Convey("Then nothing is recorded", func() {
				So(ok, ShouldBeTrue)
				So(reading.Stable, ShouldBeFalse)
				So(reading.Recorded, ShouldBeFalse)
				So(reading.WindowLen, ShouldEqual, 1)
			})
		})

		Convey("When a rejected verdict follows a stable window", func() {
			r.Observe(ctx, accept(2))
			r.Observe(ctx, accept(2))
			r.Observe(ctx, accept(2))
			before := r.Status()
			reading, _ := r.Observe(ctx, position.Rejected(0.3))

			Convey("Then the window is unchanged and nothing new is recorded", func() {
				So(reading.Stable, ShouldBeTrue)
				So(reading.Recorded, ShouldBeFalse)
				So(reading.WindowLen, ShouldEqual, 3)
				So(r.Status().Records, ShouldEqual, before.Records)
			})
		})

		Convey("When a session is restarted", func() {
			r.Observe(ctx, accept(4))
			r.Observe(ctx, accept(4))
			So(r.Stop(ctx), ShouldBeNil)
			r.Start(ctx)

			Convey("Then the window starts empty again", func() {
				So(r.Status().WindowLen, ShouldEqual, 0)
			})
		})
	})
}

func TestRecorderPersistFailure(t *testing.T) {
	Convey("Given a recorder whose store fails", t, func() {
		ctx := context.Background()
		store := &memoryStore{err: errors.New("disk full")}
		clock := &fakeClock{now: time.Now()}
		r := recording.New(store, recording.WithClock(clock.Now), recording.WithWindowCapacity(1))
		r.Start(ctx)
		r.Observe(ctx, accept(7))

		Convey("When stopping", func() {
			err := r.Stop(ctx)

			Convey("Then the error is surfaced and the session is kept", func() {
				So(errors.Is(err, recording.ErrPersist), ShouldBeTrue)
				So(r.State(), ShouldEqual, recording.Recording)
				So(r.Status().Records, ShouldEqual, 1)
			})

			Convey("And a later stop can succeed", func() {
				store.err = nil
				So(r.Stop(ctx), ShouldBeNil)
				So(store.saved, ShouldHaveLength, 1)
				So(r.State(), ShouldEqual, recording.Idle)
			})
		})
	})

	Convey("Given a recorder without a store", t, func() {
		ctx := context.Background()
		r := recording.New(nil)
		r.Start(ctx)

		Convey("Then stopping fails loudly", func() {
			err := r.Stop(ctx)
			So(errors.Is(err, recording.ErrNoStore), ShouldBeTrue)
			So(errors.Is(err, recording.ErrPersist), ShouldBeTrue)
		})
	})
}

func TestRecorderDiscard(t *testing.T) {
	Convey("Given a recording session with records", t, func() {
		ctx := context.Background()
		store := &memoryStore{}
		r := recording.New(store, recording.WithWindowCapacity(1))
		r.Start(ctx)
		r.Observe(ctx, accept(1))

		Convey("When discarded", func() {
			lost := r.Discard(ctx)

			Convey("Then nothing is persisted and the recorder is idle", func() {
				So(lost, ShouldEqual, 1)
				So(store.saved, ShouldBeEmpty)
				So(r.State(), ShouldEqual, recording.Idle)
			})

			Convey("And discarding again is a no-op", func() {
				So(r.Discard(ctx), ShouldEqual, 0)
			})
		})
	})
}

func TestRecorderConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	r := recording.New(store, recording.WithWindowCapacity(2))
	r.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Observe(ctx, accept(2))
				_ = r.Status()
			}
		}()
	}
	wg.Wait()

	if err := r.Stop(ctx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected one persisted session, got %d", len(store.saved))
	}
}

func TestStateString(t *testing.T) {
	if recording.Idle.String() != "idle" || recording.Recording.String() != "recording" {
		t.Fatal("unexpected state names")
	}
	if recording.State(9).String() != "state(9)" {
		t.Fatal("unexpected name for unknown state")
	}
}
