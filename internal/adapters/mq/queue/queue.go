// Package queue defines the contract for enqueuing and consuming control
// events.
//
// The pipeline polls for events between frames. Producers never block: a
// full queue drops the event and reports it.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/kartpos/pkg/metrics"
)

const defaultQueueCapacity = 16

// Kind identifies a control event.
type Kind int

const (
	// Toggle starts recording when idle and stops it otherwise.
	Toggle Kind = iota + 1
	// Quit ends the pipeline, discarding an unsaved session.
	Quit
)

func (k Kind) String() string {
	switch k {
	case Toggle:
		return "toggle"
	case Quit:
		return "quit"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one control request.
type Event struct {
	Kind   Kind
	Source string
	At     time.Time
}

// Queue provides non-blocking enqueue and poll semantics.
type Queue interface {
	// Enqueue adds an event to the queue.
	// Returns false if the queue is full or closed and the event was dropped.
	Enqueue(ctx context.Context, e Event) bool

	// Publish stamps and enqueues an event of kind k from source.
	Publish(ctx context.Context, k Kind, source string) error

	// Poll returns the oldest pending event without blocking.
	// ok is false when nothing is pending or the queue is closed and drained.
	Poll(ctx context.Context) (e Event, ok bool)

	// Len returns the current number of queued events.
	Len(ctx context.Context) int

	// Close shuts down the queue.
	// After closing, no new events can be enqueued; pending events can still be polled.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)
	return q
}

// Enqueue adds an event to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordControlDropped()
		return false
	}

	select {
	case <-ctx.Done():
		metrics.RecordControlDropped()
		return false
	default:
	}

	select {
	case q.events <- e:
		metrics.RecordControlEvent(e.Kind.String())
		return true
	default:
		metrics.RecordControlDropped()
		return false
	}
}

// Publish stamps and enqueues an event.
func (q *InMemoryQueue) Publish(ctx context.Context, k Kind, source string) error {
	if q.IsClosed() {
		return ErrClosed
	}
	if !q.Enqueue(ctx, Event{Kind: k, Source: source, At: q.now()}) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if q.IsClosed() {
			return ErrClosed
		}
		return ErrFull
	}
	return nil
}

// Poll returns the oldest pending event without blocking.
func (q *InMemoryQueue) Poll(ctx context.Context) (Event, bool) {
	if ctx.Err() != nil {
		return Event{}, false
	}
	select {
	case e, ok := <-q.events:
		return e, ok
	default:
		return Event{}, false
	}
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.events)
}

// Close shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
