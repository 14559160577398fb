package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/okian/kartpos/pkg/metrics"
)

type portResult[T any] struct {
	v   T
	err error
}

// portGate admits one call at a time into a port. A call abandoned after a
// timeout keeps the gate shut until it returns. The zero value is open and
// a gate must only be used from one goroutine.
type portGate struct {
	pending chan struct{}
}

// wait blocks until the previous call into the port has returned, for at
// most timeout.
func (g *portGate) wait(ctx context.Context, timeout time.Duration, port string) error {
	if g == nil || g.pending == nil {
		return nil
	}
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-g.pending:
		g.pending = nil
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		metrics.RecordPortFailure(port, "busy")
		return fmt.Errorf("%w: %s: %w: previous call still running", ErrSourceUnavailable, port, ErrPortTimeout)
	}
}

// callPort runs fn with a deadline. release runs after fn has returned,
// even when the caller gave up waiting, so buffers fn reads are never freed
// underneath it. A result that arrives after the deadline is closed if it
// is an io.Closer. With a gate, fn is not started while an earlier call
// through the same gate is still running.
func callPort[T any](ctx context.Context, gate *portGate, timeout time.Duration, port string, fn func(context.Context) (T, error), release func()) (T, error) {
	var zero T
	if err := gate.wait(ctx, timeout, port); err != nil {
		return zero, err
	}
	start := time.Now()

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	returned := make(chan struct{})
	done := make(chan portResult[T], 1)
	go func() {
		v, err := fn(callCtx)
		if release != nil {
			release()
		}
		close(returned)
		done <- portResult[T]{v: v, err: err}
	}()

	select {
	case r := <-done:
		metrics.RecordPortLatency(port, float64(time.Since(start).Milliseconds()))
		if r.err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			metrics.RecordPortFailure(port, "timeout")
			return zero, fmt.Errorf("%w: %s: %w after %s", ErrSourceUnavailable, port, ErrPortTimeout, timeout)
		}
		if r.err != nil {
			metrics.RecordPortFailure(port, "error")
			return zero, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, port, r.err)
		}
		return r.v, nil
	case <-callCtx.Done():
		if gate != nil {
			gate.pending = returned
		}
		go discard(done)
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		metrics.RecordPortFailure(port, "timeout")
		return zero, fmt.Errorf("%w: %s: %w after %s", ErrSourceUnavailable, port, ErrPortTimeout, timeout)
	}
}

func discard[T any](done <-chan portResult[T]) {
	r := <-done
	if r.err != nil {
		return
	}
	if c, ok := any(r.v).(io.Closer); ok && c != nil {
		_ = c.Close()
	}
}
