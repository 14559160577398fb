package recording

import "github.com/okian/kartpos/pkg/logger"

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithClock sets the time source used for session start and elapsed times.
func WithClock(clock Clock) Option {
	return func(r *Recorder) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithWindowCapacity sets the stability window capacity of new sessions.
// Zero or negative values produce sessions that never record.
func WithWindowCapacity(capacity int) Option {
	return func(r *Recorder) {
		r.windowCapacity = capacity
	}
}

// WithLogger sets a custom logger for the recorder.
func WithLogger(l logger.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}
