// Package stability implements the sliding window that suppresses
// single-frame misclassifications before a position is recorded.
package stability

import "github.com/okian/kartpos/internal/domain/position"

// DefaultCapacity is the number of agreeing frames needed for a stable reading.
const DefaultCapacity = 10

// Window is a bounded FIFO of accepted positions. It is not safe for
// concurrent use; its owning session serializes access.
type Window struct {
	capacity int
	entries  []position.Label
}

// NewWindow creates an empty window. A capacity <= 0 yields a window that is
// never stable.
func NewWindow(capacity int) *Window {
	if capacity < 0 {
		capacity = 0
	}
	return &Window{
		capacity: capacity,
		entries:  make([]position.Label, 0, capacity),
	}
}

// Observe appends an accepted position, evicting the oldest entry once the
// window is over capacity, and reports whether the window is now stable.
func (w *Window) Observe(p position.Label) bool {
	if w.capacity == 0 {
		return false
	}
	if len(w.entries) == w.capacity {
		copy(w.entries, w.entries[1:])
		w.entries = w.entries[:len(w.entries)-1]
	}
	w.entries = append(w.entries, p)
	return w.Stable()
}

// Stable reports whether the window is full and every entry equals the newest.
func (w *Window) Stable() bool {
	if w.capacity == 0 || len(w.entries) < w.capacity {
		return false
	}
	newest := w.entries[len(w.entries)-1]
	for _, e := range w.entries {
		if e != newest {
			return false
		}
	}
	return true
}

// Reset empties the window.
func (w *Window) Reset() {
	w.entries = w.entries[:0]
}

// Len returns the number of held entries.
func (w *Window) Len() int { return len(w.entries) }

// Capacity returns the configured capacity.
func (w *Window) Capacity() int { return w.capacity }

// Entries returns a copy of the held entries, oldest first.
func (w *Window) Entries() []position.Label {
	out := make([]position.Label, len(w.entries))
	copy(out, w.entries)
	return out
}
