// Package session holds the state of a single tracking session: the span
// between a start and a stop toggle during live recording.
package session

import (
	"cmp"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/okian/kartpos/internal/domain/position"
	"github.com/okian/kartpos/internal/domain/stability"
)

// Record is one stable reading taken during a session.
type Record struct {
	Elapsed  float64
	Position position.Label
}

// Session owns a stability window and the elapsed-seconds -> position records.
// It is exclusively owned by the recorder and not safe for concurrent use.
type Session struct {
	ID      string
	Started time.Time
	Stopped time.Time

	window  *stability.Window
	records map[float64]position.Label
}

// New starts a session at started with an empty window of the given capacity.
func New(started time.Time, windowCapacity int) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Started: started,
		window:  stability.NewWindow(windowCapacity),
		records: make(map[float64]position.Label),
	}
}

// Window returns the session's stability window.
func (s *Session) Window() *stability.Window { return s.window }

// Elapsed returns the seconds between the session start and now.
func (s *Session) Elapsed(now time.Time) float64 {
	return now.Sub(s.Started).Seconds()
}

// Record stores p at elapsed seconds. A reading at an existing key replaces it.
func (s *Session) Record(elapsed float64, p position.Label) {
	s.records[elapsed] = p
}

// Len returns the number of records.
func (s *Session) Len() int { return len(s.records) }

// Records returns the records in the order they were taken.
func (s *Session) Records() []Record {
	out := make([]Record, 0, len(s.records))
	for k, v := range s.records {
		out = append(out, Record{Elapsed: k, Position: v})
	}
	slices.SortFunc(out, func(a, b Record) int { return cmp.Compare(a.Elapsed, b.Elapsed) })
	return out
}

// Document renders the records as the persisted key/value form: elapsed
// seconds in shortest decimal text mapped to the integer position.
func (s *Session) Document() map[string]int {
	doc := make(map[string]int, len(s.records))
	for k, v := range s.records {
		doc[FormatElapsed(k)] = int(v)
	}
	return doc
}

// FormatElapsed renders elapsed seconds the way they are keyed on disk.
func FormatElapsed(elapsed float64) string {
	return strconv.FormatFloat(elapsed, 'f', -1, 64)
}
