// Package eventlog provides the bounded, newest-first simulation event log.
package eventlog

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/invisible-tech/warsim/internal/types"
)

var eventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "warsim_events_total",
		Help: "Total simulation events appended to the log",
	},
	[]string{"type"},
)

func init() {
	prometheus.MustRegister(eventsTotal)
}

// DefaultRetention is the number of events kept when no capacity is given.
const DefaultRetention = 100

// Log is a bounded event log. The newest event is always first; once the
// retention cap is reached the oldest entry is dropped on every append.
type Log struct {
	mu     sync.Mutex
	cap    int
	events []types.Event
	sink   func(types.Event)

	now func() time.Time
}

// New creates an empty log retaining at most capacity events.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultRetention
	}
	return &Log{cap: capacity, now: time.Now}
}

// SetSink registers a function called with every appended event, after the
// event is stored. Used to fan events out to an external bus.
func (l *Log) SetSink(sink func(types.Event)) {
	l.mu.Lock()
	l.sink = sink
	l.mu.Unlock()
}

// Append creates an event from the narration fields and prepends it.
func (l *Log) Append(source, message string, kind types.EventKind) types.Event {
	l.mu.Lock()
	now := l.now()
	ev := types.Event{
		ID:        uuid.NewString(),
		Timestamp: now.Format("15:04:05"),
		CreatedAt: now.UnixMilli(),
		Source:    source,
		Message:   message,
		Kind:      kind,
	}
	l.events = append(l.events, types.Event{})
	copy(l.events[1:], l.events)
	l.events[0] = ev
	if len(l.events) > l.cap {
		l.events = l.events[:l.cap]
	}
	sink := l.sink
	l.mu.Unlock()

	eventsTotal.WithLabelValues(string(kind)).Inc()
	if sink != nil {
		sink(ev)
	}
	return ev
}

// Snapshot returns a copy of the log, newest first.
func (l *Log) Snapshot() []types.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Reset discards all retained events.
func (l *Log) Reset() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}
