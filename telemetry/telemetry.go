// Package telemetry defines the fire-and-forget event sink used by the budget
// tracker, tool runtime and orchestrators. Emitting an event never blocks and
// never fails the caller.
package telemetry

import (
	"sync"
	"time"

	"github.com/Lewis121025/Generate-Agent/logging"
)

// Event is a named occurrence with free-form attributes.
type Event struct {
	Name       string
	Attributes map[string]any
	At         time.Time
}

// Sink receives events. Implementations must be safe for concurrent use and
// must not panic or block the caller.
type Sink interface {
	Emit(name string, attrs map[string]any)
}

// NopSink discards all events.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(string, map[string]any) {}

// LoggerSink forwards events to a structured logger at info level.
type LoggerSink struct {
	Logger logging.Logger
}

// NewLoggerSink wraps a logger as a telemetry sink.
func NewLoggerSink(l logging.Logger) *LoggerSink {
	return &LoggerSink{Logger: l}
}

// Emit implements Sink.
func (s *LoggerSink) Emit(name string, attrs map[string]any) {
	if s.Logger == nil {
		return
	}
	args := make([]any, 0, len(attrs)*2)
	for k, v := range attrs {
		args = append(args, k, v)
	}
	s.Logger.Info("telemetry "+name, args...)
}

// MemorySink records events in memory for inspection in tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Emit implements Sink.
func (s *MemorySink) Emit(name string, attrs map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(map[string]any, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	s.events = append(s.events, Event{Name: name, Attributes: cp, At: time.Now()})
}

// Events returns a snapshot of everything emitted so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Named returns the recorded events matching name.
func (s *MemorySink) Named(name string) []Event {
	var out []Event
	for _, ev := range s.Events() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}
