package event

import (
	"errors"
	"sync"
)

// Sink receives committed events in commit order. Emit is called while the
// ledger holds its lock, so implementations must not block or call back
// into the ledger. Slow consumers should buffer (see package kafka).
type Sink interface {
	Emit(e *Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e *Event) error

// Emit calls f(e).
func (f SinkFunc) Emit(e *Event) error { return f(e) }

// Multi fans each event out to every sink and joins their errors.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) Emit(e *Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log is an append-only in-memory event recorder. Safe for concurrent use.
type Log struct {
	mu     sync.RWMutex
	events []*Event
}

// NewLog creates an empty Log.
func NewLog() *Log {
	return &Log{}
}

// Emit appends a copy of e.
func (l *Log) Emit(e *Event) error {
	l.mu.Lock()
	l.events = append(l.events, e.Clone())
	l.mu.Unlock()
	return nil
}

// Events returns a copy of all recorded events in order.
func (l *Log) Events() []*Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Event, len(l.events))
	copy(result, l.events)
	return result
}

// Len returns the number of recorded events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Last returns the most recent event, or nil.
func (l *Log) Last() *Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.events) == 0 {
		return nil
	}
	return l.events[len(l.events)-1]
}

// Since returns the events with a sequence greater than seq.
func (l *Log) Since(seq uint64) []*Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []*Event
	for _, e := range l.events {
		if e.Sequence > seq {
			result = append(result, e)
		}
	}
	return result
}

// Reset drops all recorded events.
func (l *Log) Reset() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}
