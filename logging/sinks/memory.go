package sinks

import (
	"context"
	"sync"

	"webtron/client/logging"
)

// MemorySink records events for inspection, mostly by tests.
type MemorySink struct {
	mu     sync.RWMutex
	events []logging.Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(event logging.Event) error {
	s.mu.Lock()
	s.events = append(s.events, event.Clone())
	s.mu.Unlock()
	return nil
}

// Events returns every recorded event in arrival order.
func (s *MemorySink) Events() []logging.Event {
	return s.filter(func(logging.Event) bool { return true })
}

// EventsOfType returns recorded events with the given type.
func (s *MemorySink) EventsOfType(eventType logging.EventType) []logging.Event {
	return s.filter(func(e logging.Event) bool { return e.Type == eventType })
}

func (s *MemorySink) filter(keep func(logging.Event) bool) []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]logging.Event, 0, len(s.events))
	for _, event := range s.events {
		if keep(event) {
			matched = append(matched, event)
		}
	}
	return matched
}

func (s *MemorySink) Reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

func (s *MemorySink) Close(context.Context) error {
	return nil
}
