package worker

import (
	"context"
	"sync"

	"github.com/Priya8975/event-inserter/internal/domain"
)

// MemorySink keeps saved events in memory, keyed by id like the events table.
type MemorySink struct {
	mu     sync.Mutex
	events map[string]domain.Event
	order  []string
	err    error
}

func NewMemorySink() *MemorySink {
	return &MemorySink{events: make(map[string]domain.Event)}
}

// FailWith makes every following save return err.
func (s *MemorySink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemorySink) SaveEvent(_ context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.events[event.ID]; !ok {
		s.order = append(s.order, event.ID)
	}
	s.events[event.ID] = event
	return nil
}

// Events returns saved events in first-save order.
func (s *MemorySink) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.events[id])
	}
	return out
}
