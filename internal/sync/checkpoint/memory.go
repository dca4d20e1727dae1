package checkpoint

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	page      int
	expiresAt time.Time
}

// InMemory is a process-local Store for tests and single-instance deployments.
type InMemory struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	clock   func() time.Time
}

type MemoryOption func(*InMemory)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) MemoryOption {
	return func(s *InMemory) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemory(ttl time.Duration, opts ...MemoryOption) *InMemory {
	s := &InMemory{entries: make(map[string]entry), ttl: ttl, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) Load(_ context.Context, sourceID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sourceID]
	if !ok {
		return 0, nil
	}
	if s.ttl > 0 && s.clock().After(e.expiresAt) {
		delete(s.entries, sourceID)
		return 0, nil
	}
	return e.page, nil
}

func (s *InMemory) Save(_ context.Context, sourceID string, page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sourceID] = entry{page: page, expiresAt: s.clock().Add(s.ttl)}
	return nil
}

func (s *InMemory) Clear(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sourceID)
	return nil
}
