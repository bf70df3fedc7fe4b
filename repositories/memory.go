package repositories

import (
	"context"
	"sync"

	"driftroom/domain"
)

// MemoryStore is the always-available backend. Mirror writes arrive from
// short-lived goroutines, hence the lock.
type MemoryStore struct {
	mu       sync.RWMutex
	caps     Caps
	messages map[string][]domain.Message
	scores   map[string][]float64
}

func NewMemoryStore(caps Caps) *MemoryStore {
	return &MemoryStore{
		caps:     caps,
		messages: make(map[string][]domain.Message),
		scores:   make(map[string][]float64),
	}
}

func (s *MemoryStore) AppendMessage(_ context.Context, roomID string, m domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	window := append(s.messages[roomID], m)
	if len(window) > s.caps.Messages {
		window = window[len(window)-s.caps.Messages:]
	}
	s.messages[roomID] = window
	return nil
}

func (s *MemoryStore) RecentMessages(_ context.Context, roomID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Message(nil), s.messages[roomID]...), nil
}

func (s *MemoryStore) AppendScore(_ context.Context, roomID string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	window := append(s.scores[roomID], score)
	if len(window) > s.caps.Scores {
		window = window[len(window)-s.caps.Scores:]
	}
	s.scores[roomID] = window
	return nil
}

func (s *MemoryStore) RecentScores(_ context.Context, roomID string) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]float64(nil), s.scores[roomID]...), nil
}

func (s *MemoryStore) PurgeRoom(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, roomID)
	delete(s.scores, roomID)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
