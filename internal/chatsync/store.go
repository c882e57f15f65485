package chatsync

import (
	"sync"

	"github.com/turfbook/chat-service/internal/model"
)

// Store is the ordered message list of one conversation. Ids are unique and
// messages keep the order in which they were first observed.
type Store struct {
	mu       sync.RWMutex
	messages []model.Message
	ids      map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		ids: make(map[string]struct{}),
	}
}

// ReplaceAll swaps the whole list for a server snapshot. Server order is kept;
// a repeated id keeps its first occurrence.
func (s *Store) ReplaceAll(messages []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make([]model.Message, 0, len(messages))
	s.ids = make(map[string]struct{}, len(messages))
	for _, msg := range messages {
		if _, ok := s.ids[msg.ID]; ok {
			continue
		}
		s.ids[msg.ID] = struct{}{}
		s.messages = append(s.messages, msg)
	}
}

// AppendIfAbsent appends msg unless a message with the same id is already
// held. It reports whether the store changed.
func (s *Store) AppendIfAbsent(msg model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[msg.ID]; ok {
		return false
	}
	s.ids[msg.ID] = struct{}{}
	s.messages = append(s.messages, msg)
	return true
}

func (s *Store) Messages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.messages)
}
