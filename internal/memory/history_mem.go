package memory

import (
	"context"
	"sync"
)

// InMemoryHistoryStore is a thread-safe, in-memory implementation of TurnStore.
type InMemoryHistoryStore struct {
	mu            sync.RWMutex
	conversations map[string][]Turn
}

// NewInMemoryHistoryStore creates a new empty history store.
func NewInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{
		conversations: make(map[string][]Turn),
	}
}

// Compile-time interface check.
var _ TurnStore = (*InMemoryHistoryStore)(nil)

// AppendTurn adds a turn to its conversation.
func (s *InMemoryHistoryStore) AppendTurn(_ context.Context, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[turn.ConversationID] = append(s.conversations[turn.ConversationID], turn)
	return nil
}

// Turns returns all turns of a conversation.
func (s *InMemoryHistoryStore) Turns(_ context.Context, conversationID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.conversations[conversationID]
	result := make([]Turn, len(turns))
	copy(result, turns)
	return result, nil
}

// FetchLastPairs returns the turns of the last pairLimit pairs.
func (s *InMemoryHistoryStore) FetchLastPairs(ctx context.Context, conversationID string, pairLimit int) ([]Turn, error) {
	turns, err := s.Turns(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return LastPairs(turns, pairLimit), nil
}

// Purge removes all turns of a conversation.
func (s *InMemoryHistoryStore) Purge(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, conversationID)
	return nil
}

// Len returns the number of turns stored for a conversation.
func (s *InMemoryHistoryStore) Len(conversationID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations[conversationID])
}
