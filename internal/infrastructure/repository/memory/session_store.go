package memory

import (
	"context"
	"sync"

	"github.com/dmmikh/adaptive-rag-agent/internal/core/domain"
)

// SessionStore keeps conversation history for the lifetime of the process.
// History returns a copy so callers can append to it without racing the store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]domain.Message
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string][]domain.Message)}
}

func (s *SessionStore) History(_ context.Context, sessionID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.sessions[sessionID]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *SessionStore) AppendMessage(_ context.Context, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[msg.SessionID] = append(s.sessions[msg.SessionID], msg)
	return nil
}
