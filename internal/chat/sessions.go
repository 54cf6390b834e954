package chat

import "sync"

// Sessions tracks one Conversation per chat session id. The mutex guards only
// the map; within a session the caller must not dispatch two messages
// concurrently (single in-flight request per web session).
type Sessions struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
}

// NewSessions creates an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{conversations: make(map[string]*Conversation)}
}

// Get returns the conversation for the session, creating it lazily.
func (s *Sessions) Get(sessionID string) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[sessionID]
	if !ok {
		conv = NewConversation()
		s.conversations[sessionID] = conv
	}
	return conv
}

// Reset drops the session's conversation, if any.
func (s *Sessions) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, sessionID)
}

// Len returns the number of live conversations.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}
