package relay

import (
	"sync"

	"github.com/openai/openai-go/v3"
)

// Session is the conversation bound to one live connection. History is
// the full provider-facing message sequence, always starting with the
// system message. Backlog mirrors the user-visible messages for replay
// on rejoin.
type Session struct {
	ID      string
	History []openai.ChatCompletionMessageParamUnion
	Backlog []ChatMessage
}

// Store holds all live sessions keyed by connection ID. It is the only
// mutable state shared between connections; each session is mutated by
// a single writer at a time (the transport delivers one inbound message
// per connection at a time), the store itself guards concurrent
// insert/lookup/delete across connections.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

func (s *Store) Put(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Delete removes the session. Deleting an absent ID is a no-op, so
// repeated disconnects are harmless.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Commit replaces the session's history and backlog. It reports false
// when the session is gone, in which case the caller must discard the
// result instead of resurrecting a closed session.
func (s *Store) Commit(id string, history []openai.ChatCompletionMessageParamUnion, backlog []ChatMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return false
	}
	session.History = history
	session.Backlog = backlog
	return true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
