package memory

import (
	"context"
	"sync"

	"case-reasons-training/internal/domain"
	"case-reasons-training/internal/quiz"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Sessions are copied in and out so callers never share a live value.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*quiz.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*quiz.Session),
	}
}

func (s *SessionStore) Get(_ context.Context, id string) (*quiz.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// Save stores session if its Version still matches the stored one and
// advances session.Version on success.
func (s *SessionStore) Save(_ context.Context, session *quiz.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[session.ID]
	switch {
	case !ok && session.Version != 0:
		return domain.ErrSessionNotFound
	case ok && current.Version != session.Version:
		return domain.ErrConcurrentUpdate
	}
	session.Version++
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len reports how many sessions are held.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
