package memory

import (
	"sync"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
)

// SessionStore is the in-memory implementation of app.SessionStore.
// One store lock guards the three indexes; per-room serialization
// lives inside the sessions themselves.
type SessionStore struct {
	mu     sync.RWMutex
	byID   map[string]*app.Session
	byCode map[string]*app.Session
	byUser map[string]string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		byID:   make(map[string]*app.Session),
		byCode: make(map[string]*app.Session),
		byUser: make(map[string]string),
	}
}

func (s *SessionStore) Register(session *app.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byCode[session.Code()]; taken {
		return false
	}
	s.byID[session.ID()] = session
	s.byCode[session.Code()] = session
	return true
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.byID[sessionID]
	return session, ok
}

func (s *SessionStore) GetByCode(code string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.byCode[code]
	return session, ok
}

func (s *SessionStore) SessionFor(userID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessionID, ok := s.byUser[userID]
	if !ok {
		return nil, false
	}
	session, ok := s.byID[sessionID]
	return session, ok
}

func (s *SessionStore) Bind(userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[sessionID]; !ok {
		return domain.ErrRoomNotFound
	}
	if _, bound := s.byUser[userID]; bound {
		return domain.ErrAlreadyJoined
	}
	s.byUser[userID] = sessionID
	return nil
}

func (s *SessionStore) Unbind(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byID[sessionID]
	if !ok {
		return
	}
	delete(s.byID, sessionID)
	delete(s.byCode, session.Code())
	for _, userID := range session.ParticipantIDs() {
		if s.byUser[userID] == sessionID {
			delete(s.byUser, userID)
		}
	}
}

func (s *SessionStore) All() []*app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]*app.Session, 0, len(s.byID))
	for _, session := range s.byID {
		sessions = append(sessions, session)
	}
	return sessions
}
