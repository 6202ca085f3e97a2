package services

import (
	"context"
	"sync"
	"time"

	"slots-backend/internal/models"
)

const DefaultSessionTTL = time.Hour

// SessionStore issues and resolves play sessions. Expired or closed
// sessions behave as absent.
type SessionStore interface {
	Create(ctx context.Context, userID, gameID string) (*models.Session, error)
	Get(ctx context.Context, sessionID string) (*models.Session, error)
}

// SessionManager is the process-local SessionStore: a mutex-protected
// TTL map, lazily expired on read and swept on a timer from main.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		sessions: make(map[string]*models.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *SessionManager) Create(ctx context.Context, userID, gameID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	session := &models.Session{
		ID:        models.GenerateSessionID(),
		UserID:    userID,
		GameID:    gameID,
		Status:    models.SessionStatusActive,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.sessions[session.ID] = session
	cp := *session
	return &cp, nil
}

// Get returns the session only while it is active and unexpired;
// anything else is deleted and reported as absent.
func (m *SessionManager) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if session.Status != models.SessionStatusActive || m.now().After(session.ExpiresAt) {
		delete(m.sessions, sessionID)
		return nil, nil
	}
	cp := *session
	return &cp, nil
}

// Sweep drops expired sessions to bound memory.
func (m *SessionManager) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, session := range m.sessions {
		if session.Status != models.SessionStatusActive || now.After(session.ExpiresAt) {
			delete(m.sessions, id)
		}
	}
}
