// Package store persists wizard sessions between requests.
package store

import (
	"context"
	"sync"
	"time"

	"fdctax/internal/onboarding/models"
	"fdctax/pkg/platform/sentinel"
)

// InMemorySessionStore keeps sessions in process. Expired sessions are
// reported as expired and dropped on read.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	clock    func() time.Time
}

// MemoryOption configures an InMemorySessionStore.
type MemoryOption func(*InMemorySessionStore)

// WithClock overrides time.Now for expiry checks.
func WithClock(clock func() time.Time) MemoryOption {
	return func(s *InMemorySessionStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemorySessionStore(opts ...MemoryOption) *InMemorySessionStore {
	s := &InMemorySessionStore{
		sessions: make(map[string]*models.Session),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemorySessionStore) Save(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *InMemorySessionStore) FindByID(_ context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !session.ExpiresAt.IsZero() && s.clock().After(session.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, sentinel.ErrExpired
	}
	return session.Clone(), nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
