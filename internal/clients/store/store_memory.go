// Package store persists clients keyed by id with the resume token as the
// natural key for submissions.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"fdctax/internal/clients/models"
	"fdctax/pkg/platform/sentinel"
)

// InMemoryClientStore is used when no database is configured and in tests.
type InMemoryClientStore struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*models.Client
	byToken map[uuid.UUID]uuid.UUID
}

func NewInMemoryClientStore() *InMemoryClientStore {
	return &InMemoryClientStore{
		clients: make(map[uuid.UUID]*models.Client),
		byToken: make(map[uuid.UUID]uuid.UUID),
	}
}

// Upsert inserts c, or updates the client already holding c.ResumeToken while
// keeping its ID and creation time.
func (s *InMemoryClientStore) Upsert(_ context.Context, c *models.Client) (*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := clone(c)
	if id, ok := s.byToken[c.ResumeToken]; ok {
		existing := s.clients[id]
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	}
	s.clients[stored.ID] = stored
	s.byToken[stored.ResumeToken] = stored.ID
	return clone(stored), nil
}

func (s *InMemoryClientStore) FindByID(_ context.Context, id uuid.UUID) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(c), nil
}

func (s *InMemoryClientStore) FindByResumeToken(_ context.Context, token uuid.UUID) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byToken[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.clients[id]), nil
}

// List returns matching clients, newest first.
func (s *InMemoryClientStore) List(_ context.Context, q models.ListQuery) ([]*models.Client, error) {
	q = q.Normalize()
	s.mu.RLock()
	matched := make([]*models.Client, 0, len(s.clients))
	for _, c := range s.clients {
		if c.Matches(q.Search) {
			matched = append(matched, clone(c))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if q.Offset >= len(matched) {
		return []*models.Client{}, nil
	}
	end := min(q.Offset+q.Limit, len(matched))
	return matched[q.Offset:end], nil
}

func clone(c *models.Client) *models.Client {
	out := *c
	if c.Data != nil {
		out.Data = make(map[string]any, len(c.Data))
		for k, v := range c.Data {
			out.Data[k] = v
		}
	}
	return &out
}
