// Package store persists staff tasks.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"fdctax/internal/tasks/models"
)

type InMemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*models.Task
}

func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{tasks: make(map[uuid.UUID]*models.Task)}
}

// CreateUnlessPending inserts t unless the client already has a pending task
// with the same title. It reports whether t was inserted.
func (s *InMemoryTaskStore) CreateUnlessPending(_ context.Context, t *models.Task) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tasks {
		if existing.ClientID == t.ClientID && existing.Title == t.Title && existing.Status == models.StatusPending {
			return false, nil
		}
	}
	cp := *t
	s.tasks[t.ID] = &cp
	return true, nil
}

// ListByClient returns the client's tasks newest first. A nil client ID lists all tasks.
func (s *InMemoryTaskStore) ListByClient(_ context.Context, clientID uuid.UUID) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Task{}
	for _, t := range s.tasks {
		if clientID != uuid.Nil && t.ClientID != clientID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
