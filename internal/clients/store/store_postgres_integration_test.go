//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"fdctax/internal/clients/models"
	"fdctax/internal/clients/store"
	"fdctax/pkg/platform/sentinel"
	"fdctax/pkg/testutil/containers"
)

type PostgresClientStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresClientStore
}

func TestPostgresClientStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresClientStoreSuite))
}

func (s *PostgresClientStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgresClientStore(s.postgres.Pool)
}

func (s *PostgresClientStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "tasks", "clients"))
}

func (s *PostgresClientStoreSuite) newClient(name string) *models.Client {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Client{
		ID:           uuid.New(),
		ResumeToken:  uuid.New(),
		Flow:         "luna",
		FirstName:    name,
		FullName:     name + " Lovelace",
		Email:        name + "@example.com",
		TFNEncrypted: "sealed",
		Data: map[string]any{
			"first_name":        name,
			"deduction_profile": map[string]any{"car_use": "yes"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresClientStoreSuite) TestUpsertAndFind() {
	ctx := context.Background()
	c := s.newClient("Ada")

	stored, err := s.store.Upsert(ctx, c)
	s.Require().NoError(err)
	s.Equal(c.ID, stored.ID)

	got, err := s.store.FindByResumeToken(ctx, c.ResumeToken)
	s.Require().NoError(err)
	s.Equal("Ada Lovelace", got.FullName)
	s.Equal("sealed", got.TFNEncrypted)
	s.Equal("yes", got.Data["deduction_profile"].(map[string]any)["car_use"])
}

func (s *PostgresClientStoreSuite) TestConcurrentRetriesCreateOneClient() {
	ctx := context.Background()
	token := uuid.New()

	var wg sync.WaitGroup
	ids := make(chan uuid.UUID, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := s.newClient("Ada")
			c.ResumeToken = token
			stored, err := s.store.Upsert(ctx, c)
			if err == nil {
				ids <- stored.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[uuid.UUID]struct{}{}
	for id := range ids {
		seen[id] = struct{}{}
	}
	s.Len(seen, 1)

	all, err := s.store.List(ctx, models.ListQuery{})
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *PostgresClientStoreSuite) TestListSearch() {
	ctx := context.Background()
	for _, name := range []string{"Ada", "Grace"} {
		_, err := s.store.Upsert(ctx, s.newClient(name))
		s.Require().NoError(err)
	}

	found, err := s.store.List(ctx, models.ListQuery{Search: "grace"})
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("Grace Lovelace", found[0].FullName)
}

func (s *PostgresClientStoreSuite) TestNotFound() {
	_, err := s.store.FindByID(context.Background(), uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
