//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"fdctax/internal/tasks/models"
	"fdctax/internal/tasks/store"
	"fdctax/pkg/platform/sentinel"
	"fdctax/pkg/testutil/containers"
)

type PostgresTaskStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresTaskStore
	clientID uuid.UUID
}

func TestPostgresTaskStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresTaskStoreSuite))
}

func (s *PostgresTaskStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgresTaskStore(s.postgres.Pool)
}

func (s *PostgresTaskStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "tasks", "clients"))
	s.clientID = uuid.New()
	_, err := s.postgres.Exec(ctx,
		`INSERT INTO clients (id, resume_token, flow, created_at, updated_at) VALUES ($1, $2, 'abn-assistance', NOW(), NOW())`,
		s.clientID, uuid.New())
	s.Require().NoError(err)
}

func (s *PostgresTaskStoreSuite) task() *models.Task {
	return &models.Task{
		ID:         uuid.New(),
		ClientID:   s.clientID,
		Title:      "ABN Registration - Process Application",
		Priority:   models.PriorityHigh,
		Status:     models.StatusPending,
		AssignedTo: "Tax Team",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresTaskStoreSuite) TestConcurrentCreatesKeepOnePendingTask() {
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.CreateUnlessPending(ctx, s.task())
			s.NoError(err)
		}()
	}
	wg.Wait()

	tasks, err := s.store.ListByClient(ctx, s.clientID)
	s.Require().NoError(err)
	s.Len(tasks, 1)
	s.Equal("Tax Team", tasks[0].AssignedTo)
}

func (s *PostgresTaskStoreSuite) TestUnknownClient() {
	t := s.task()
	t.ClientID = uuid.New()
	_, err := s.store.CreateUnlessPending(context.Background(), t)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
