package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fdctax/internal/platform/postgres"
	"fdctax/internal/tasks/models"
	"fdctax/pkg/platform/sentinel"
)

const taskColumns = `id, client_id, title, description, priority, status, assigned_to, created_at`

type PostgresTaskStore struct {
	pool *pgxpool.Pool
}

func NewPostgresTaskStore(pool *pgxpool.Pool) *PostgresTaskStore {
	return &PostgresTaskStore{pool: pool}
}

// CreateUnlessPending locks the client row so concurrent submissions for the
// same client see each other's task.
func (s *PostgresTaskStore) CreateUnlessPending(ctx context.Context, t *models.Task) (bool, error) {
	created := false
	err := postgres.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		var id uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM clients WHERE id = $1 FOR UPDATE`, t.ClientID).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("client %s: %w", t.ClientID, sentinel.ErrNotFound)
			}
			return fmt.Errorf("lock client: %w", err)
		}

		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM tasks WHERE client_id = $1 AND title = $2 AND status = $3)`,
			t.ClientID, t.Title, models.StatusPending,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check pending task: %w", err)
		}
		if exists {
			return nil
		}

		_, err = tx.Exec(ctx, `INSERT INTO tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			t.ID, t.ClientID, t.Title, t.Description, t.Priority, t.Status, t.AssignedTo, t.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		created = true
		return nil
	})
	return created, err
}

func (s *PostgresTaskStore) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks
		WHERE $1 = '00000000-0000-0000-0000-000000000000'::uuid OR client_id = $1
		ORDER BY created_at DESC, id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := []*models.Task{}
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.ClientID, &t.Title, &t.Description, &t.Priority, &t.Status, &t.AssignedTo, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}
