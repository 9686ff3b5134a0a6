package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fdctax/internal/clients/models"
	"fdctax/pkg/platform/sentinel"
)

const clientColumns = `id, resume_token, flow, first_name, middle_name, last_name, full_name,
	casual_name, email, mobile, abn, business_name, tfn_encrypted, onboarding_data,
	created_at, updated_at`

// PostgresClientStore persists clients with pgx.
type PostgresClientStore struct {
	pool *pgxpool.Pool
}

func NewPostgresClientStore(pool *pgxpool.Pool) *PostgresClientStore {
	return &PostgresClientStore{pool: pool}
}

// Upsert is a single statement keyed on resume_token, so a retried
// submission updates the existing row instead of adding a second client.
func (s *PostgresClientStore) Upsert(ctx context.Context, c *models.Client) (*models.Client, error) {
	data, err := json.Marshal(c.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal onboarding data: %w", err)
	}
	query := `
		INSERT INTO clients (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (resume_token) DO UPDATE SET
			flow = EXCLUDED.flow,
			first_name = EXCLUDED.first_name,
			middle_name = EXCLUDED.middle_name,
			last_name = EXCLUDED.last_name,
			full_name = EXCLUDED.full_name,
			casual_name = EXCLUDED.casual_name,
			email = EXCLUDED.email,
			mobile = EXCLUDED.mobile,
			abn = EXCLUDED.abn,
			business_name = EXCLUDED.business_name,
			tfn_encrypted = EXCLUDED.tfn_encrypted,
			onboarding_data = EXCLUDED.onboarding_data,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + clientColumns
	row := s.pool.QueryRow(ctx, query,
		c.ID, c.ResumeToken, c.Flow, c.FirstName, c.MiddleName, c.LastName, c.FullName,
		c.CasualName, c.Email, c.Mobile, c.ABN, c.BusinessName, c.TFNEncrypted, data,
		c.CreatedAt, c.UpdatedAt,
	)
	stored, err := scanClient(row)
	if err != nil {
		return nil, fmt.Errorf("upsert client: %w", err)
	}
	return stored, nil
}

func (s *PostgresClientStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	c, err := scanClient(row)
	if err != nil {
		return nil, notFound(err, "find client")
	}
	return c, nil
}

func (s *PostgresClientStore) FindByResumeToken(ctx context.Context, token uuid.UUID) (*models.Client, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE resume_token = $1`, token)
	c, err := scanClient(row)
	if err != nil {
		return nil, notFound(err, "find client by resume token")
	}
	return c, nil
}

func (s *PostgresClientStore) List(ctx context.Context, q models.ListQuery) ([]*models.Client, error) {
	q = q.Normalize()
	query := `SELECT ` + clientColumns + ` FROM clients
		WHERE $1 = '' OR full_name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%' OR business_name ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`
	rows, err := s.pool.Query(ctx, query, q.Search, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	out := []*models.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return out, nil
}

func scanClient(row pgx.Row) (*models.Client, error) {
	var c models.Client
	var data []byte
	if err := row.Scan(
		&c.ID, &c.ResumeToken, &c.Flow, &c.FirstName, &c.MiddleName, &c.LastName, &c.FullName,
		&c.CasualName, &c.Email, &c.Mobile, &c.ABN, &c.BusinessName, &c.TFNEncrypted, &data,
		&c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &c.Data); err != nil {
			return nil, fmt.Errorf("unmarshal onboarding data: %w", err)
		}
	}
	return &c, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
