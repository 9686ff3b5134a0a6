package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"fdctax/internal/clients/models"
	dErrors "fdctax/pkg/domain-errors"
	"fdctax/pkg/platform/sentinel"
	"fdctax/pkg/secrets"
)

// TFNField is the record key holding the tax file number in every flow.
const TFNField = "tfn"

type ClientStore interface {
	Upsert(ctx context.Context, c *models.Client) (*models.Client, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error)
	FindByResumeToken(ctx context.Context, token uuid.UUID) (*models.Client, error)
	List(ctx context.Context, q models.ListQuery) ([]*models.Client, error)
}

// Sealer encrypts TFNs at rest.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(ciphertext string) (string, error)
}

// SubmitRequest is a frozen onboarding record and the token identifying it.
type SubmitRequest struct {
	Flow        string
	ResumeToken string
	Record      map[string]any
}

// Service is the submission and resume collaborator of the wizard and the
// read side of the admin client list.
type Service struct {
	store  ClientStore
	sealer Sealer
	logger *slog.Logger
	clock  func() time.Time
	group  singleflight.Group
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(store ClientStore, sealer Sealer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		sealer: sealer,
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit persists the record keyed by its resume token. Concurrent calls for
// the same token share one store write, and a later retry updates the same
// client, so a record never produces two clients.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.SubmitResult, error) {
	token := strings.TrimSpace(req.ResumeToken)
	if token == "" {
		token = uuid.NewString()
	}
	parsed, err := uuid.Parse(token)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "resume token must be a UUID")
	}
	if len(req.Record) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "onboarding record is empty")
	}

	v, err, shared := s.group.Do(parsed.String(), func() (any, error) {
		return s.submit(ctx, req.Flow, parsed, req.Record)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.InfoContext(ctx, "collapsed concurrent submission", "resume_token", parsed.String())
	}
	stored := v.(*models.Client)
	return &models.SubmitResult{Success: true, ID: stored.ID.String(), ResumeToken: stored.ResumeToken.String()}, nil
}

func (s *Service) submit(ctx context.Context, flow string, token uuid.UUID, record map[string]any) (*models.Client, error) {
	sealed, err := s.sealer.Seal(pick(record, TFNField))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to protect tax file number")
	}

	data := make(map[string]any, len(record))
	for k, v := range record {
		if k == TFNField {
			continue
		}
		data[k] = v
	}

	now := s.clock()
	first := pick(record, "first_name", "firstName")
	middle := pick(record, "middle_name", "middleName")
	last := pick(record, "last_name", "lastName")
	c := &models.Client{
		ID:           uuid.New(),
		ResumeToken:  token,
		Flow:         flow,
		FirstName:    first,
		MiddleName:   middle,
		LastName:     last,
		FullName:     models.FullNameOf(first, middle, last),
		CasualName:   pick(record, "casual_name"),
		Email:        pick(record, "email"),
		Mobile:       pick(record, "mobile"),
		ABN:          strings.Join(strings.Fields(pick(record, "abn")), ""),
		BusinessName: pick(record, "trading_name", "tradingName", "entity_name"),
		TFNEncrypted: sealed,
		Data:         data,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	stored, err := s.store.Upsert(ctx, c)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist client",
			"resume_token", token.String(),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to save your details")
	}
	s.logger.InfoContext(ctx, "client persisted",
		"client_id", stored.ID.String(),
		"flow", flow,
	)
	return stored, nil
}

// LoadByToken returns the stored record for a resume token with the TFN restored.
func (s *Service) LoadByToken(ctx context.Context, token string) (map[string]any, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(token))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "resume token must be a UUID")
	}
	c, err := s.store.FindByResumeToken(ctx, parsed)
	if err != nil {
		return nil, translate(err, "no onboarding found for this link")
	}
	record := make(map[string]any, len(c.Data)+1)
	for k, v := range c.Data {
		record[k] = v
	}
	tfn, err := s.sealer.Open(c.TFNEncrypted)
	if err != nil {
		// A record whose TFN cannot be opened is still resumable; the TFN is re-entered.
		s.logger.WarnContext(ctx, "failed to open stored TFN", "client_id", c.ID.String(), "error", err)
	} else if tfn != "" {
		record[TFNField] = tfn
	}
	return record, nil
}

// Get returns one client with its onboarding answers.
func (s *Service) Get(ctx context.Context, id string) (*models.ClientView, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "client id must be a UUID")
	}
	c, err := s.store.FindByID(ctx, parsed)
	if err != nil {
		return nil, translate(err, "client not found")
	}
	return models.NewClientView(c, s.openTFN(ctx, c), true), nil
}

// List returns clients matching q without their onboarding answers.
func (s *Service) List(ctx context.Context, q models.ListQuery) ([]*models.ClientView, error) {
	clients, err := s.store.List(ctx, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list clients")
	}
	out := make([]*models.ClientView, 0, len(clients))
	for _, c := range clients {
		out = append(out, models.NewClientView(c, s.openTFN(ctx, c), false))
	}
	return out, nil
}

var csvHeader = []string{"id", "full_name", "email", "mobile", "abn", "business_name", "tfn", "flow", "created_at"}

// ExportCSV writes the selected clients, or every client when ids is empty.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, ids []string) error {
	var views []*models.ClientView
	if len(ids) == 0 {
		all, err := s.List(ctx, models.ListQuery{Limit: models.MaxListLimit})
		if err != nil {
			return err
		}
		views = all
	} else {
		for _, id := range ids {
			v, err := s.Get(ctx, id)
			if err != nil {
				return err
			}
			views = append(views, v)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, v := range views {
		row := []string{v.ID, v.FullName, v.Email, v.Mobile, v.ABN, v.BusinessName, v.TFN, v.Flow, v.CreatedAt.Format(time.RFC3339)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Service) openTFN(ctx context.Context, c *models.Client) string {
	tfn, err := s.sealer.Open(c.TFNEncrypted)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to open stored TFN", "client_id", c.ID.String(), "error", err)
		return ""
	}
	return tfn
}

func translate(err error, notFoundMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
}

// pick returns the first non-empty text among keys.
func pick(record map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := record[k].(type) {
		case string:
			if t := strings.TrimSpace(v); t != "" {
				return t
			}
		case fmt.Stringer:
			return v.String()
		}
	}
	return ""
}

var _ Sealer = (*secrets.Cipher)(nil)
