// Package service raises staff tasks for submissions that need manual work.
package service

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fdctax/internal/onboarding/flow"
	"fdctax/internal/onboarding/models"
	taskmodels "fdctax/internal/tasks/models"
	dErrors "fdctax/pkg/domain-errors"
)

const (
	ABNTaskTitle    = "ABN Registration - Process Application"
	ABNTaskAssignee = "Tax Team"
)

type Store interface {
	CreateUnlessPending(ctx context.Context, t *taskmodels.Task) (bool, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*taskmodels.Task, error)
}

// Submission is the part of a completed onboarding the task rules look at.
type Submission struct {
	Flow     string
	ClientID string
	Record   map[string]any
}

type Service struct {
	store  Store
	logger *slog.Logger
	clock  func() time.Time
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

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default(), clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateForSubmission raises the ABN processing task when the paid tier was
// chosen. Other submissions need no staff task and return (nil, nil).
func (s *Service) CreateForSubmission(ctx context.Context, sub Submission) (*taskmodels.Task, error) {
	rec := models.Record(sub.Record)
	if sub.Flow != flow.FlowABNAssistance || !rec.Truthy("wantsAssistance") {
		return nil, nil
	}
	clientID, err := uuid.Parse(sub.ClientID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "client id must be a UUID")
	}

	t := &taskmodels.Task{
		ID:          uuid.New(),
		ClientID:    clientID,
		Title:       ABNTaskTitle,
		Description: abnSummary(rec),
		Priority:    taskmodels.PriorityHigh,
		Status:      taskmodels.StatusPending,
		AssignedTo:  ABNTaskAssignee,
		CreatedAt:   s.clock(),
	}
	created, err := s.store.CreateUnlessPending(ctx, t)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create task")
	}
	if !created {
		s.logger.InfoContext(ctx, "pending ABN task already exists", "client_id", sub.ClientID)
		return nil, nil
	}
	s.logger.InfoContext(ctx, "task created",
		"task_id", t.ID.String(),
		"client_id", sub.ClientID,
		"title", t.Title,
	)
	return t, nil
}

// List returns the tasks of one client, or all tasks when clientID is empty.
func (s *Service) List(ctx context.Context, clientID string) ([]*taskmodels.Task, error) {
	id := uuid.Nil
	if clientID != "" {
		parsed, err := uuid.Parse(clientID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "client_id must be a UUID")
		}
		id = parsed
	}
	tasks, err := s.store.ListByClient(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tasks")
	}
	return tasks, nil
}

func abnSummary(rec models.Record) string {
	esc := func(field string) string { return html.EscapeString(rec.Text(field)) }
	trading := esc("tradingName")
	if trading == "" {
		trading = "N/A"
	}

	var b strings.Builder
	b.WriteString("<p><strong>ABN Registration Request</strong></p>")
	fmt.Fprintf(&b, "<p>Client: %s %s</p>", esc("firstName"), esc("lastName"))
	fmt.Fprintf(&b, "<p>Structure: %s</p>", esc("businessStructure"))
	fmt.Fprintf(&b, "<p>Trading Name: %s</p>", trading)
	fmt.Fprintf(&b, "<p>Start Date: %s</p>", esc("businessStartDate"))
	fmt.Fprintf(&b, "<p>GST Required: %s</p>", esc("registerForGST"))
	if rec.Equals("registerForGST", "yes") {
		fmt.Fprintf(&b, "<p>Est. Turnover: $%s</p><p>GST Start: %s</p><p>Reporting: %s</p>",
			esc("estimatedTurnover"), esc("gstStartDate"), esc("gstBasis"))
	}
	b.WriteString("<p>Payment: Paid</p>")
	if ref := esc("paymentIntentId"); ref != "" {
		fmt.Fprintf(&b, "<p>Payment ID: %s</p>", ref)
	}
	return b.String()
}
