// Package service runs onboarding wizard sessions on the server: it applies
// field edits, schedules TFN/ABN checks and drives the stage machine through
// submission.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	clientmodels "fdctax/internal/clients/models"
	clientservice "fdctax/internal/clients/service"
	"fdctax/internal/events"
	"fdctax/internal/notify"
	"fdctax/internal/onboarding/flow"
	"fdctax/internal/onboarding/models"
	"fdctax/internal/payment"
	"fdctax/internal/platform/metrics"
	taskmodels "fdctax/internal/tasks/models"
	taskservice "fdctax/internal/tasks/service"
	"fdctax/internal/validation"
	dErrors "fdctax/pkg/domain-errors"
	"fdctax/pkg/platform/sentinel"
	"fdctax/pkg/requestcontext"
)

const (
	defaultDebounce      = 500 * time.Millisecond
	defaultSessionTTL    = 72 * time.Hour
	defaultCheckTimeout  = 5 * time.Second
	defaultSubmitTimeout = 30 * time.Second
)

type Store interface {
	Save(ctx context.Context, s *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

// Checker evaluates a TFN or ABN.
type Checker interface {
	Check(ctx context.Context, kind validation.Kind, raw string) (validation.Result, error)
}

// Collaborator persists submitted records and loads them back for resume.
type Collaborator interface {
	Submit(ctx context.Context, req clientservice.SubmitRequest) (*clientmodels.SubmitResult, error)
	LoadByToken(ctx context.Context, token string) (map[string]any, error)
}

type Notifier interface {
	NotifySubmitted(ctx context.Context, sub notify.Submission)
}

type TaskCreator interface {
	CreateForSubmission(ctx context.Context, sub taskservice.Submission) (*taskmodels.Task, error)
}

type EventEmitter interface {
	Emit(ctx context.Context, e events.Event) error
}

// Service owns wizard sessions. Every mutation of a session runs under its
// shard lock and ends with a Save.
type Service struct {
	registry     *flow.Registry
	store        Store
	checker      Checker
	collaborator Collaborator

	payments      payment.Provider
	paymentAmount int64
	currency      string
	notifier      Notifier
	tasks         TaskCreator
	events        EventEmitter

	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	clock         func() time.Time
	debounce      time.Duration
	ttl           time.Duration
	checkTimeout  time.Duration
	submitTimeout time.Duration

	locks sessionLocks

	timersMu sync.Mutex
	timers   map[string]*time.Timer
	bgCtx    context.Context
	cancel   context.CancelFunc
	bg       sync.WaitGroup
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithDebounce delays validator calls until input has been stable for d.
// Zero checks inline within the field update.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

func WithCheckTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.checkTimeout = d
		}
	}
}

// WithPayments enables the paid tier. A zero amount or empty currency keeps
// the provider defaults.
func WithPayments(p payment.Provider, amountCents int64, currency string) Option {
	return func(s *Service) {
		s.payments = p
		s.paymentAmount = amountCents
		s.currency = currency
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithTasks(t TaskCreator) Option {
	return func(s *Service) {
		s.tasks = t
	}
}

func WithEvents(e EventEmitter) Option {
	return func(s *Service) {
		s.events = e
	}
}

func New(registry *flow.Registry, store Store, checker Checker, collaborator Collaborator, opts ...Option) *Service {
	bgCtx, cancel := context.WithCancel(context.Background())
	s := &Service{
		registry:      registry,
		store:         store,
		checker:       checker,
		collaborator:  collaborator,
		logger:        slog.Default(),
		tracer:        otel.Tracer("fdctax/onboarding"),
		clock:         time.Now,
		debounce:      defaultDebounce,
		ttl:           defaultSessionTTL,
		checkTimeout:  defaultCheckTimeout,
		submitTimeout: defaultSubmitTimeout,
		timers:        make(map[string]*time.Timer),
		bgCtx:         bgCtx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close cancels scheduled checks and waits for running ones.
func (s *Service) Close() {
	s.timersMu.Lock()
	for key, t := range s.timers {
		if t.Stop() {
			s.bg.Done()
		}
		delete(s.timers, key)
	}
	s.timersMu.Unlock()
	s.cancel()
	s.bg.Wait()
}

// Start opens a session on flowName. A resume token pre-fills the record from
// an earlier submission.
func (s *Service) Start(ctx context.Context, flowName, resumeToken string) (*Snapshot, error) {
	f, err := s.registry.Get(flowName)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, fmt.Sprintf("unknown onboarding flow %q", flowName))
	}

	now := s.clock()
	sess := &models.Session{
		ID:        uuid.NewString(),
		Flow:      f.Name,
		Record:    f.Defaults.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.ttl > 0 {
		sess.ExpiresAt = now.Add(s.ttl)
	}
	if sess.Record == nil {
		sess.Record = models.Record{}
	}

	if token := strings.TrimSpace(resumeToken); token != "" {
		loaded, err := s.collaborator.LoadByToken(ctx, token)
		if err != nil {
			return nil, err
		}
		sess.Record = models.Merge(sess.Record, models.Record(loaded))
		sess.ResumeToken = token
		sess.Resumed = true
		s.revalidate(ctx, f, sess)
	}
	sess.Stage = f.First(sess.Record)

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start onboarding")
	}
	s.metrics.IncSessionStarted(f.Name, sess.Resumed)
	s.logger.InfoContext(ctx, "onboarding session started",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID,
		"flow", f.Name,
		"resumed", sess.Resumed,
	)
	s.emit(ctx, events.Event{
		Type:        events.TypeSessionStarted,
		Flow:        f.Name,
		SessionID:   sess.ID,
		ResumeToken: sess.ResumeToken,
		Attributes: map[string]any{
			"client_ip":  requestcontext.ClientIP(ctx),
			"user_agent": requestcontext.UserAgent(ctx),
		},
	})
	return newSnapshot(f, sess), nil
}

// Get returns the current snapshot of a session.
func (s *Service) Get(ctx context.Context, id string) (*Snapshot, error) {
	sess, f, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return newSnapshot(f, sess), nil
}

// UpdateField stores one answer. Keys of the form "deduction_profile.<key>"
// edit the nested deduction profile.
func (s *Service) UpdateField(ctx context.Context, id, field string, value any) (*Snapshot, error) {
	return s.mutate(ctx, id, func(f *flow.Flow, sess *models.Session) error {
		if err := editable(sess); err != nil {
			return err
		}
		if key, ok := strings.CutPrefix(field, models.DeductionProfileField+"."); ok {
			if key == "" {
				return dErrors.New(dErrors.CodeBadRequest, "deduction key is required")
			}
			if !scalar(value) {
				return dErrors.New(dErrors.CodeBadRequest, "deduction values must be text, numbers or booleans")
			}
			sess.Record = models.SetDeduction(sess.Record, key, value)
			return nil
		}
		if f.PaymentField != "" && (field == f.PaymentField || field == f.PaymentReferenceField) {
			return dErrors.New(dErrors.CodeBadRequest, "payment status is set by the payment provider")
		}
		if _, ok := f.Field(field); !ok {
			return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown field %q", field))
		}
		if !scalar(value) {
			return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unsupported value for %q", field))
		}

		sess.Record = models.SetField(sess.Record, field, value)
		for _, p := range f.Prefills {
			if p.From == field && sess.Record.Present(field) && !sess.Record.Present(p.To) {
				sess.Record = models.SetField(sess.Record, p.To, sess.Record[field])
			}
		}
		for _, rule := range f.CopyRules {
			if rule.Sources(field) && sess.ToggleOn(rule.Toggle, rule.Default) {
				sess.Record = models.ApplyCopy(sess.Record, rule)
			}
		}
		if kind, ok := f.ValidatorFor(field); ok {
			s.scheduleCheck(ctx, sess, field, kind)
		}
		return nil
	})
}

// SetToggle switches a copy rule such as "postal same as residential". Turning
// it on copies the sources immediately.
func (s *Service) SetToggle(ctx context.Context, id, toggle string, enabled bool) (*Snapshot, error) {
	return s.mutate(ctx, id, func(f *flow.Flow, sess *models.Session) error {
		if err := editable(sess); err != nil {
			return err
		}
		rule, ok := f.CopyRule(toggle)
		if !ok {
			return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown toggle %q", toggle))
		}
		if sess.Toggles == nil {
			sess.Toggles = map[string]bool{}
		}
		sess.Toggles[toggle] = enabled
		if enabled {
			sess.Record = models.ApplyCopy(sess.Record, rule)
		}
		return nil
	})
}

// Next advances to the next shown stage once the current one is complete.
func (s *Service) Next(ctx context.Context, id string) (*Snapshot, error) {
	return s.transition(ctx, id, "next", (*flow.Flow).GoNext)
}

// Back returns to the previous shown stage.
func (s *Service) Back(ctx context.Context, id string) (*Snapshot, error) {
	return s.transition(ctx, id, "back", (*flow.Flow).GoBack)
}

func (s *Service) transition(ctx context.Context, id, direction string, op func(*flow.Flow, *models.Session) error) (*Snapshot, error) {
	var flowName string
	snap, err := s.mutate(ctx, id, func(f *flow.Flow, sess *models.Session) error {
		flowName = f.Name
		return op(f, sess)
	})
	if flowName != "" {
		s.metrics.IncTransition(flowName, direction, outcome(err))
	}
	return snap, err
}

// mutate loads the session under its lock, applies fn and saves. The session
// is saved even when fn refuses, since a refusal records its message.
func (s *Service) mutate(ctx context.Context, id string, fn func(*flow.Flow, *models.Session) error) (*Snapshot, error) {
	var snap *Snapshot
	var opErr error
	err := s.locks.run(ctx, id, func() error {
		sess, f, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		opErr = fn(f, sess)
		if opErr == nil || isRefusal(opErr) {
			f.Reposition(sess)
			sess.UpdatedAt = s.clock()
			if err := s.store.Save(ctx, sess); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save onboarding session")
			}
		}
		snap = newSnapshot(f, sess)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, translate(opErr)
}

func (s *Service) load(ctx context.Context, id string) (*models.Session, *flow.Flow, error) {
	sess, err := s.store.FindByID(ctx, id)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, nil, dErrors.New(dErrors.CodeNotFound, "onboarding session not found")
	case errors.Is(err, sentinel.ErrExpired):
		return nil, nil, dErrors.New(dErrors.CodeNotFound, "onboarding session has expired, please start again")
	case err != nil:
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load onboarding session")
	}
	f, err := s.registry.Get(sess.Flow)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "session refers to an unknown flow")
	}
	return sess, f, nil
}

func (s *Service) emit(ctx context.Context, e events.Event) {
	if s.events == nil {
		return
	}
	e.RequestID = requestcontext.RequestID(ctx)
	e.OccurredAt = requestcontext.Now(ctx)
	if err := s.events.Emit(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "failed to publish onboarding event",
			"event_type", string(e.Type),
			"session_id", e.SessionID,
			"error", err,
		)
	}
}

// editable refuses edits once the record is frozen for submission.
func editable(sess *models.Session) error {
	if sess.Complete {
		return flow.ErrCompleted
	}
	if sess.Submitting {
		return flow.ErrSubmitInFlight
	}
	return nil
}

func scalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, float64, int:
		return true
	}
	return false
}

func isRefusal(err error) bool {
	var r *flow.Refusal
	return errors.As(err, &r)
}

// translate maps stage machine outcomes onto coded errors.
func translate(err error) error {
	var refusal *flow.Refusal
	switch {
	case err == nil:
		return nil
	case errors.As(err, &refusal):
		return dErrors.Wrap(err, dErrors.CodeValidation, refusal.Message)
	case errors.Is(err, flow.ErrSubmitInFlight):
		return dErrors.Wrap(err, dErrors.CodeConflict, "Submission already in progress")
	case errors.Is(err, flow.ErrCompleted):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, "Onboarding has already been submitted")
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "onboarding operation failed")
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case dErrors.HasCode(err, dErrors.CodeValidation):
		return "refused"
	default:
		return "blocked"
	}
}
