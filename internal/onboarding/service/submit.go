package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	clientmodels "fdctax/internal/clients/models"
	clientservice "fdctax/internal/clients/service"
	"fdctax/internal/events"
	"fdctax/internal/notify"
	"fdctax/internal/onboarding/flow"
	"fdctax/internal/onboarding/models"
	taskservice "fdctax/internal/tasks/service"
	dErrors "fdctax/pkg/domain-errors"
	"fdctax/pkg/requestcontext"
)

// Submit hands the frozen record to the collaborator. The session lock is not
// held during the call, so a concurrent Submit sees the in-flight state and is
// refused rather than queued. The resume token is fixed before the first
// attempt and reused by every retry, which makes the write idempotent.
func (s *Service) Submit(ctx context.Context, id string) (*Snapshot, error) {
	var (
		f      *flow.Flow
		frozen models.Record
		token  string
	)
	snap, err := s.mutate(ctx, id, func(fl *flow.Flow, sess *models.Session) error {
		f = fl
		s.recoverStaleSubmit(ctx, sess)
		if err := editable(sess); err != nil {
			return err
		}
		for _, rule := range fl.CopyRules {
			if sess.ToggleOn(rule.Toggle, rule.Default) {
				sess.Record = models.ApplyCopy(sess.Record, rule)
			}
		}
		if err := fl.BeginSubmit(sess); err != nil {
			return err
		}
		if sess.ResumeToken == "" {
			sess.ResumeToken = uuid.NewString()
		}
		frozen = sess.Record.Clone()
		token = sess.ResumeToken
		return nil
	})
	if err != nil {
		if f != nil {
			s.metrics.IncSubmission(f.Name, outcome(err))
		}
		return snap, err
	}

	// The write must finish even if the caller goes away, otherwise the
	// session would be left in flight.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.submitTimeout)
	defer cancel()
	res, submitErr := s.callCollaborator(callCtx, f, id, token, frozen)

	snap, err = s.mutate(callCtx, id, func(fl *flow.Flow, sess *models.Session) error {
		if submitErr != nil {
			fl.FailSubmit(sess, flow.MsgSubmissionFailed)
			return nil
		}
		fl.CompleteSubmit(sess, res.ID, res.ResumeToken)
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record submission outcome",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", id,
			"error", err,
		)
		return nil, err
	}

	if submitErr != nil {
		s.metrics.IncSubmission(f.Name, "failed")
		s.emit(ctx, events.Event{
			Type:        events.TypeSubmitFailed,
			Flow:        f.Name,
			SessionID:   id,
			ResumeToken: token,
			Attributes:  map[string]any{"error": submitErr.Error()},
		})
		return snap, dErrors.Wrap(submitErr, dErrors.CodeUnavailable, flow.MsgSubmissionFailed)
	}

	s.metrics.IncSubmission(f.Name, "submitted")
	s.logger.InfoContext(ctx, "onboarding submitted",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", id,
		"flow", f.Name,
		"client_id", res.ID,
	)
	s.afterSubmit(callCtx, f, id, res, frozen)
	return snap, nil
}

func (s *Service) callCollaborator(ctx context.Context, f *flow.Flow, sessionID, token string, record models.Record) (*clientmodels.SubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("onboarding.flow", f.Name),
		attribute.String("onboarding.session_id", sessionID),
	)

	start := time.Now()
	res, err := s.collaborator.Submit(ctx, clientservice.SubmitRequest{
		Flow:        f.Name,
		ResumeToken: token,
		Record:      record,
	})
	s.metrics.ObserveSubmit(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission failed")
		s.logger.ErrorContext(ctx, "submission collaborator failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sessionID,
			"flow", f.Name,
			"error", err,
		)
		return nil, err
	}
	span.SetAttributes(attribute.String("onboarding.client_id", res.ID))
	return res, nil
}

// afterSubmit runs the follow-ups of a successful submission. None of them can
// undo it; failures are logged.
func (s *Service) afterSubmit(ctx context.Context, f *flow.Flow, sessionID string, res *clientmodels.SubmitResult, record models.Record) {
	attrs := map[string]any{}
	if f.PaymentReferenceField != "" && record.Present(f.PaymentReferenceField) {
		attrs["payment_reference"] = record.Text(f.PaymentReferenceField)
	}
	s.emit(ctx, events.Event{
		Type:        events.TypeSubmitted,
		Flow:        f.Name,
		SessionID:   sessionID,
		ClientID:    res.ID,
		ResumeToken: res.ResumeToken,
		Attributes:  attrs,
	})

	if s.tasks != nil {
		task, err := s.tasks.CreateForSubmission(ctx, taskservice.Submission{Flow: f.Name, ClientID: res.ID, Record: record})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to create staff task", "client_id", res.ID, "error", err)
		} else if task != nil {
			s.logger.InfoContext(ctx, "staff task raised", "client_id", res.ID, "task_id", task.ID.String())
		}
	}

	if s.notifier != nil {
		s.notifier.NotifySubmitted(ctx, notify.Submission{
			Flow:        f.Name,
			ClientID:    res.ID,
			ResumeToken: res.ResumeToken,
			Record:      record,
		})
	}
}

// recoverStaleSubmit clears an in-flight marker left by a process that died
// mid-submission.
func (s *Service) recoverStaleSubmit(ctx context.Context, sess *models.Session) {
	if !sess.Submitting || s.clock().Sub(sess.UpdatedAt) < 2*s.submitTimeout {
		return
	}
	s.logger.WarnContext(ctx, "clearing stale in-flight submission", "session_id", sess.ID)
	sess.Submitting = false
}
