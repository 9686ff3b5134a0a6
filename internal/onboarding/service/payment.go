package service

import (
	"context"
	"errors"
	"strings"

	"fdctax/internal/events"
	"fdctax/internal/onboarding/flow"
	"fdctax/internal/onboarding/models"
	"fdctax/internal/payment"
	dErrors "fdctax/pkg/domain-errors"
)

// CreatePayment starts a card payment for a flow with a paid tier and stores
// the intent reference on the record.
func (s *Service) CreatePayment(ctx context.Context, id string) (*Snapshot, *payment.Intent, error) {
	var intent *payment.Intent
	snap, err := s.mutate(ctx, id, func(f *flow.Flow, sess *models.Session) error {
		if err := s.payable(f, sess); err != nil {
			return err
		}
		in, err := s.payments.CreateIntent(ctx, payment.Request{
			AmountCents: s.paymentAmount,
			Currency:    s.currency,
			Email:       sess.Record.Text("email"),
			Metadata: map[string]string{
				"session_id": sess.ID,
				"flow":       f.Name,
			},
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to create payment intent", "session_id", sess.ID, "error", err)
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "Could not start the payment, please try again")
		}
		sess.Record = models.SetField(sess.Record, f.PaymentReferenceField, in.ID)
		intent = in
		return nil
	})
	if err != nil {
		return snap, nil, err
	}
	return snap, intent, nil
}

// ConfirmPayment verifies the stored intent with the provider and marks the
// record paid once the charge has settled.
func (s *Service) ConfirmPayment(ctx context.Context, id, intentID string) (*Snapshot, error) {
	var settled bool
	var flowName, reference string
	snap, err := s.mutate(ctx, id, func(f *flow.Flow, sess *models.Session) error {
		flowName = f.Name
		if err := s.payable(f, sess); err != nil {
			return err
		}
		stored := sess.Record.Text(f.PaymentReferenceField)
		if stored == "" {
			return dErrors.New(dErrors.CodeInvalidState, "No payment has been started")
		}
		if intentID = strings.TrimSpace(intentID); intentID != "" && intentID != stored {
			return dErrors.New(dErrors.CodeBadRequest, "payment does not belong to this session")
		}

		in, err := s.payments.Verify(ctx, stored)
		if err != nil {
			if errors.Is(err, payment.ErrUnknownIntent) {
				return dErrors.Wrap(err, dErrors.CodeNotFound, "payment not found")
			}
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "Could not confirm the payment, please try again")
		}
		if !in.Succeeded() {
			sess.Error = "Please complete payment"
			return &flow.Refusal{Message: sess.Error}
		}
		sess.Record = models.SetField(sess.Record, f.PaymentField, true)
		sess.Error = ""
		settled = true
		reference = stored
		return nil
	})
	if settled {
		s.emit(ctx, events.Event{
			Type:       events.TypePaymentSettled,
			Flow:       flowName,
			SessionID:  id,
			Attributes: map[string]any{"payment_reference": reference},
		})
	}
	return snap, err
}

func (s *Service) payable(f *flow.Flow, sess *models.Session) error {
	if err := editable(sess); err != nil {
		return err
	}
	if f.PaymentField == "" {
		return dErrors.New(dErrors.CodeBadRequest, "this onboarding does not take payments")
	}
	if f.PaymentRequired != nil && !f.PaymentRequired(sess.Record) {
		return dErrors.New(dErrors.CodeInvalidState, "Payment is only needed for the assisted option")
	}
	if sess.Record.Truthy(f.PaymentField) {
		return dErrors.New(dErrors.CodeInvalidState, "Payment already completed")
	}
	if s.payments == nil {
		return dErrors.New(dErrors.CodeUnavailable, "Payments are not available right now")
	}
	return nil
}
