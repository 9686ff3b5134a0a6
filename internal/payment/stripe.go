package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"

	"fdctax/pkg/platform/sentinel"
)

// StripeProvider charges cards through Stripe payment intents.
type StripeProvider struct {
	client *paymentintent.Client
	logger *slog.Logger
}

// NewStripeProvider builds a provider using the secret API key.
func NewStripeProvider(secretKey string, logger *slog.Logger) *StripeProvider {
	return &StripeProvider{
		client: &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
		logger: logger,
	}
}

func (p *StripeProvider) CreateIntent(ctx context.Context, req Request) (*Intent, error) {
	req = req.withDefaults()
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.AmountCents),
		Currency:    stripe.String(req.Currency),
		Description: stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	pi, err := p.client.New(params)
	if err != nil {
		p.logger.ErrorContext(ctx, "stripe create payment intent failed", "error", err)
		return nil, fmt.Errorf("create payment intent: %w: %w", sentinel.ErrUnavailable, err)
	}
	return fromStripe(pi), nil
}

func (p *StripeProvider) Verify(ctx context.Context, intentID string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := p.client.Get(intentID, params)
	if err != nil {
		if se, ok := err.(*stripe.Error); ok && se.HTTPStatusCode == 404 {
			return nil, ErrUnknownIntent
		}
		return nil, fmt.Errorf("retrieve payment intent: %w: %w", sentinel.ErrUnavailable, err)
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
	}
}
