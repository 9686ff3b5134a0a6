// Package payment collects the fee for the paid ABN registration tier.
package payment

import (
	"context"
	"errors"
)

// Status values mirror the card processor's payment intent lifecycle.
const (
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusProcessing            = "processing"
	StatusSucceeded             = "succeeded"
	StatusCanceled              = "canceled"
)

// Defaults for the ABN registration assistance fee.
const (
	DefaultAmountCents = 9900
	DefaultCurrency    = "aud"
	DefaultDescription = "ABN Registration Assistance"
)

// ErrUnknownIntent is returned when an intent reference is not recognised.
var ErrUnknownIntent = errors.New("unknown payment intent")

// Request describes a charge to be created.
type Request struct {
	AmountCents int64
	Currency    string
	Description string
	Email       string
	Metadata    map[string]string
}

// Intent is a provider-side payment the browser completes with ClientSecret.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret,omitempty"`
	Status       string `json:"status"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
}

// Succeeded reports whether the charge has settled.
func (i *Intent) Succeeded() bool {
	return i != nil && i.Status == StatusSucceeded
}

// Provider creates and verifies payment intents.
type Provider interface {
	CreateIntent(ctx context.Context, req Request) (*Intent, error)
	Verify(ctx context.Context, intentID string) (*Intent, error)
}

// withDefaults fills the fee fields left empty by the caller.
func (r Request) withDefaults() Request {
	if r.AmountCents <= 0 {
		r.AmountCents = DefaultAmountCents
	}
	if r.Currency == "" {
		r.Currency = DefaultCurrency
	}
	if r.Description == "" {
		r.Description = DefaultDescription
	}
	return r
}
