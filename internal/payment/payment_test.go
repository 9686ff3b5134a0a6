package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestDefaults(t *testing.T) {
	r := Request{}.withDefaults()
	assert.Equal(t, int64(9900), r.AmountCents)
	assert.Equal(t, "aud", r.Currency)
	assert.Equal(t, "ABN Registration Assistance", r.Description)

	r = Request{AmountCents: 500, Currency: "nzd"}.withDefaults()
	assert.Equal(t, int64(500), r.AmountCents)
	assert.Equal(t, "nzd", r.Currency)
}

func TestFakeProviderLifecycle(t *testing.T) {
	ctx := context.Background()
	p := NewFakeProvider(false)

	in, err := p.CreateIntent(ctx, Request{Email: "a@example.com"})
	require.NoError(t, err)
	assert.False(t, in.Succeeded())
	assert.NotEmpty(t, in.ClientSecret)

	got, err := p.Verify(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRequiresPaymentMethod, got.Status)

	require.True(t, p.Settle(in.ID))
	got, err = p.Verify(ctx, in.ID)
	require.NoError(t, err)
	assert.True(t, got.Succeeded())

	_, err = p.Verify(ctx, "pi_missing")
	assert.ErrorIs(t, err, ErrUnknownIntent)
}

func TestFakeProviderAutoSettle(t *testing.T) {
	p := NewFakeProvider(true)
	in, err := p.CreateIntent(context.Background(), Request{})
	require.NoError(t, err)
	assert.True(t, in.Succeeded())
}
