package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// FakeProvider records intents in memory. Intents are created pending and
// settle through Settle, or immediately when AutoSettle is set.
type FakeProvider struct {
	mu         sync.Mutex
	intents    map[string]*Intent
	AutoSettle bool
}

func NewFakeProvider(autoSettle bool) *FakeProvider {
	return &FakeProvider{intents: make(map[string]*Intent), AutoSettle: autoSettle}
}

func (p *FakeProvider) CreateIntent(ctx context.Context, req Request) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req = req.withDefaults()
	id := "pi_fake_" + uuid.NewString()
	in := &Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       StatusRequiresPaymentMethod,
		AmountCents:  req.AmountCents,
		Currency:     req.Currency,
	}
	if p.AutoSettle {
		in.Status = StatusSucceeded
	}
	p.mu.Lock()
	p.intents[id] = in
	p.mu.Unlock()
	out := *in
	return &out, nil
}

func (p *FakeProvider) Verify(_ context.Context, intentID string) (*Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in, ok := p.intents[intentID]
	if !ok {
		return nil, ErrUnknownIntent
	}
	out := *in
	return &out, nil
}

// Settle marks an intent as paid.
func (p *FakeProvider) Settle(intentID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	in, ok := p.intents[intentID]
	if ok {
		in.Status = StatusSucceeded
	}
	return ok
}
