package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sink delivers events to their destination.
type Sink interface {
	Write(ctx context.Context, e Event) error
}

// Publisher stamps events and hands them to a sink. In async mode Emit only
// enqueues; a background worker writes and a full buffer drops the event.
type Publisher struct {
	sink   Sink
	logger *slog.Logger
	clock  func() time.Time

	inbox chan Event
	wg    sync.WaitGroup
	once  sync.Once

	// mu guards closed against sends racing Close.
	mu     sync.RWMutex
	closed bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer decouples Emit from the sink through a buffer of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.inbox = make(chan Event, n)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithClock(clock func() time.Time) Option {
	return func(p *Publisher) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:   sink,
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit publishes e. Errors are only returned in sync mode.
func (p *Publisher) Emit(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = p.clock()
	}
	if p.inbox == nil {
		return p.sink.Write(ctx, e)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.WarnContext(ctx, "publisher closed, dropping event",
			"event_type", e.Type,
			"event_id", e.ID,
		)
		return nil
	}
	select {
	case p.inbox <- e:
	default:
		p.logger.WarnContext(ctx, "event buffer full, dropping event",
			"event_type", e.Type,
			"event_id", e.ID,
		)
	}
	return nil
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for e := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := p.sink.Write(ctx, e); err != nil {
			p.logger.Error("failed to publish event",
				"event_type", e.Type,
				"event_id", e.ID,
				"error", err,
			)
		}
		cancel()
	}
}

// Close drains the buffer. Async events emitted afterwards are dropped.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox == nil {
			return
		}
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
		p.wg.Wait()
	})
}
