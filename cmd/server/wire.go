package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	clienthandler "fdctax/internal/clients/handler"
	clientservice "fdctax/internal/clients/service"
	clientstore "fdctax/internal/clients/store"
	"fdctax/internal/events"
	"fdctax/internal/notify"
	"fdctax/internal/onboarding/flow"
	onboardinghandler "fdctax/internal/onboarding/handler"
	onboardingservice "fdctax/internal/onboarding/service"
	onboardingstore "fdctax/internal/onboarding/store"
	"fdctax/internal/payment"
	"fdctax/internal/platform/config"
	"fdctax/internal/platform/metrics"
	"fdctax/internal/platform/middleware"
	"fdctax/internal/platform/postgres"
	platformredis "fdctax/internal/platform/redis"
	"fdctax/internal/rag"
	taskhandler "fdctax/internal/tasks/handler"
	taskservice "fdctax/internal/tasks/service"
	taskstore "fdctax/internal/tasks/store"
	httptransport "fdctax/internal/transport/http"
	"fdctax/internal/validation"
	validationhandler "fdctax/internal/validation/handler"
	"fdctax/internal/validation/remote"
	"fdctax/pkg/platform/circuit"
	"fdctax/pkg/secrets"
)

const project = "FDC Tax"

// app holds the router and everything that must be released on shutdown.
type app struct {
	router  http.Handler
	closers []func()
	once    sync.Once
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	a.once.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			a.closers[i]()
		}
	})
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.close()
		return nil, err
	}
	m := metrics.New()
	checks := map[string]httptransport.CheckFunc{}

	cipher, err := secrets.NewCipher(cfg.Onboarding.EncryptionKey)
	if err != nil {
		return fail(fmt.Errorf("encryption key: %w", err))
	}

	var (
		clients clientservice.ClientStore = clientstore.NewInMemoryClientStore()
		tasks   taskservice.Store         = taskstore.NewInMemoryTaskStore()
	)
	pool, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return fail(err)
	}
	if pool != nil {
		a.closers = append(a.closers, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			return fail(err)
		}
		checks["postgres"] = pool.Ping
		clients = clientstore.NewPostgresClientStore(pool)
		tasks = taskstore.NewPostgresTaskStore(pool)
		log.Info("client records stored in postgres")
	} else {
		log.Warn("DATABASE_URL not set, client records are kept in memory")
	}

	var sessions onboardingservice.Store = onboardingstore.NewInMemorySessionStore()
	rdb, err := platformredis.Open(ctx, cfg.Redis)
	if err != nil {
		return fail(err)
	}
	if rdb != nil {
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		checks["redis"] = platformredis.Ping(rdb)
		sessions = onboardingstore.NewRedisSessionStore(rdb)
		log.Info("wizard sessions stored in redis")
	}

	var sink events.Sink = events.NewLogSink(log)
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, kafka.Close)
		checks["kafka"] = kafka.Ping
		sink = kafka
		log.Info("publishing onboarding events to kafka", "topic", cfg.Kafka.Topic)
	}
	publisher := events.NewPublisher(sink, events.WithAsyncBuffer(256), events.WithLogger(log))
	a.closers = append(a.closers, publisher.Close)

	var payments payment.Provider
	if cfg.Stripe.SecretKey != "" {
		payments = payment.NewStripeProvider(cfg.Stripe.SecretKey, log)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, payments settle immediately")
		payments = payment.NewFakeProvider(true)
	}

	var mailer notify.Mailer = notify.NewLogMailer(log)
	if cfg.Resend.APIKey != "" {
		mailer = notify.NewResendMailer(cfg.Resend.APIKey)
	}
	notifier := notify.New(mailer, notify.Config{
		FromEmail:  cfg.Resend.FromEmail,
		FromName:   cfg.Resend.FromName,
		AdminEmail: cfg.Resend.AdminEmail,
		BaseURL:    cfg.Server.BaseURL,
	}, notify.WithLogger(log), notify.WithMetrics(m))

	local := validation.NewLocalChecker(m)
	var checker validation.Checker = local
	if cfg.Onboarding.ValidationURL != "" {
		checker = validation.NewFallbackChecker(
			remote.New(cfg.Onboarding.ValidationURL),
			local,
			circuit.New("validation"),
			log,
		)
	}

	clientSvc := clientservice.New(clients, cipher, clientservice.WithLogger(log))
	taskSvc := taskservice.New(tasks, taskservice.WithLogger(log))
	onboarding := onboardingservice.New(flow.DefaultRegistry(), sessions, checker, clientSvc,
		onboardingservice.WithLogger(log),
		onboardingservice.WithMetrics(m),
		onboardingservice.WithDebounce(cfg.Onboarding.ValidationDebounce),
		onboardingservice.WithSessionTTL(cfg.Onboarding.SessionTTL),
		onboardingservice.WithPayments(payments, cfg.Stripe.AmountCents, cfg.Stripe.Currency),
		onboardingservice.WithNotifier(notifier),
		onboardingservice.WithTasks(taskSvc),
		onboardingservice.WithEvents(publisher),
	)
	a.closers = append(a.closers, onboarding.Close)

	proxy, err := rag.New(cfg.RAG.UpstreamURL, cfg.RAG.Timeout, log)
	if err != nil {
		return fail(err)
	}

	var limiter *middleware.IPRateLimiter
	if cfg.RateLimit.ValidationPerSecond > 0 {
		limiter = middleware.NewIPRateLimiter(cfg.RateLimit.ValidationPerSecond, cfg.RateLimit.ValidationBurst)
	}

	a.router = httptransport.NewRouter(httptransport.Config{
		Environment: cfg.Server.Environment,
		Project:     project,
		Logger:      log,
		Metrics:     m,
		Checks:      checks,
	},
		validationhandler.New(checker, log, limiter),
		onboardinghandler.New(onboarding, log),
		clienthandler.New(clientSvc, log, cfg.Server.AdminToken),
		taskhandler.New(taskSvc, log, cfg.Server.AdminToken),
		proxy,
	)
	return a, nil
}
