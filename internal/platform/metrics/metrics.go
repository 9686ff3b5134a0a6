package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// Every method is safe to call on a nil receiver so services can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	ValidationsTotal  *prometheus.CounterVec
	TransitionsTotal  *prometheus.CounterVec
	SubmissionsTotal  *prometheus.CounterVec
	SubmitDuration    prometheus.Histogram
	SessionsStarted   *prometheus.CounterVec
	HTTPLatency       *prometheus.HistogramVec
	NotificationsSent *prometheus.CounterVec
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ValidationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fdctax_validations_total",
			Help: "TFN/ABN checks by kind and outcome (valid, invalid, error)",
		}, []string{"kind", "outcome"}),
		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fdctax_stage_transitions_total",
			Help: "Wizard navigation attempts by flow, direction and outcome",
		}, []string{"flow", "direction", "outcome"}),
		SubmissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fdctax_submissions_total",
			Help: "Onboarding submissions by flow and outcome",
		}, []string{"flow", "outcome"}),
		SubmitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fdctax_submit_duration_seconds",
			Help:    "Duration of the submission collaborator call",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		SessionsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fdctax_sessions_started_total",
			Help: "Wizard sessions started by flow and whether they resumed a prior record",
		}, []string{"flow", "resumed"}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fdctax_http_request_duration_seconds",
			Help:    "HTTP request latency by method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fdctax_notifications_total",
			Help: "Outbound emails by template and outcome",
		}, []string{"template", "outcome"}),
	}
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncValidation records a validator outcome.
func (m *Metrics) IncValidation(kind, outcome string) {
	if m == nil {
		return
	}
	m.ValidationsTotal.WithLabelValues(kind, outcome).Inc()
}

// IncTransition records a navigation attempt.
func (m *Metrics) IncTransition(flow, direction, outcome string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(flow, direction, outcome).Inc()
}

// IncSubmission records a submission outcome.
func (m *Metrics) IncSubmission(flow, outcome string) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(flow, outcome).Inc()
}

// ObserveSubmit records the duration of a submission call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSubmit(start time.Time) {
	if m == nil {
		return
	}
	m.SubmitDuration.Observe(time.Since(start).Seconds())
}

// IncSessionStarted records a new wizard session.
func (m *Metrics) IncSessionStarted(flow string, resumed bool) {
	if m == nil {
		return
	}
	m.SessionsStarted.WithLabelValues(flow, strconv.FormatBool(resumed)).Inc()
}

// ObserveHTTP records request latency.
func (m *Metrics) ObserveHTTP(method string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPLatency.WithLabelValues(method, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}

// IncNotification records an email send attempt.
func (m *Metrics) IncNotification(template, outcome string) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(template, outcome).Inc()
}
