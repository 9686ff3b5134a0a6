package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.IncValidation("tfn", "valid")
	m.IncValidation("tfn", "valid")
	m.IncTransition("luna", "next", "refused")
	m.ObserveSubmit(time.Now())

	assert.InDelta(t, 2, testutil.ToFloat64(m.ValidationsTotal.WithLabelValues("tfn", "valid")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("luna", "next", "refused")), 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "fdctax_validations_total"))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncValidation("abn", "invalid")
		m.IncSubmission("luna", "success")
		m.ObserveHTTP(http.MethodGet, http.StatusOK, time.Now())
	})
}

func TestNewIsRepeatable(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = New()
		_ = New()
	})
}
