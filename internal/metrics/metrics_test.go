package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/price-intel/constants"
)

func TestMetrics_Observers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveDocument("PDF", constants.OutcomeOK, 250*time.Millisecond)
	m.ObserveDocument("", constants.OutcomeValidationFailed, 0)
	m.ObserveRebuild(time.Second, 42, nil)
	m.ObserveRebuild(time.Second, 0, errors.New("db down"))
	m.ObserveDecision(constants.DecisionApprove)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.documents.WithLabelValues("PDF", "validated-ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.documents.WithLabelValues("unknown", "validation-failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rebuilds.WithLabelValues("error")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.indexEntries), "failed rebuild keeps the last size")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("approve")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDocument("PDF", constants.OutcomeOK, time.Second)
		m.ObserveRebuild(time.Second, 1, nil)
		m.ObserveDecision(constants.DecisionReject)
	})
	h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	assert.NotNil(t, m.Middleware(h))
	assert.NotPanics(t, func() { New(nil).ObserveRebuild(0, 0, nil) })
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/proposals/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })
	r.Handle("/metrics", Handler(reg))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/proposals/abc", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/v1/proposals/{id}", "404")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "priceintel_http_requests_total"))
}
