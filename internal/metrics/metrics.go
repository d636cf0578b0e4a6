// Package metrics exposes Prometheus instrumentation. A nil *Metrics is valid
// and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/price-intel/constants"
)

const namespace = "priceintel"

type Metrics struct {
	documents       *prometheus.CounterVec
	documentSeconds *prometheus.HistogramVec
	rebuilds        *prometheus.CounterVec
	rebuildSeconds  prometheus.Histogram
	indexEntries    prometheus.Gauge
	decisions       *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpSeconds     *prometheus.HistogramVec
}

// New registers every collector on reg. A nil registerer yields a no-op value.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Processed documents by format and outcome.",
		}, []string{"format", "outcome"}),
		documentSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_duration_seconds",
			Help:      "Time from upload to outcome per document.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"format"}),
		rebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_rebuilds_total",
			Help:      "Market index rebuilds by result.",
		}, []string{"result"}),
		rebuildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_rebuild_duration_seconds",
			Help:      "Duration of market index rebuilds.",
			Buckets:   prometheus.DefBuckets,
		}),
		indexEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_entries",
			Help:      "Entries in the currently published market index.",
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposal_decisions_total",
			Help:      "Applied proposal decisions.",
		}, []string{"decision"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.documents, m.documentSeconds, m.rebuilds, m.rebuildSeconds,
		m.indexEntries, m.decisions, m.httpRequests, m.httpSeconds)
	return m
}

// ObserveDocument implements ingest.Observer.
func (m *Metrics) ObserveDocument(format string, outcome constants.Outcome, d time.Duration) {
	if m == nil || m.documents == nil {
		return
	}
	format = normalizeLabel(format)
	m.documents.WithLabelValues(format, string(outcome)).Inc()
	if d > 0 {
		m.documentSeconds.WithLabelValues(format).Observe(d.Seconds())
	}
}

// ObserveRebuild implements pricing.RebuildObserver.
func (m *Metrics) ObserveRebuild(d time.Duration, entries int, err error) {
	if m == nil || m.rebuilds == nil {
		return
	}
	m.rebuildSeconds.Observe(d.Seconds())
	if err != nil {
		m.rebuilds.WithLabelValues("error").Inc()
		return
	}
	m.rebuilds.WithLabelValues("ok").Inc()
	m.indexEntries.Set(float64(entries))
}

func (m *Metrics) ObserveDecision(decision constants.Decision) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(string(decision)).Inc()
}

// Middleware records request counts and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil || m.httpRequests == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpSeconds.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
