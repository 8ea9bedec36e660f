// internal/app/system/metrics/metrics.go

// Package metrics owns the Prometheus collectors for the access, audit, and
// registry sync paths. Every method is safe on a nil *Metrics so components
// can be constructed without instrumentation in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "researchos"

// Metrics holds a private registry plus the application collectors.
type Metrics struct {
	reg *prometheus.Registry

	accessDecisions *prometheus.CounterVec
	auditWrites     *prometheus.CounterVec
	fieldVersions   prometheus.Counter
	syncRuns        *prometheus.CounterVec
	syncDuration    *prometheus.HistogramVec
	syncRecords     *prometheus.CounterVec
	syncConflicts   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		accessDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "access",
			Name:      "decisions_total",
			Help:      "Access decisions by the rule that produced them.",
		}, []string{"rule"}),
		auditWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "writes_total",
			Help:      "Audit trail writes by target collection and result.",
		}, []string{"target", "result"}),
		fieldVersions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "field_versions_total",
			Help:      "Field versions written.",
		}),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "sync_runs_total",
			Help:      "Registry sync requests by source key and outcome.",
		}, []string{"key", "outcome"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "sync_duration_seconds",
			Help:      "Wall time of registry pulls that actually ran.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"key"}),
		syncRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "records_processed_total",
			Help:      "Registry records upserted into the mirror.",
		}, []string{"key"}),
		syncConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "record_conflicts_total",
			Help:      "Registry records skipped because a natural key collided.",
		}, []string{"key"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.accessDecisions,
		m.auditWrites,
		m.fieldVersions,
		m.syncRuns,
		m.syncDuration,
		m.syncRecords,
		m.syncConflicts,
		m.httpRequests,
	)
	return m
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// AccessDecision counts one resolver decision.
func (m *Metrics) AccessDecision(rule string) {
	if m == nil {
		return
	}
	m.accessDecisions.WithLabelValues(rule).Inc()
}

// AuditWrite counts one write to the audit_log or field_versions collection.
func (m *Metrics) AuditWrite(target string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.auditWrites.WithLabelValues(target, result).Inc()
}

// FieldVersionsWritten adds n stored field versions.
func (m *Metrics) FieldVersionsWritten(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.fieldVersions.Add(float64(n))
}

// SyncRun counts a sync request. d is observed only for runs that pulled.
func (m *Metrics) SyncRun(key, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(key, outcome).Inc()
	if d > 0 {
		m.syncDuration.WithLabelValues(key).Observe(d.Seconds())
	}
}

// SyncRecords adds processed and conflicting record counts for one page.
func (m *Metrics) SyncRecords(key string, processed, conflicts int) {
	if m == nil {
		return
	}
	if processed > 0 {
		m.syncRecords.WithLabelValues(key).Add(float64(processed))
	}
	if conflicts > 0 {
		m.syncConflicts.WithLabelValues(key).Add(float64(conflicts))
	}
}

// Middleware counts requests by method and response status.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.httpRequests.WithLabelValues(r.Method, strconv.Itoa(sw.code)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
