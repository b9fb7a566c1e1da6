package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Verification outcome labels. unknown_otp covers attempts that matched no
// file record at all; those are counted here but never audited.
const (
	VerifyOutcomeGranted    = "granted"
	VerifyOutcomeUnknownOTP = "unknown_otp"
	VerifyOutcomeExpired    = "expired"
	VerifyOutcomeConsumed   = "consumed"
	VerifyOutcomeDeleted    = "deleted"
	VerifyOutcomeForbidden  = "forbidden"
	VerifyOutcomeBadGrant   = "bad_grant"
)

// MetricsService encapsulates Prometheus instrumentation for the access and
// audit pipelines.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	verifyTotal     *prometheus.CounterVec
	geoLookupTotal  *prometheus.CounterVec
	auditDropped    prometheus.Counter
	auditFailed     prometheus.Counter
	printJobTotal   *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	verifyTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_verify_total",
		Help: "Access verification attempts by outcome",
	}, []string{"outcome"})

	geoLookupTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geo_lookup_total",
		Help: "Geolocation resolutions by result",
	}, []string{"result"})

	auditDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_events_dropped_total",
		Help: "Audit events dropped because the queue was full",
	})

	auditFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_events_failed_total",
		Help: "Audit events that could not be enqueued",
	})

	printJobTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "print_jobs_total",
		Help: "Print job submissions by status",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, verifyTotal, geoLookupTotal, auditDropped, auditFailed, printJobTotal, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		verifyTotal:     verifyTotal,
		geoLookupTotal:  geoLookupTotal,
		auditDropped:    auditDropped,
		auditFailed:     auditFailed,
		printJobTotal:   printJobTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordVerify counts a verification attempt by outcome.
func (m *MetricsService) RecordVerify(outcome string) {
	if m == nil {
		return
	}
	m.verifyTotal.WithLabelValues(outcome).Inc()
}

// RecordGeoLookup counts a geolocation resolution by result
// (local, cached, resolved, degraded).
func (m *MetricsService) RecordGeoLookup(result string) {
	if m == nil {
		return
	}
	m.geoLookupTotal.WithLabelValues(result).Inc()
}

// RecordAuditDrop counts an audit event rejected by a full queue.
func (m *MetricsService) RecordAuditDrop() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}

// RecordAuditFailure counts an audit event that failed to enqueue for any
// other reason.
func (m *MetricsService) RecordAuditFailure() {
	if m == nil {
		return
	}
	m.auditFailed.Inc()
}

// RecordPrintJob counts a print submission by status (accepted, rejected).
func (m *MetricsService) RecordPrintJob(status string) {
	if m == nil {
		return
	}
	m.printJobTotal.WithLabelValues(status).Inc()
}
