package telemetry

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SyncMetrics exports sync outcomes as Prometheus series
type SyncMetrics struct {
	runs        *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	processed   *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
}

// HTTPMetrics exports request counts and latencies
type HTTPMetrics struct {
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

var (
	defaultOnce sync.Once
	defaultSync *SyncMetrics
	defaultHTTP *HTTPMetrics
)

// Default returns the collectors registered on the global registry
func Default(namespace string) (*SyncMetrics, *HTTPMetrics) {
	defaultOnce.Do(func() {
		defaultSync = NewSyncMetrics(prometheus.DefaultRegisterer, namespace)
		defaultHTTP = NewHTTPMetrics(prometheus.DefaultRegisterer, namespace)
	})
	return defaultSync, defaultHTTP
}

// NewSyncMetrics registers the sync collectors on reg
func NewSyncMetrics(reg prometheus.Registerer, namespace string) *SyncMetrics {
	factory := promauto.With(reg)
	return &SyncMetrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Finished sync runs, labeled by mode and result",
		}, []string{"mode", "status"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Duration of sync runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"mode"}),
		processed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "records_total",
			Help:      "Records written by sync runs, labeled by entity",
		}, []string{"entity"}),
		lastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the latest successful sync run",
		}, []string{"mode"}),
	}
}

// RecordSync records one finished run
func (m *SyncMetrics) RecordSync(mode string, success bool, duration time.Duration, agents, tickets, metrics int) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.runs.WithLabelValues(mode, status).Inc()
	m.durations.WithLabelValues(mode).Observe(duration.Seconds())
	m.processed.WithLabelValues("agents").Add(float64(agents))
	m.processed.WithLabelValues("tickets").Add(float64(tickets))
	m.processed.WithLabelValues("metrics").Add(float64(metrics))
	if success {
		m.lastSuccess.WithLabelValues(mode).SetToCurrentTime()
	}
}

// NewHTTPMetrics registers the HTTP collectors on reg
func NewHTTPMetrics(reg prometheus.Registerer, namespace string) *HTTPMetrics {
	factory := promauto.With(reg)
	return &HTTPMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, labeled by method, route and status code",
		}, []string{"method", "route", "code"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latencies",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordRequest records one served request
func (m *HTTPMetrics) RecordRequest(method, route string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.durations.WithLabelValues(method, route).Observe(duration.Seconds())
}
