// internal/monitoring/metrics.go
package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus metrics for the download client. A nil *Metrics
// is valid and records nothing, so instrumentation stays optional.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestRetries  prometheus.Counter
	requestErrors   *prometheus.CounterVec
	bytesDownloaded prometheus.Counter
	rateLimitWaits  prometheus.Histogram
}

// NewMetrics registers download metrics with reg, falling back to the default
// registerer when reg is nil.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total HTTP requests issued, by method and status code",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		requestRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_retries_total",
			Help:      "Total retry attempts across all requests",
		}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_errors_total",
			Help:      "Terminal request failures, by kind",
		}, []string{"kind"}),
		bytesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloaded_bytes_total",
			Help:      "Total bytes streamed to disk",
		}),
		rateLimitWaits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rate_limit_wait_seconds",
			Help:      "Time spent waiting on the rate limiter",
			Buckets:   []float64{.001, .01, .05, .1, .5, 1, 5, 10},
		}),
	}
	reg.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.requestRetries,
		m.requestErrors,
		m.bytesDownloaded,
		m.rateLimitWaits,
	)
	return m
}

// ObserveRequest records one completed HTTP attempt.
func (m *Metrics) ObserveRequest(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveRetry records one retry attempt.
func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.requestRetries.Inc()
}

// ObserveError records a terminal failure of the given kind
// (transport, status, decode).
func (m *Metrics) ObserveError(kind string) {
	if m == nil {
		return
	}
	m.requestErrors.WithLabelValues(kind).Inc()
}

// AddBytes records bytes streamed to disk.
func (m *Metrics) AddBytes(n int64) {
	if m == nil {
		return
	}
	m.bytesDownloaded.Add(float64(n))
}

// ObserveRateLimitWait records time spent in the rate limiter.
func (m *Metrics) ObserveRateLimitWait(d time.Duration) {
	if m == nil {
		return
	}
	m.rateLimitWaits.Observe(d.Seconds())
}
