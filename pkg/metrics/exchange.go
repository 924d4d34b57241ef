package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ExchangeMetrics records counters and timings for exchange processing.
type ExchangeMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewExchangeMetrics registers the exchange metrics on the provided registerer.
func NewExchangeMetrics(reg prometheus.Registerer) *ExchangeMetrics {
	if reg == nil {
		return &ExchangeMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "exchange_duration_seconds",
		Help:    "Duration of exchange transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"settlement"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exchange_success",
		Help: "Completed exchange transactions by settlement kind.",
	}, []string{"settlement"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exchange_failure",
		Help: "Failed exchange transactions by error code.",
	}, []string{"code"})
	reg.MustRegister(duration, success, failure)
	return &ExchangeMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the given settlement kind.
func (m *ExchangeMetrics) ObserveDuration(settlement string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(settlement)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the given settlement kind.
func (m *ExchangeMetrics) IncSuccess(settlement string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(settlement)).Inc()
}

// IncFailure increments the failure counter for the given error code.
func (m *ExchangeMetrics) IncFailure(code string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(code)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
