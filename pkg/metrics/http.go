package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records request counts and latency per route.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewHTTPMetrics registers the HTTP metrics on the provided registerer.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route, and status.",
	}, []string{"method", "route", "status"})
	reg.MustRegister(duration, requests)
	return &HTTPMetrics{
		duration: duration,
		requests: requests,
	}
}

// ObserveRequest records one completed request.
func (h *HTTPMetrics) ObserveRequest(method, route, status string, elapsed time.Duration) {
	if h == nil {
		return
	}
	if h.duration != nil {
		h.duration.WithLabelValues(normalizeLabel(method), normalizeLabel(route)).Observe(elapsed.Seconds())
	}
	if h.requests != nil {
		h.requests.WithLabelValues(normalizeLabel(method), normalizeLabel(route), status).Inc()
	}
}

// BillingMetrics counts billing engine activity.
type BillingMetrics struct {
	quotes       prometheus.Counter
	attributions *prometheus.CounterVec
}

// NewBillingMetrics registers the billing counters on the provided registerer.
func NewBillingMetrics(reg prometheus.Registerer) *BillingMetrics {
	if reg == nil {
		return &BillingMetrics{}
	}
	quotes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "billing_quotes_computed_total",
		Help: "Quotes computed, including previews.",
	})
	attributions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_attribution_sets_total",
		Help: "Attribution sets committed, by policy.",
	}, []string{"policy"})
	reg.MustRegister(quotes, attributions)
	return &BillingMetrics{
		quotes:       quotes,
		attributions: attributions,
	}
}

// IncQuote counts one quote computation.
func (b *BillingMetrics) IncQuote() {
	if b == nil || b.quotes == nil {
		return
	}
	b.quotes.Inc()
}

// IncAttributionSet counts one committed attribution set for the named policy.
func (b *BillingMetrics) IncAttributionSet(policy string) {
	if b == nil || b.attributions == nil {
		return
	}
	b.attributions.WithLabelValues(normalizeLabel(policy)).Inc()
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
