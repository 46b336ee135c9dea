package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics records pricing, promo and configuration signals.
type StorefrontMetrics struct {
	strategies      *prometheus.CounterVec
	promoOutcomes   *prometheus.CounterVec
	promoDuration   *prometheus.HistogramVec
	configFallbacks *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewStorefrontMetrics registers the storefront metrics on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	strategies := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_strategy_resolutions_total",
		Help: "Price resolutions by effective strategy.",
	}, []string{"strategy"})
	promoOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "promo_validations_total",
		Help: "Promo code validations by outcome.",
	}, []string{"outcome"})
	promoDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "promo_validation_duration_seconds",
		Help:    "Duration of promo code validations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	configFallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "config_fallbacks_total",
		Help: "Configuration reads that fell back to defaults.",
	}, []string{"table", "reason"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	reg.MustRegister(strategies, promoOutcomes, promoDuration, configFallbacks, requests, requestDuration)
	return &StorefrontMetrics{
		strategies:      strategies,
		promoOutcomes:   promoOutcomes,
		promoDuration:   promoDuration,
		configFallbacks: configFallbacks,
		requests:        requests,
		requestDuration: requestDuration,
	}
}

// IncStrategy counts one resolution for the named pricing strategy.
func (m *StorefrontMetrics) IncStrategy(strategy string) {
	if m == nil || m.strategies == nil {
		return
	}
	m.strategies.WithLabelValues(normalizeLabel(strategy)).Inc()
}

// ObservePromoValidation records a promo validation outcome and its latency.
func (m *StorefrontMetrics) ObservePromoValidation(outcome string, duration time.Duration) {
	if m == nil || m.promoOutcomes == nil {
		return
	}
	label := normalizeLabel(outcome)
	m.promoOutcomes.WithLabelValues(label).Inc()
	m.promoDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// IncConfigFallback counts a configuration table served from defaults.
func (m *StorefrontMetrics) IncConfigFallback(table, reason string) {
	if m == nil || m.configFallbacks == nil {
		return
	}
	m.configFallbacks.WithLabelValues(normalizeLabel(table), normalizeLabel(reason)).Inc()
}

// ObserveRequest records one HTTP request. route is the router pattern, never
// the raw path, to keep label cardinality bounded.
func (m *StorefrontMetrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	route = normalizeLabel(route)
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
