package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hirebridge_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hirebridge_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	authorizationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hirebridge_authorization_decisions_total",
		Help: "Access gate decisions by capability and result",
	}, []string{"capability", "result"})

	introductionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hirebridge_introduction_transitions_total",
		Help: "Introduction request state transitions by target state and result",
	}, []string{"state", "result"})

	introductionCreateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hirebridge_introduction_create_duration_seconds",
		Help:    "Duration of introduction request creation attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	creditAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hirebridge_credit_adjustments_total",
		Help: "Introduction credit movements by reason",
	}, []string{"reason"})

	sweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hirebridge_expiry_sweeps_total",
		Help: "Count of expiry sweeps by source and result",
	}, []string{"source", "result"})

	sweepExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hirebridge_expiry_sweep_expired_total",
		Help: "Pending introduction requests expired by the sweeper",
	})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hirebridge_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"backend"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hirebridge_reference_cache_lookups_total",
		Help: "Reference data cache lookups by result",
	}, []string{"result"})

	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hirebridge_circuit_breaker_state",
		Help: "Circuit breaker state by name (0 closed, 1 open, 2 half-open)",
	}, []string{"name"})

	eventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hirebridge_event_subscribers",
		Help: "Number of connected introduction event subscribers",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAuthorization counts an access gate decision
func ObserveAuthorization(capability, result string) {
	authorizationDecisions.WithLabelValues(capability, result).Inc()
}

// ObserveTransition counts an attempted state transition
func ObserveTransition(state, result string) {
	introductionTransitions.WithLabelValues(state, result).Inc()
}

// ObserveCreate records the duration of an introduction request creation with a result label.
func ObserveCreate(result string, duration time.Duration) {
	introductionCreateDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveCredits counts credits moved for reason. Negative amounts are debits.
func ObserveCredits(reason string, amount int) {
	if amount < 0 {
		amount = -amount
	}
	creditAdjustments.WithLabelValues(reason).Add(float64(amount))
}

// ObserveSweep increments the sweep counter for the given source and result.
func ObserveSweep(source, result string, expired int) {
	sweepRuns.WithLabelValues(source, result).Inc()
	if expired > 0 {
		sweepExpired.Add(float64(expired))
	}
}

// ObserveRateLimited counts a rejected request
func ObserveRateLimited(backend string) {
	rateLimited.WithLabelValues(backend).Inc()
}

// ObserveCacheLookup counts a reference cache hit or miss
func ObserveCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

// SetBreakerState records the current state of a named circuit breaker
func SetBreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}

// SubscriberConnected increments the event subscriber gauge.
func SubscriberConnected() {
	eventSubscribers.Inc()
}

// SubscriberDisconnected decrements the event subscriber gauge.
func SubscriberDisconnected() {
	eventSubscribers.Dec()
}
