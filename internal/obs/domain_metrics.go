package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DiscountMetrics holds the collectors describing discount computations.
type DiscountMetrics struct {
	// ComputeTotal counts computations by result (ok, or the error code).
	ComputeTotal *prometheus.CounterVec
	// AppliedTotal counts discounts applied by source and mechanism.
	AppliedTotal *prometheus.CounterVec
	// Amount observes the money each mechanism took off a cart.
	Amount *prometheus.HistogramVec
	// QuoteCacheTotal counts quote cache lookups by outcome.
	QuoteCacheTotal *prometheus.CounterVec
	// BreakerState mirrors circuit breaker state per target: 0=closed, 1=open, 2=half-open.
	BreakerState *prometheus.GaugeVec
	// BreakerTransitions counts breaker state changes.
	BreakerTransitions *prometheus.CounterVec
}

// NewDiscountMetrics registers the discount collectors on reg, defaulting to
// the global registerer.
func NewDiscountMetrics(namespace string, reg prometheus.Registerer) *DiscountMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &DiscountMetrics{
		ComputeTotal: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_compute_total",
			Help:      "Count of discount computations by result.",
		}, []string{"result"})),
		AppliedTotal: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_applied_total",
			Help:      "Count of discounts applied by source and mechanism.",
		}, []string{"source", "mechanism"})),
		Amount: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discount_amount",
			Help:      "Money taken off a cart by one discount mechanism.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}, []string{"mechanism"})),
		QuoteCacheTotal: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_cache_total",
			Help:      "Quote cache lookups by outcome.",
		}, []string{"result"})),
		BreakerState: register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Current breaker state: 0=closed,1=open,2=half-open",
		}, []string{"target"})),
		BreakerTransitions: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transition_total",
			Help:      "Count of breaker state transitions",
		}, []string{"target", "from", "to"})),
	}
}
