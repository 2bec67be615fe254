package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CalculationsTotal counts calculations by query kind and outcome code.
	CalculationsTotal *prometheus.CounterVec
	// CalculationCacheTotal counts result cache lookups by outcome (hit, miss, error).
	CalculationCacheTotal *prometheus.CounterVec
	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers calculator Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CalculationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Count of unit price calculations by kind and result.",
		}, []string{"kind", "result"})
		CalculationCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculation_cache_total",
			Help:      "Count of calculation cache lookups by outcome.",
		}, []string{"result"})
		RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Number of requests rejected by the rate limiter.",
		})

		mustRegisterCollector(reg, CalculationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CalculationsTotal = v
			}
		})
		mustRegisterCollector(reg, CalculationCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CalculationCacheTotal = v
			}
		})
		mustRegisterCollector(reg, RateLimitedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				RateLimitedTotal = v
			}
		})
	})
}

// ObserveCalculation increments CalculationsTotal when domain metrics are registered.
func ObserveCalculation(kind, result string) {
	if CalculationsTotal == nil {
		return
	}
	if kind == "" {
		kind = "none"
	}
	CalculationsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveCache increments CalculationCacheTotal when domain metrics are registered.
func ObserveCache(result string) {
	if CalculationCacheTotal == nil {
		return
	}
	CalculationCacheTotal.WithLabelValues(result).Inc()
}

// ObserveRateLimited increments RateLimitedTotal when domain metrics are registered.
func ObserveRateLimited() {
	if RateLimitedTotal == nil {
		return
	}
	RateLimitedTotal.Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
