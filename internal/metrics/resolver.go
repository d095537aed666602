package metrics

import "github.com/prometheus/client_golang/prometheus"

// Resolution pipeline Prometheus metrics.
var (
	SourceFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cadenza",
			Name:      "source_fetches_total",
			Help:      "Outbound catalog fetches by terminal status",
		},
		[]string{"source", "status"}, // ok / client_error / exhausted
	)

	BreakerShortCircuitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cadenza",
			Name:      "breaker_short_circuits_total",
			Help:      "Fetches skipped because a source circuit breaker was open",
		},
		[]string{"source"},
	)

	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cadenza",
			Name:      "resolutions_total",
			Help:      "Per-source resolution attempts by outcome",
		},
		[]string{"source", "outcome"}, // matched / no_match / unavailable / structure_changed
	)

	ResolutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cadenza",
			Name:      "resolution_duration_seconds",
			Help:      "End-to-end resolution chain duration in seconds",
			Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 20, 45, 90},
		},
	)

	ScoreCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cadenza",
			Name:      "score_cache_total",
			Help:      "Score cache hits and misses",
		},
		[]string{"result"}, // hit / miss
	)

	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cadenza",
			Name:      "generations_total",
			Help:      "Listening activity generations by status",
		},
		[]string{"status"}, // success / error
	)
)

var resolverMetricsRegistered bool

// RegisterResolverMetrics registers pipeline metrics. Must be called once from main.
func RegisterResolverMetrics() {
	if resolverMetricsRegistered {
		return
	}
	prometheus.MustRegister(SourceFetchesTotal)
	prometheus.MustRegister(BreakerShortCircuitsTotal)
	prometheus.MustRegister(ResolutionsTotal)
	prometheus.MustRegister(ResolutionDuration)
	prometheus.MustRegister(ScoreCacheTotal)
	prometheus.MustRegister(GenerationsTotal)
	resolverMetricsRegistered = true
}
