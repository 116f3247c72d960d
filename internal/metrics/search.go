package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ranking core Prometheus metrics.
var (
	StrategyCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankd",
			Name:      "strategy_calls_total",
			Help:      "Retrieval strategy calls by outcome",
		},
		[]string{"strategy", "status"},
	)

	DecompositionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankd",
			Name:      "decomposition_total",
			Help:      "Subquery decompositions by path (llm / template)",
		},
		[]string{"path"},
	)

	FusionModeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankd",
			Name:      "fusion_mode_total",
			Help:      "Weighting mode selections (standard / confidence)",
		},
		[]string{"mode"},
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rankd",
			Name:      "search_duration_seconds",
			Help:      "End-to-end rank pipeline duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers ranking metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(StrategyCallsTotal)
	prometheus.MustRegister(DecompositionTotal)
	prometheus.MustRegister(FusionModeTotal)
	prometheus.MustRegister(SearchDuration)
	searchMetricsRegistered = true
}
