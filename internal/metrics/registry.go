package metrics

import "github.com/prometheus/client_golang/prometheus"

// Domain Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skillreg",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "skillreg",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skillreg",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	RateLimitDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skillreg",
			Name:      "ratelimit_decisions_total",
			Help:      "Rate limit decisions by request class and outcome",
		},
		[]string{"class", "outcome"}, // outcome: "allowed" / "denied"
	)

	SearchRoundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skillreg",
			Name:      "search_widening_rounds_total",
			Help:      "Search resolutions by number of widening rounds used",
		},
		[]string{"rounds"},
	)

	SweepRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skillreg",
			Name:      "sweep_rejections_total",
			Help:      "Skills rejected by the quality sweep",
		},
	)
)

var domainMetricsRegistered bool

// RegisterDomainMetrics registers the domain metrics. Must be called once
// from main.
func RegisterDomainMetrics() {
	if domainMetricsRegistered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(RateLimitDecisionsTotal)
	prometheus.MustRegister(SearchRoundsTotal)
	prometheus.MustRegister(SweepRejectionsTotal)
	domainMetricsRegistered = true
}
