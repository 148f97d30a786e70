package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the broker's Prometheus instruments. One instance is wired
// through the handlers and middleware at startup.
type Metrics struct {
	MintRequests        *prometheus.CounterVec
	MintDuration        prometheus.Histogram
	AdmissionRejections *prometheus.CounterVec
	AdmissionFailOpens  prometheus.Counter
	KeyRotations        prometheus.Counter
	UpstreamJWKSFetches *prometheus.CounterVec
}

// NewMetrics registers the broker's instruments on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MintRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthcore_broker",
			Name:      "mint_requests_total",
			Help:      "Token mint requests by outcome.",
		}, []string{"result"}),
		MintDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "healthcore_broker",
			Name:      "mint_duration_seconds",
			Help:      "End-to-end latency of token mint requests.",
			Buckets:   prometheus.DefBuckets,
		}),
		AdmissionRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthcore_broker",
			Name:      "admission_rejections_total",
			Help:      "Requests rejected by the rate limiter, by dimension.",
		}, []string{"dimension"}),
		AdmissionFailOpens: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "healthcore_broker",
			Name:      "admission_fail_open_total",
			Help:      "Requests admitted without a limiter decision because the counter store errored.",
		}),
		KeyRotations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "healthcore_broker",
			Name:      "key_rotations_total",
			Help:      "Completed signing key rotations.",
		}),
		UpstreamJWKSFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthcore_broker",
			Name:      "upstream_jwks_fetches_total",
			Help:      "Upstream JWKS document fetches by outcome.",
		}, []string{"result"}),
	}
}
