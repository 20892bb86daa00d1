package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set holds the bridge's collectors. Outcome labels: "ok", "duplicate",
// "rejected", "session_not_found", "timeout", "error".
type Set struct {
	Requests        *prometheus.CounterVec
	UpstreamSeconds prometheus.Histogram
}

func New(reg prometheus.Registerer) *Set {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Set{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "walletbridge_requests_total",
			Help: "Wallet actions dispatched, by action and outcome.",
		}, []string{"action", "outcome"}),
		UpstreamSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "walletbridge_upstream_seconds",
			Help:    "Latency of the signed forward to the upstream wallet.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
