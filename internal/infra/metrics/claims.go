package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(claimsTotal, staleReclaimsTotal) }

var claimsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "content_claims_total",
		Help: "Claim attempts by platform and result ('claimed', 'empty').",
	},
	[]string{"platform", "result"},
)

var staleReclaimsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "content_stale_reclaims_total",
		Help: "posting_<platform> rows returned to approved after a stale claim.",
	},
	[]string{"platform"},
)

func IncClaim(platform, result string) {
	claimsTotal.WithLabelValues(norm(platform), norm(result)).Inc()
}

func AddStaleReclaims(platform string, n int) {
	staleReclaimsTotal.WithLabelValues(norm(platform)).Add(float64(n))
}
