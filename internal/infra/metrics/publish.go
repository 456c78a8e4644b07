package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(publishesTotal, publishRetriesTotal, publishDurationSec, idempotentSkipsTotal)
}

var publishesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "content_publishes_total",
		Help: "Publish attempts by platform and result.",
	},
	[]string{"platform", "result"}, // 'posted', 'failed'
)

var publishRetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "content_publish_retries_total",
		Help: "Failed attempts returned to approved, by platform and failure kind.",
	},
	[]string{"platform", "kind"},
)

var publishDurationSec = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "content_publish_duration_seconds",
		Help:    "Wall time of one publish attempt including the external call.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	},
	[]string{"platform"},
)

var idempotentSkipsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "content_idempotent_skips_total",
		Help: "Claims short-circuited to posted because the outcome witness already existed.",
	},
	[]string{"platform"},
)

func IncPublish(platform, result string) {
	publishesTotal.WithLabelValues(norm(platform), norm(result)).Inc()
}

func IncPublishRetry(platform, kind string) {
	publishRetriesTotal.WithLabelValues(norm(platform), norm(kind)).Inc()
}

func ObservePublishDuration(platform string, d time.Duration) {
	publishDurationSec.WithLabelValues(norm(platform)).Observe(d.Seconds())
}

func IncIdempotentSkip(platform string) {
	idempotentSkipsTotal.WithLabelValues(norm(platform)).Inc()
}
