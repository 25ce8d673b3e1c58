// Package metrics exposes Prometheus collectors for the pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ProbesTotal counts probe outcomes. outcome is reachable/unreachable/transient;
	// reason is status/timeout/network or empty for reachable.
	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "channelpick",
		Name:      "probes_total",
		Help:      "Endpoint probe outcomes.",
	}, []string{"outcome", "reason"})

	// ProbeSeconds observes probe round-trip latency.
	ProbeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "channelpick",
		Name:      "probe_duration_seconds",
		Help:      "Endpoint probe latency.",
		Buckets:   prometheus.DefBuckets,
	})

	// GroupsRepaired counts groups that survived a repair pass.
	GroupsRepaired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "channelpick",
		Name:      "groups_repaired_total",
		Help:      "Channel groups emitted by the repair pipeline.",
	})

	// GroupsRemoved counts groups dropped because no member was reachable.
	GroupsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "channelpick",
		Name:      "groups_removed_total",
		Help:      "Channel groups removed by the repair pipeline.",
	})

	// GroupsPromoted counts groups whose primary was replaced by an overflow member.
	GroupsPromoted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "channelpick",
		Name:      "groups_promoted_total",
		Help:      "Channel groups with an overflow member promoted to primary.",
	})

	// SinkRetries counts retried sink writes.
	SinkRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "channelpick",
		Name:      "sink_write_retries_total",
		Help:      "Sink write attempts that failed and were retried.",
	})
)

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
