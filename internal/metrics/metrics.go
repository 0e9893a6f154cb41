// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/joestump/group-blocks/internal/block"
)

var (
	BlockDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupblocks_block_decisions_total",
		Help: "Block access decisions by block and result.",
	}, []string{"block", "result"})

	BlockRendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupblocks_block_renders_total",
		Help: "Block render attempts by block and outcome (rendered, empty, error).",
	}, []string{"block", "outcome"})

	GroupContentCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupblocks_group_content_created_total",
		Help: "Group content items created through the add routes.",
	}, []string{"plugin_id"})
)

// ObserveDecisions records the access and render outcome of each decision.
func ObserveDecisions(decisions []block.Decision) {
	for _, d := range decisions {
		BlockDecisionsTotal.WithLabelValues(d.BlockID, d.Result.String()).Inc()
		if !d.Result.IsAllowed() {
			continue
		}
		outcome := "rendered"
		switch {
		case d.Err != nil:
			outcome = "error"
		case d.Fragment.IsEmpty():
			outcome = "empty"
		}
		BlockRendersTotal.WithLabelValues(d.BlockID, outcome).Inc()
	}
}
