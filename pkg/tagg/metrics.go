package tagg

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tempora",
		Subsystem: "tagg",
		Name:      "transitions_total",
		Help:      "Number of transition calls per reducer.",
	}, []string{"reducer"})

	metricMerges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tempora",
		Subsystem: "tagg",
		Name:      "merges_total",
		Help:      "Number of overlapping-piece merges per reducer.",
	}, []string{"reducer"})

	metricStateSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tempora",
		Subsystem: "tagg",
		Name:      "state_pieces",
		Help:      "Current number of pieces held by the accumulator.",
	}, []string{"reducer"})
)
