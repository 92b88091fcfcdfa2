package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	computesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terragraph_graph_computes_total",
		Help: "Node recomputations by node kind.",
	}, []string{"kind"})

	propagationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "terragraph_graph_propagation_seconds",
		Help:    "Wall time of one synchronous propagation pass.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	rejectedEdits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terragraph_graph_rejected_edits_total",
		Help: "Graph edits rejected during validation, by reason.",
	}, []string{"reason"})

	nodesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "terragraph_graph_nodes",
		Help: "Nodes currently held by the engine.",
	})
)
