package preview

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	clientsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "terragraph_preview_clients",
		Help: "Connected preview clients",
	})

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terragraph_preview_commands_total",
		Help: "Commands received from preview clients",
	}, []string{"type", "result"})

	framesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "terragraph_preview_frames_total",
		Help: "Height and normal frames broadcast",
	})
)
