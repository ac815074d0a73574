package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var placements = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "order_placements_total",
		Help: "Order placement attempts by outcome",
	},
	[]string{"outcome"},
)
