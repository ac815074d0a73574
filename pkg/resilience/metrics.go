package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_call_attempts_total",
			Help: "Attempts made against remote dependencies by outcome",
		},
		[]string{"remote", "op", "outcome"},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "0 closed, 1 half-open, 2 open",
		},
		[]string{"remote"},
	)
)
