package integrations

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var strategyAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quickcard_strategy_attempts_total",
		Help: "Transport strategy attempts by operation and outcome.",
	},
	[]string{"strategy", "operation", "outcome"},
)

func observeAttempt(strategy, op string, err error) {
	outcome := "success"
	if err != nil {
		kind, _ := kindOf(err)
		outcome = kind.String()
	}
	strategyAttempts.WithLabelValues(strategy, op, outcome).Inc()
}
