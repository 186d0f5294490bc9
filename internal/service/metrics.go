package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation outcomes recorded by cigarro_operations_total.
const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cigarro_operations_total",
		Help: "Total number of cigarro service operations by outcome",
	},
	[]string{"operation", "outcome"},
)

func observe(operation, outcome string) {
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}
