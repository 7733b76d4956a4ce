package resilience

import (
	"github.com/shardpool/rrpool/lib/metrics"
)

// Shard circuit breaker metrics for Prometheus exposition.
var (
	// CircuitsOpen is the number of shard circuits currently open.
	CircuitsOpen = metrics.NewGauge(
		"rrpool_circuits_open",
		"Number of shard circuit breakers currently open",
	)

	// CircuitTrips counts the number of times shard circuits have opened.
	CircuitTrips = metrics.NewCounter(
		"rrpool_circuit_trips_total",
		"Total number of times shard circuit breakers have opened",
	)

	// CircuitRejections counts setup attempts rejected by open circuits.
	CircuitRejections = metrics.NewCounter(
		"rrpool_circuit_rejections_total",
		"Total connection setups rejected by open shard circuits",
	)

	// CircuitFailures counts failed attempts recorded by shard circuits.
	CircuitFailures = metrics.NewCounter(
		"rrpool_circuit_failures_total",
		"Total failed connection setups recorded by shard circuits",
	)
)

// metricsCallback keeps the open-circuit gauge in step with transitions.
func metricsCallback(from, to State) {
	if to == StateOpen {
		CircuitsOpen.Inc()
		CircuitTrips.Inc()
	}
	if from == StateOpen {
		CircuitsOpen.Dec()
	}
}
