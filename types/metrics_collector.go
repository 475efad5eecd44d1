package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// Methods are called from every worker's goroutine and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	SolverMetrics
	ExchangeMetrics
	ProgressMetrics
}

// SolverMetrics defines metrics for the per-worker timestep loop.
type SolverMetrics interface {
	// RecordKernelDuration records the time spent in one stencil application.
	//
	// Parameters:
	//   - rank: Worker rank
	//   - seconds: Kernel duration in seconds
	RecordKernelDuration(rank int, seconds float64)

	// RecordTimestep sets the worker's last completed timestep (gauge metric).
	RecordTimestep(rank int, step int)

	// RecordRunResult records the outcome of a worker's run ("success", "failure").
	RecordRunResult(rank int, result string)
}

// ExchangeMetrics defines metrics for communication with other workers.
type ExchangeMetrics interface {
	// RecordHaloExchange records one timestep's halo exchange.
	//
	// Parameters:
	//   - rank: Worker rank
	//   - seconds: Time from issuing the transfers to the last completed wait
	//   - success: true if every transfer completed
	RecordHaloExchange(rank int, seconds float64, success bool)

	// RecordGather records the final collection on a worker.
	RecordGather(rank int, seconds float64, success bool)
}

// ProgressMetrics defines metrics for progress publication.
type ProgressMetrics interface {
	// RecordProgressPublish records a progress publication attempt.
	RecordProgressPublish(rank int, success bool)
}
