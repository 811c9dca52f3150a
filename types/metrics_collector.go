package types

// MetricsCollector defines methods for recording client operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods are called from internal goroutines and must be thread-safe.
type MetricsCollector interface {
	ClientMetrics
	PoolMetrics

	// Close releases every registered sensor. Recording after Close is a no-op.
	Close()
}

// ClientMetrics defines metrics for client lifecycle events.
type ClientMetrics interface {
	// RecordStateTransition records an accepted client state transition.
	RecordStateTransition(from, to State)

	// RecordUncaughtFailure records the response selected for an uncaught worker error.
	RecordUncaughtFailure(response ExceptionResponse)

	// RecordShutdownDuration records the teardown duration in seconds.
	RecordShutdownDuration(seconds float64, clean bool)
}

// PoolMetrics defines metrics for the worker pool.
type PoolMetrics interface {
	// RecordAliveWorkers sets the current number of live workers.
	RecordAliveWorkers(count int)

	// RecordWorkerAdded counts a worker added to the pool.
	RecordWorkerAdded()

	// RecordWorkerRemoved counts a worker removed from the pool.
	RecordWorkerRemoved()

	// RecordBudget sets the per-worker share of the cache and input buffer budget.
	RecordBudget(cacheBytes, bufferBytes int64)
}
