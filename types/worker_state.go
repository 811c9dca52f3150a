package types

// WorkerState is the sub-state reported by a regular worker.
type WorkerState int

const (
	// WorkerCreated is the state of a constructed but not yet started worker.
	WorkerCreated WorkerState = iota

	// WorkerStarting indicates the worker goroutine is starting up.
	WorkerStarting

	// WorkerPartitionsRevoked indicates the worker is giving up partitions during a rebalance.
	WorkerPartitionsRevoked

	// WorkerPartitionsAssigned indicates the worker received partitions during a rebalance.
	WorkerPartitionsAssigned

	// WorkerRunning indicates the worker is processing its assigned partitions.
	WorkerRunning

	// WorkerPendingShutdown indicates the worker was asked to shut down.
	WorkerPendingShutdown

	// WorkerDead indicates the worker goroutine has exited.
	WorkerDead
)

// String returns the string representation of the worker state.
func (s WorkerState) String() string {
	switch s {
	case WorkerCreated:
		return "Created"
	case WorkerStarting:
		return "Starting"
	case WorkerPartitionsRevoked:
		return "PartitionsRevoked"
	case WorkerPartitionsAssigned:
		return "PartitionsAssigned"
	case WorkerRunning:
		return "Running"
	case WorkerPendingShutdown:
		return "PendingShutdown"
	case WorkerDead:
		return "Dead"
	default:
		return "Unknown"
	}
}

// IsRebalanceMarker reports whether entering this state moves the client into rebalancing.
func (s WorkerState) IsRebalanceMarker() bool {
	return s == WorkerPartitionsRevoked || s == WorkerPartitionsAssigned
}

// IsAlive reports whether the worker counts towards the live pool,
// that is it is neither stopping nor dead.
func (s WorkerState) IsAlive() bool {
	return s != WorkerPendingShutdown && s != WorkerDead
}

// GlobalWorkerState is the sub-state reported by the global worker.
type GlobalWorkerState int

const (
	// GlobalCreated is the state of a constructed but not yet started global worker.
	GlobalCreated GlobalWorkerState = iota

	// GlobalRunning indicates global stores are restored and being kept up to date.
	GlobalRunning

	// GlobalPendingShutdown indicates the global worker was asked to shut down.
	GlobalPendingShutdown

	// GlobalDead indicates the global worker goroutine has exited.
	GlobalDead
)

// String returns the string representation of the global worker state.
func (s GlobalWorkerState) String() string {
	switch s {
	case GlobalCreated:
		return "Created"
	case GlobalRunning:
		return "Running"
	case GlobalPendingShutdown:
		return "PendingShutdown"
	case GlobalDead:
		return "Dead"
	default:
		return "Unknown"
	}
}
