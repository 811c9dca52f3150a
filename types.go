package kafka

import "github.com/zcw199604/kafka/types"

// Re-export types from the types package.
//
// Internal packages depend on types without depending on the root package,
// while users keep writing kafka.State, kafka.Worker and so on.
type (
	State                = types.State
	WorkerState          = types.WorkerState
	GlobalWorkerState    = types.GlobalWorkerState
	TaskID               = types.TaskID
	TopicPartition       = types.TopicPartition
	WorkerSpec           = types.WorkerSpec
	WorkerCallbacks      = types.WorkerCallbacks
	GlobalWorkerSpec     = types.GlobalWorkerSpec
	WorkerMetadata       = types.WorkerMetadata
	StateQueryRequest    = types.StateQueryRequest
	StateQueryResult     = types.StateQueryResult
	QueryResult          = types.QueryResult
	FailureReason        = types.FailureReason
	PositionBound        = types.PositionBound
	StoreQueryParameters = types.StoreQueryParameters
	LagInfo              = types.LagInfo
	ExceptionResponse    = types.ExceptionResponse
	FailureSource        = types.FailureSource
	ShutdownRequest      = types.ShutdownRequest
)

// Re-export interfaces and function types from the types package.
type (
	Worker                   = types.Worker
	GlobalWorker             = types.GlobalWorker
	Task                     = types.Task
	StateStore               = types.StateStore
	Topology                 = types.Topology
	Admin                    = types.Admin
	StateDirectory           = types.StateDirectory
	ShutdownBroadcaster      = types.ShutdownBroadcaster
	MetricsCollector         = types.MetricsCollector
	Logger                   = types.Logger
	WorkerFactory            = types.WorkerFactory
	GlobalWorkerFactory      = types.GlobalWorkerFactory
	StateListener            = types.StateListener
	UncaughtExceptionHandler = types.UncaughtExceptionHandler
)

// Re-export State constants.
const (
	StateCreated         = types.StateCreated
	StateRebalancing     = types.StateRebalancing
	StateRunning         = types.StateRunning
	StatePendingShutdown = types.StatePendingShutdown
	StateNotRunning      = types.StateNotRunning
	StatePendingError    = types.StatePendingError
	StateError           = types.StateError
)

// Re-export uncaught exception responses.
const (
	ReplaceWorker       = types.ReplaceWorker
	ShutdownClient      = types.ShutdownClient
	ShutdownApplication = types.ShutdownApplication
)

// Re-export worker sub-states.
const (
	WorkerCreated            = types.WorkerCreated
	WorkerStarting           = types.WorkerStarting
	WorkerPartitionsRevoked  = types.WorkerPartitionsRevoked
	WorkerPartitionsAssigned = types.WorkerPartitionsAssigned
	WorkerRunning            = types.WorkerRunning
	WorkerPendingShutdown    = types.WorkerPendingShutdown
	WorkerDead               = types.WorkerDead
)

// Re-export global worker sub-states.
const (
	GlobalCreated         = types.GlobalCreated
	GlobalRunning         = types.GlobalRunning
	GlobalPendingShutdown = types.GlobalPendingShutdown
	GlobalDead            = types.GlobalDead
)

// Re-export query failure reasons.
const (
	FailureNone             = types.FailureNone
	FailureNotActive        = types.FailureNotActive
	FailureNotPresent       = types.FailureNotPresent
	FailureUnknownQueryType = types.FailureUnknownQueryType
	FailureNotUpToBound     = types.FailureNotUpToBound
	FailureStoreException   = types.FailureStoreException
)

// LatestOffset marks a changelog position as caught up with the end of the log.
const LatestOffset = types.LatestOffset
