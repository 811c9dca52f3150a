package types

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskID identifies a task by its sub-topology and input partition.
type TaskID struct {
	Subtopology int
	Partition   int32
}

// String returns the "<subtopology>_<partition>" form used for task directories.
func (id TaskID) String() string {
	return fmt.Sprintf("%d_%d", id.Subtopology, id.Partition)
}

// Compare orders task IDs by sub-topology, then by partition.
func (id TaskID) Compare(other TaskID) int {
	switch {
	case id.Subtopology < other.Subtopology:
		return -1
	case id.Subtopology > other.Subtopology:
		return 1
	case id.Partition < other.Partition:
		return -1
	case id.Partition > other.Partition:
		return 1
	default:
		return 0
	}
}

// TopicPartition identifies one partition of a topic.
type TopicPartition struct {
	Topic     string
	Partition int32
}

// String returns the "<topic>-<partition>" form.
func (tp TopicPartition) String() string {
	return fmt.Sprintf("%s-%d", tp.Topic, tp.Partition)
}

// LatestOffset marks a changelog position as caught up with the end of the log.
const LatestOffset int64 = -2

// Task is a unit of assigned work bound to one partition.
type Task interface {
	// ID returns the task identity.
	ID() TaskID

	// IsActive reports whether this is an active (not standby) task.
	IsActive() bool

	// Store returns the named local state store owned by the task.
	Store(name string) (StateStore, bool)

	// ChangelogPartitions returns the changelog partitions backing the task's stores.
	ChangelogPartitions() []TopicPartition

	// ChangelogOffsets returns the restored position per changelog partition.
	// A missing entry means restoration has not started; LatestOffset means caught up.
	ChangelogOffsets() map[TopicPartition]int64
}

// WorkerCallbacks are the hooks a worker invokes to report to the client.
type WorkerCallbacks struct {
	// OnStateChange must be called after every sub-state change.
	OnStateChange func(newState, oldState WorkerState)

	// OnUncaughtError must be called when the worker's run loop fails.
	// A nil return means the worker keeps running. A non-nil return is the
	// original error, and the worker must exit its run loop.
	OnUncaughtError func(err error, skipReplacement bool) error
}

// WorkerSpec describes a worker the client wants constructed.
type WorkerSpec struct {
	Slot        int
	Name        string
	ClientID    string
	ProcessID   uuid.UUID
	CacheBytes  int64
	BufferBytes int64
	Callbacks   WorkerCallbacks
}

// Worker is an independently running unit that owns a subset of partitions.
//
// Start must return promptly and report state changes from the worker's own
// goroutine. Shutdown may report state changes synchronously.
type Worker interface {
	Name() string
	Start()
	Shutdown()

	// State returns the current sub-state.
	State() WorkerState

	// AwaitState blocks until the worker reaches target, the timeout elapses,
	// or ctx is done. It reports whether target was reached.
	AwaitState(ctx context.Context, target WorkerState, timeout time.Duration) bool

	// Done is closed once the worker goroutine has exited, or once Shutdown
	// was called on a worker that was never started.
	Done() <-chan struct{}

	// Resize changes the worker's share of the cache and input buffer budget.
	Resize(cacheBytes, bufferBytes int64)

	// Tasks returns a snapshot of the tasks currently owned by the worker.
	Tasks() map[TaskID]Task

	// RequestLeaveGroupDuringShutdown asks the worker to leave its consumer group on shutdown.
	RequestLeaveGroupDuringShutdown()

	// GroupInstanceID returns the static membership id, if any.
	GroupInstanceID() (string, bool)

	// SendShutdownRequest asks the group to shut down the whole application.
	SendShutdownRequest(reason string)
}

// GlobalWorkerSpec describes the global worker the client wants constructed.
type GlobalWorkerSpec struct {
	Name       string
	ClientID   string
	CacheBytes int64

	// OnStateChange must be called after every sub-state change.
	OnStateChange func(newState, oldState GlobalWorkerState)

	// OnUncaughtError has the same contract as WorkerCallbacks.OnUncaughtError.
	OnUncaughtError func(err error) error
}

// GlobalWorker maintains fully replicated read-only global stores.
type GlobalWorker interface {
	Name() string
	Start()
	Shutdown()
	State() GlobalWorkerState
	Done() <-chan struct{}
	Resize(cacheBytes int64)

	// Store returns the named global store.
	Store(name string) (StateStore, bool)
}

// WorkerFactory constructs a worker from its spec.
type WorkerFactory func(spec WorkerSpec) (Worker, error)

// GlobalWorkerFactory constructs the global worker from its spec.
type GlobalWorkerFactory func(spec GlobalWorkerSpec) (GlobalWorker, error)

// WorkerMetadata is a point-in-time description of a local worker.
type WorkerMetadata struct {
	Name         string
	Slot         int
	State        WorkerState
	ActiveTasks  []TaskID
	StandbyTasks []TaskID
}
