// Package types provides core type definitions and interfaces for the streams client runtime.
//
// This package contains shared types that are used across multiple packages in the
// module. By keeping these types in a separate package, we avoid import cycles
// between the root kafka package and its internal implementations.
//
// Key types:
//   - State: Client lifecycle state and its successor graph
//   - WorkerState, GlobalWorkerState: Externally reported worker sub-states
//   - Worker, GlobalWorker, Task, StateStore: Consumed collaborator interfaces
//   - Admin, StateDirectory, Topology: Consumed infrastructure interfaces
//   - StateQueryRequest, StateQueryResult: Interactive query model
//   - Logger, MetricsCollector: Observability interfaces
package types
