package kafka

import (
	"errors"
	"fmt"

	"github.com/zcw199604/kafka/types"
)

// Sentinel errors returned by Streams.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrTopologyRequired is returned when the topology is nil.
	ErrTopologyRequired = errors.New("topology is required")

	// ErrWorkerFactoryRequired is returned when the worker factory is nil.
	ErrWorkerFactoryRequired = errors.New("worker factory is required")

	// ErrGlobalWorkerRequired is returned when the topology has global stores but no global worker factory was given.
	ErrGlobalWorkerRequired = errors.New("topology declares global stores but no global worker factory was configured")

	// ErrStreams is returned for fatal construction and shutdown failures.
	ErrStreams = errors.New("streams client failure")

	// ErrInvalidTransition is returned for a state transition outside the successor graph.
	// It wraps ErrIllegalState.
	ErrInvalidTransition = fmt.Errorf("%w: invalid client state transition", types.ErrIllegalState)
)

// Errors shared with the types package so callers can match either.
var (
	// ErrIllegalState is returned when an operation is invalid in the current client state.
	ErrIllegalState = types.ErrIllegalState

	// ErrIllegalArgument is returned for invalid arguments such as a negative timeout.
	ErrIllegalArgument = types.ErrIllegalArgument

	// ErrNotStarted is returned by store access before Start.
	ErrNotStarted = types.ErrNotStarted

	// ErrStopped is returned by store access while or after shutting down.
	ErrStopped = types.ErrStopped

	// ErrUnknownStore is returned when the topology has no store with the requested name.
	ErrUnknownStore = types.ErrUnknownStore

	// ErrStoreNotAvailable is returned by LocalStores when no local instance matches.
	ErrStoreNotAvailable = types.ErrStoreNotAvailable

	// ErrTimeout is returned when a bounded operation ran out of time.
	ErrTimeout = types.ErrTimeout
)
