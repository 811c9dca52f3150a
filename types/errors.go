package types

import "errors"

// Sentinel errors shared across packages.
//
// Root package errors wrap these so callers can match with errors.Is.
// ErrIllegalState and ErrIllegalArgument also mark programmer errors:
// an uncaught worker error wrapping either always shuts the client down.
var (
	// ErrIllegalState is returned when an operation is invalid in the current state.
	ErrIllegalState = errors.New("illegal state")

	// ErrIllegalArgument is returned when an argument violates an operation's contract.
	ErrIllegalArgument = errors.New("illegal argument")
)

// Client lifecycle errors.
var (
	// ErrNotStarted is returned when an operation requires a started client.
	ErrNotStarted = errors.New("client not started")

	// ErrStopped is returned when an operation is attempted on a stopping or stopped client.
	ErrStopped = errors.New("client stopped")

	// ErrTimeout is returned when a bounded operation ran out of time.
	ErrTimeout = errors.New("operation timed out")
)

// Store access errors.
var (
	// ErrUnknownStore is returned when the topology declares no store with the requested name.
	ErrUnknownStore = errors.New("unknown state store")

	// ErrStoreNotAvailable is returned when a known store has no local instance matching the lookup.
	ErrStoreNotAvailable = errors.New("state store is not available locally")
)

// Infrastructure errors.
var (
	// ErrNoAdmin is returned by the placeholder admin when no broker admin was configured.
	ErrNoAdmin = errors.New("no admin client configured")

	// ErrStateDirLocked is returned when another process holds the state directory.
	ErrStateDirLocked = errors.New("state directory is locked by another process")
)
