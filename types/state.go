package types

// State represents the client lifecycle state.
//
// States form a directed graph rather than a linear order:
//
//	Created → Rebalancing ⇄ Running
//	Created/Rebalancing/Running → PendingShutdown → NotRunning
//	Rebalancing/Running → PendingError → Error
//
// NotRunning and Error are terminal.
type State int

const (
	// StateCreated is the state after construction and before Start.
	StateCreated State = iota

	// StateRebalancing indicates at least one worker is (re)acquiring partitions.
	StateRebalancing

	// StateRunning indicates every live worker and the global worker are running.
	StateRunning

	// StatePendingShutdown indicates a clean shutdown is in progress.
	StatePendingShutdown

	// StateNotRunning is the terminal state of a clean shutdown.
	StateNotRunning

	// StatePendingError indicates an error shutdown is in progress.
	StatePendingError

	// StateError is the terminal state of an error shutdown.
	StateError
)

var validTransitions = map[State][]State{
	StateCreated:         {StateRebalancing, StatePendingShutdown},
	StateRebalancing:     {StateRunning, StatePendingShutdown, StatePendingError},
	StateRunning:         {StateRebalancing, StateRunning, StatePendingShutdown, StatePendingError},
	StatePendingShutdown: {StateNotRunning},
	StateNotRunning:      {},
	StatePendingError:    {StateError},
	StateError:           {},
}

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateRebalancing:
		return "Rebalancing"
	case StateRunning:
		return "Running"
	case StatePendingShutdown:
		return "PendingShutdown"
	case StateNotRunning:
		return "NotRunning"
	case StatePendingError:
		return "PendingError"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// IsValidTransition reports whether next is in the successor set of s.
func (s State) IsValidTransition(next State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// RefusesQuietly reports whether a request to move from s to next is
// declined without being treated as a programming error.
//
// The refused-but-benign cases are:
//   - PendingShutdown refuses anything but NotRunning
//   - NotRunning refuses PendingShutdown and NotRunning
//   - Rebalancing refuses Rebalancing
//   - Error refuses PendingError and Error
//   - PendingError refuses anything but Error
func (s State) RefusesQuietly(next State) bool {
	switch s {
	case StatePendingShutdown:
		return next != StateNotRunning
	case StateNotRunning:
		return next == StatePendingShutdown || next == StateNotRunning
	case StateRebalancing:
		return next == StateRebalancing
	case StateError:
		return next == StatePendingError || next == StateError
	case StatePendingError:
		return next != StateError
	default:
		return false
	}
}

// HasNotStarted reports whether Start has not been called yet.
func (s State) HasNotStarted() bool {
	return s == StateCreated
}

// IsRunningOrRebalancing reports whether the client is actively processing.
func (s State) IsRunningOrRebalancing() bool {
	return s == StateRunning || s == StateRebalancing
}

// IsShuttingDown reports whether a clean or error shutdown is in progress.
func (s State) IsShuttingDown() bool {
	return s == StatePendingShutdown || s == StatePendingError
}

// HasCompletedShutdown reports whether the client reached a terminal state.
func (s State) HasCompletedShutdown() bool {
	return s == StateNotRunning || s == StateError
}

// HasStartedOrFinishedShuttingDown reports whether the client is no longer usable for processing.
func (s State) HasStartedOrFinishedShuttingDown() bool {
	return s.IsShuttingDown() || s.HasCompletedShutdown()
}

// StateListener is notified after every accepted client state transition.
//
// It is invoked outside the client's state lock and must not call back into
// blocking client operations such as Close.
type StateListener func(newState, oldState State)
