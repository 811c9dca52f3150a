package kafka

import (
	"sync"

	"github.com/zcw199604/kafka/types"
)

// workerStateTable records the last reported sub-state of every worker.
//
// Its lock is acquired before the client state lock so that the all-running
// check and the resulting transition are atomic.
type workerStateTable struct {
	mu        sync.Mutex
	workers   map[string]WorkerState
	hasGlobal bool
	global    GlobalWorkerState
}

func newWorkerStateTable() workerStateTable {
	return workerStateTable{workers: make(map[string]WorkerState)}
}

func (t *workerStateTable) track(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.workers[name] = types.WorkerCreated
}

func (t *workerStateTable) forget(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.workers, name)
}

func (t *workerStateTable) trackGlobal() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.hasGlobal = true
	t.global = types.GlobalCreated
}

// allRunning reports whether every worker is running or dead and the global
// worker, if any, is running. Callers hold t.mu.
func (t *workerStateTable) allRunning() bool {
	for _, st := range t.workers {
		if st != types.WorkerRunning && st != types.WorkerDead {
			return false
		}
	}

	return !t.hasGlobal || t.global == types.GlobalRunning
}

// onWorkerStateChange folds a regular worker's sub-state into the client state.
func (s *Streams) onWorkerStateChange(name string, newState, oldState WorkerState) {
	s.table.mu.Lock()
	if _, tracked := s.table.workers[name]; !tracked {
		s.table.mu.Unlock()
		s.logger.Debug("ignoring state change of removed worker", "worker", name, "state", newState)
		return
	}
	s.table.workers[name] = newState

	var err error
	switch {
	case newState.IsRebalanceMarker():
		_, err = s.commitState(StateRebalancing)
	case newState == types.WorkerRunning && s.table.allRunning():
		_, err = s.commitState(StateRunning)
	}
	s.table.mu.Unlock()

	s.logger.Debug("worker state changed", "worker", name, "from", oldState, "to", newState)
	if err != nil {
		s.logger.Error("failed to apply worker state change", "worker", name, "state", newState, "error", err)
	}
	s.notifyListener()
}

// onGlobalWorkerStateChange folds the global worker's sub-state into the client state.
//
// The death of the global worker outside a clean shutdown takes the client down.
func (s *Streams) onGlobalWorkerStateChange(newState, oldState GlobalWorkerState) {
	s.table.mu.Lock()
	s.table.global = newState

	var err error
	shutdownToError := false
	switch newState {
	case types.GlobalRunning:
		if s.table.allRunning() {
			_, err = s.commitState(StateRunning)
		}
	case types.GlobalDead:
		shutdownToError = s.State() != StatePendingShutdown
	}
	s.table.mu.Unlock()

	s.logger.Debug("global worker state changed", "from", oldState, "to", newState)
	if err != nil {
		s.logger.Error("failed to apply global worker state change", "state", newState, "error", err)
	}
	s.notifyListener()

	if shutdownToError {
		s.logger.Error("global worker has died, the client is going to shut down", "client_id", s.clientID)
		s.closeToError()
	}
}
