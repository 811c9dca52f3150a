package kafka

import (
	"fmt"

	"github.com/zcw199604/kafka/types"
)

// LocalStores returns the local instances of a store.
//
// Without IncludeStale only stores of active tasks on running workers are
// returned. A global store resolves to the global worker's instance.
//
// Parameters:
//   - params: Store name, optional partition and staleness
//
// Returns:
//   - []StateStore: Matching store instances ordered by worker slot and task id
//   - error: ErrUnknownStore, ErrNotStarted, ErrStopped, or ErrStoreNotAvailable when none match
func (s *Streams) LocalStores(params StoreQueryParameters) ([]StateStore, error) {
	if err := s.checkStoreAccess(params.StoreName); err != nil {
		return nil, err
	}

	if s.topology.IsGlobalStore(params.StoreName) {
		if s.global != nil {
			if store, ok := s.global.Store(params.StoreName); ok {
				return []StateStore{store}, nil
			}
		}

		return nil, fmt.Errorf("%w: global store %q", ErrStoreNotAvailable, params.StoreName)
	}

	var stores []StateStore
	for _, e := range s.snapshot() {
		running := e.worker.State() == types.WorkerRunning
		tasks := e.worker.Tasks()

		for _, id := range sortedTaskIDs(tasks) {
			if params.Partition != nil && id.Partition != *params.Partition {
				continue
			}
			task := tasks[id]
			if !params.IncludeStale && (!running || !task.IsActive()) {
				continue
			}
			if store, ok := task.Store(params.StoreName); ok {
				stores = append(stores, store)
			}
		}
	}

	if len(stores) == 0 {
		return nil, fmt.Errorf("%w: store %q may be migrating to another instance", ErrStoreNotAvailable, params.StoreName)
	}

	return stores, nil
}
