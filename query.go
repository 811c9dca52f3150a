package kafka

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/zcw199604/kafka/types"
)

// Query runs an interactive query against every local partition of a store.
//
// Each task holding the store answers for its partition. Requested partitions
// not hosted locally fail with FailureNotPresent. With RequireActive, partitions
// hosted by a standby task or by a worker that is not running fail with
// FailureNotActive, and the position bound is ignored. Global stores are not
// queryable this way; the result's Global entry explains why.
//
// Parameters:
//   - ctx: Context passed to every store
//   - req: Query request
//
// Returns:
//   - *StateQueryResult: Per-partition outcomes
//   - error: ErrUnknownStore, ErrNotStarted or ErrStopped
//
// Example:
//
//	req := types.InStore("counts", countQuery).WithPartitions(0, 1).RequireActiveOnly()
//	res, err := streams.Query(ctx, req)
func (s *Streams) Query(ctx context.Context, req StateQueryRequest) (*StateQueryResult, error) {
	if err := s.checkStoreAccess(req.StoreName); err != nil {
		return nil, err
	}

	result := types.NewStateQueryResult()
	if s.topology.IsGlobalStore(req.StoreName) {
		global := types.Failure(types.FailureUnknownQueryType,
			fmt.Sprintf("store %q is a global store; global stores are read through LocalStores", req.StoreName))
		result.Global = &global

		return result, nil
	}

	var wanted map[int32]struct{}
	if !req.IsAllPartitions() {
		wanted = make(map[int32]struct{}, len(req.Partitions))
		for _, p := range req.Partitions {
			wanted[p] = struct{}{}
		}
	}

	bound := req.Bound
	if req.RequireActive {
		bound = types.Unbounded()
	}
	cfg := types.QueryConfig{CollectExecutionInfo: req.CollectExecutionInfo}

scan:
	for _, e := range s.snapshot() {
		workerState := e.worker.State()
		tasks := e.worker.Tasks()

		for _, id := range sortedTaskIDs(tasks) {
			if wanted != nil {
				if _, ok := wanted[id.Partition]; !ok {
					continue
				}
			}

			task := tasks[id]
			store, ok := task.Store(req.StoreName)
			if !ok {
				continue
			}

			// An answer already obtained from an active task wins over later copies.
			if prev, seen := result.Partitions[id.Partition]; seen && prev.IsSuccess() {
				continue
			}

			if req.RequireActive && (workerState != types.WorkerRunning || !task.IsActive()) {
				result.Partitions[id.Partition] = types.Failure(types.FailureNotActive, fmt.Sprintf(
					"query requires an active running task, but partition %d is hosted by %s task %s on worker %s in state %s",
					id.Partition, taskKind(task), id, e.name, workerState))
			} else {
				result.Partitions[id.Partition] = store.Query(ctx, req.Query, bound, cfg)
			}

			if wanted != nil && len(result.Partitions) == len(wanted) {
				break scan
			}
		}
	}

	for p := range wanted {
		if _, ok := result.Partitions[p]; !ok {
			result.Partitions[p] = types.Failure(types.FailureNotPresent,
				fmt.Sprintf("partition %d of store %q is not present on this client", p, req.StoreName))
		}
	}

	return result, nil
}

// checkStoreAccess validates a store lookup against the topology and the client state.
func (s *Streams) checkStoreAccess(storeName string) error {
	if !s.topology.HasStore(storeName) {
		return fmt.Errorf("%w: %q", ErrUnknownStore, storeName)
	}

	st := s.State()
	if st.HasNotStarted() {
		return fmt.Errorf("%w: store %q cannot be queried before Start", ErrNotStarted, storeName)
	}
	if st.HasStartedOrFinishedShuttingDown() {
		return fmt.Errorf("%w: store %q cannot be queried in state %s", ErrStopped, storeName, st)
	}

	return nil
}

func sortedTaskIDs(tasks map[TaskID]Task) []TaskID {
	return slices.SortedFunc(maps.Keys(tasks), func(a, b TaskID) int {
		return a.Compare(b)
	})
}

func taskKind(task Task) string {
	if task.IsActive() {
		return "active"
	}

	return "standby"
}
