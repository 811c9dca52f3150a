package kafka

import (
	"context"
	"fmt"

	"github.com/zcw199604/kafka/types"
)

// AllLocalStorePartitionLags reports the changelog lag of every local store partition.
//
// Positions come from the local tasks, active and standby alike. End offsets
// are fetched from the brokers in one batched call. A partition whose
// restoration has not started is reported at position 0.
//
// Parameters:
//   - ctx: Context for the end offset lookup
//
// Returns:
//   - map[string]map[int32]LagInfo: Lag keyed by store name, then partition
//   - error: End offset lookup failure wrapping ErrStreams
func (s *Streams) AllLocalStorePartitionLags(ctx context.Context) (map[string]map[int32]LagInfo, error) {
	var tasks []Task
	for _, e := range s.snapshot() {
		workerTasks := e.worker.Tasks()
		for _, id := range sortedTaskIDs(workerTasks) {
			tasks = append(tasks, workerTasks[id])
		}
	}

	return s.storePartitionLags(ctx, tasks)
}

func (s *Streams) storePartitionLags(ctx context.Context, tasks []Task) (map[string]map[int32]LagInfo, error) {
	positions := make(map[TopicPartition]int64)
	seen := make(map[TopicPartition]struct{})
	var partitions []TopicPartition

	for _, task := range tasks {
		for _, tp := range task.ChangelogPartitions() {
			if _, ok := seen[tp]; ok {
				continue
			}
			seen[tp] = struct{}{}
			partitions = append(partitions, tp)
		}
		for tp, offset := range task.ChangelogOffsets() {
			positions[tp] = offset
		}
	}

	lags := make(map[string]map[int32]LagInfo)
	if len(partitions) == 0 {
		return lags, nil
	}

	ends, err := s.admin.ListEndOffsets(ctx, partitions)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch end offsets: %w", ErrStreams, err)
	}

	for tp, end := range ends {
		current := positions[tp]
		if current == types.LatestOffset {
			current = end
		}

		store := s.topology.StoreForChangelogTopic(tp.Topic)
		byPartition, ok := lags[store]
		if !ok {
			byPartition = make(map[int32]LagInfo)
			lags[store] = byPartition
		}
		byPartition[tp.Partition] = LagInfo{CurrentOffset: current, EndOffset: end}

		s.logger.Debug("computed changelog lag",
			"store", store,
			"partition", tp.Partition,
			"current_offset", current,
			"end_offset", end,
		)
	}

	return lags, nil
}
