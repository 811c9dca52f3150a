package kafka

import "github.com/zcw199604/kafka/types"

// MetadataForLocalWorkers describes every registered worker that is not dead.
//
// Returns:
//   - []WorkerMetadata: One entry per worker, ordered by slot
func (s *Streams) MetadataForLocalWorkers() []WorkerMetadata {
	var out []WorkerMetadata
	for _, e := range s.snapshot() {
		st := e.worker.State()
		if st == types.WorkerDead {
			continue
		}

		md := WorkerMetadata{Name: e.name, Slot: e.slot, State: st}
		tasks := e.worker.Tasks()
		for _, id := range sortedTaskIDs(tasks) {
			if tasks[id].IsActive() {
				md.ActiveTasks = append(md.ActiveTasks, id)
			} else {
				md.StandbyTasks = append(md.StandbyTasks, id)
			}
		}
		out = append(out, md)
	}

	return out
}
