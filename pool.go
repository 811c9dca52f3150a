package kafka

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/zcw199604/kafka/internal/budget"
	"github.com/zcw199604/kafka/types"
)

// createWorker constructs and registers a worker in slot with an empty budget share.
// Callers resize the pool afterwards.
func (s *Streams) createWorker(slot int) (*workerEntry, error) {
	name := fmt.Sprintf("%s-worker-%d", s.clientID, slot)
	entry := &workerEntry{slot: slot, name: name}

	worker, err := s.factory(WorkerSpec{
		Slot:      slot,
		Name:      name,
		ClientID:  s.clientID,
		ProcessID: s.processID,
		Callbacks: WorkerCallbacks{
			OnStateChange: func(newState, oldState WorkerState) {
				s.onWorkerStateChange(name, newState, oldState)
			},
			OnUncaughtError: func(err error, skipReplacement bool) error {
				entry.failing.Store(true)
				defer entry.failing.Store(false)

				return s.handleUncaught(types.RegularWorkerSource(name), err, skipReplacement)
			},
		},
	})
	if err != nil {
		return nil, err
	}

	entry.worker = worker
	s.table.track(name)
	s.workers.Store(slot, entry)
	s.metrics.RecordWorkerAdded()
	s.logger.Debug("created worker", "worker", name, "slot", slot)

	return entry, nil
}

// snapshot returns the registered workers ordered by slot.
func (s *Streams) snapshot() []*workerEntry {
	entries := make([]*workerEntry, 0, s.workers.Size())
	s.workers.Range(func(_ int, e *workerEntry) bool {
		entries = append(entries, e)
		return true
	})
	slices.SortFunc(entries, func(a, b *workerEntry) int {
		return a.slot - b.slot
	})

	return entries
}

// removeEntry unregisters e unless its slot was already reused.
func (s *Streams) removeEntry(e *workerEntry) {
	removed := false
	s.workers.Compute(e.slot, func(cur *workerEntry, loaded bool) (*workerEntry, xsync.ComputeOp) {
		if loaded && cur == e {
			removed = true
			return nil, xsync.DeleteOp
		}

		return cur, xsync.CancelOp
	})
	if !removed {
		return
	}

	s.table.forget(e.name)
	s.metrics.RecordWorkerRemoved()
	s.logger.Debug("removed worker from pool", "worker", e.name, "slot", e.slot)
}

// liveCount reaps dead workers and counts the ones neither stopping nor dead.
func (s *Streams) liveCount() int {
	live := 0
	for _, e := range s.snapshot() {
		st := e.worker.State()
		if st == types.WorkerDead {
			s.removeEntry(e)
			continue
		}
		if st.IsAlive() {
			live++
		}
	}

	return live
}

// nextSlot returns the smallest positive slot not held by a registered worker.
// Dead workers are reaped first so their slots can be reused. Callers hold poolMu.
func (s *Streams) nextSlot() int {
	used := make(map[int]struct{})
	for _, e := range s.snapshot() {
		if e.worker.State() == types.WorkerDead {
			s.removeEntry(e)
			continue
		}
		used[e.slot] = struct{}{}
	}

	slot := 1
	for {
		if _, taken := used[slot]; !taken {
			return slot
		}
		slot++
	}
}

// resize divides the budget across live workers plus the global worker.
func (s *Streams) resize(live int) {
	share := budget.Split(s.total, live, s.global != nil)
	for _, e := range s.snapshot() {
		e.worker.Resize(share.CacheBytes, share.BufferBytes)
	}
	if s.global != nil {
		s.global.Resize(share.CacheBytes)
	}

	s.metrics.RecordBudget(share.CacheBytes, share.BufferBytes)
	s.logger.Debug("resized worker budgets",
		"live_workers", live,
		"cache_bytes_per_worker", share.CacheBytes,
		"buffer_bytes_per_worker", share.BufferBytes,
	)
}

// AddWorker adds and starts a new worker in the lowest free slot.
//
// Adding is permitted only while the client is running or rebalancing. The
// budget is re-divided across all live workers.
//
// Returns:
//   - string: Name of the new worker
//   - bool: false when no worker was added
//   - error: Worker construction error
func (s *Streams) AddWorker() (string, bool, error) {
	if st := s.State(); !st.IsRunningOrRebalancing() {
		s.logger.Warn("cannot add a worker when the client is not running or rebalancing", "state", st)
		return "", false, nil
	}

	s.poolMu.Lock()
	slot := s.nextSlot()
	entry, err := s.createWorker(slot)
	if err != nil {
		s.poolMu.Unlock()
		return "", false, fmt.Errorf("failed to create worker in slot %d: %w", slot, err)
	}
	live := s.liveCount()
	s.resize(live)
	s.poolMu.Unlock()

	s.stateMu.Lock()
	if st := s.state; st.IsRunningOrRebalancing() {
		entry.worker.Start()
		s.stateMu.Unlock()
		s.logger.Info("added worker", "worker", entry.name, "live_workers", live)

		return entry.name, true, nil
	}
	st := s.state
	s.stateMu.Unlock()

	s.logger.Warn("client stopped while adding a worker, discarding it", "worker", entry.name, "state", st)
	entry.worker.Shutdown()

	s.poolMu.Lock()
	s.removeEntry(entry)
	s.resize(s.liveCount())
	s.poolMu.Unlock()

	return "", false, nil
}

// RemoveWorker removes one live worker, waiting without a deadline.
// See RemoveWorkerWithTimeout.
func (s *Streams) RemoveWorker(ctx context.Context) (string, bool, error) {
	return s.RemoveWorkerWithTimeout(ctx, forever)
}

// RemoveWorkerWithTimeout stops the live worker in the lowest slot and unregisters it.
//
// The calling worker, identified through WithWorkerIdentity, is only chosen
// when it is the last live worker, and is never waited for. Workers busy with
// their uncaught exception policy are skipped. A worker that does not stop in
// time stays registered and is reaped once dead. Static group members are also removed
// from the consumer group.
//
// Parameters:
//   - ctx: Context for cancellation, optionally carrying the caller's worker identity
//   - timeout: Overall time budget
//
// Returns:
//   - string: Name of the removed worker
//   - bool: false when no worker was eligible or the client is not running
//   - error: ErrIllegalArgument for a negative timeout, ErrTimeout when the budget ran out
func (s *Streams) RemoveWorkerWithTimeout(ctx context.Context, timeout time.Duration) (string, bool, error) {
	if timeout < 0 {
		return "", false, fmt.Errorf("%w: timeout must not be negative, got %v", ErrIllegalArgument, timeout)
	}
	remaining := s.remainingFunc(timeout)

	if st := s.State(); !st.IsRunningOrRebalancing() {
		s.logger.Warn("cannot remove a worker when the client is not running or rebalancing", "state", st)
		return "", false, nil
	}
	caller := workerIdentity(ctx)

	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	for _, e := range s.snapshot() {
		isCaller := caller != "" && e.name == caller
		if !e.worker.State().IsAlive() || (isCaller && s.liveCount() != 1) {
			continue
		}
		if !isCaller && e.failing.Load() {
			s.logger.Debug("skipping worker handling an uncaught error", "worker", e.name)
			continue
		}

		s.logger.Info("removing worker", "worker", e.name)
		instanceID, static := e.worker.GroupInstanceID()
		e.worker.RequestLeaveGroupDuringShutdown()
		e.worker.Shutdown()

		if !isCaller {
			left := remaining()
			if left > 0 && e.worker.AwaitState(ctx, types.WorkerDead, left) {
				s.removeEntry(e)
				s.logger.Info("successfully removed worker", "worker", e.name)
			} else {
				s.logger.Warn("worker did not shut down in the allotted time", "worker", e.name, "timeout", timeout)
			}
		}
		s.resize(s.liveCount())

		if static && !isCaller {
			if err := s.removeStaticMember(ctx, instanceID, remaining()); err != nil {
				return e.name, true, err
			}
		}

		if err := ctx.Err(); err != nil {
			return e.name, true, err
		}
		if remaining() <= 0 {
			return e.name, true, fmt.Errorf("%w: worker %s did not stop in the allotted time %v", ErrTimeout, e.name, timeout)
		}

		return e.name, true, nil
	}

	s.logger.Warn("no worker is eligible for removal")

	return "", false, nil
}

// removeStaticMember removes a static member from the application's consumer group.
func (s *Streams) removeStaticMember(ctx context.Context, instanceID string, left time.Duration) error {
	if left <= 0 {
		return fmt.Errorf("%w: no time left to remove static member %s", ErrTimeout, instanceID)
	}
	if left != forever {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, left)
		defer cancel()
	}

	err := s.admin.RemoveStaticMember(ctx, s.cfg.ApplicationID, instanceID)
	switch {
	case err == nil:
		s.logger.Info("removed static member from group", "group_instance_id", instanceID)
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: could not remove static member %s from group within %v", ErrTimeout, instanceID, left)
	default:
		return fmt.Errorf("%w: could not remove static member %s from group: %w", ErrStreams, instanceID, err)
	}
}
