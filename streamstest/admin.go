package streamstest

import (
	"context"
	"sync"
	"time"

	"github.com/zcw199604/kafka/types"
)

// Admin is an in-memory broker admin with scripted end offsets.
type Admin struct {
	mu          sync.Mutex
	endOffsets  map[types.TopicPartition]int64
	listErr     error
	removeDelay time.Duration
	removed     []string
	listCalls   int
	requested   [][]types.TopicPartition
	closeCalls  int
}

var _ types.Admin = (*Admin)(nil)

// NewAdmin creates an admin without end offsets.
func NewAdmin() *Admin {
	return &Admin{endOffsets: make(map[types.TopicPartition]int64)}
}

// SetEndOffset scripts the end offset of a partition.
func (a *Admin) SetEndOffset(tp types.TopicPartition, offset int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.endOffsets[tp] = offset
}

// FailListing makes ListEndOffsets return err.
func (a *Admin) FailListing(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.listErr = err
}

// DelayRemoval makes RemoveStaticMember block for d or until ctx is done.
func (a *Admin) DelayRemoval(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.removeDelay = d
}

// ListEndOffsets returns the scripted end offsets of the requested partitions.
// Partitions without a scripted offset are omitted.
func (a *Admin) ListEndOffsets(_ context.Context, partitions []types.TopicPartition) (map[types.TopicPartition]int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.listCalls++
	a.requested = append(a.requested, append([]types.TopicPartition(nil), partitions...))
	if a.listErr != nil {
		return nil, a.listErr
	}

	out := make(map[types.TopicPartition]int64, len(partitions))
	for _, tp := range partitions {
		if end, ok := a.endOffsets[tp]; ok {
			out[tp] = end
		}
	}

	return out, nil
}

// RemoveStaticMember records the removed member.
func (a *Admin) RemoveStaticMember(ctx context.Context, groupID, instanceID string) error {
	a.mu.Lock()
	delay := a.removeDelay
	a.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.removed = append(a.removed, groupID+"/"+instanceID)

	return nil
}

// RemovedMembers returns "<group>/<instance>" for every removed static member.
func (a *Admin) RemovedMembers() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]string(nil), a.removed...)
}

// ListCalls returns how many times ListEndOffsets was called.
func (a *Admin) ListCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.listCalls
}

// Requested returns the partitions of every ListEndOffsets call.
func (a *Admin) Requested() [][]types.TopicPartition {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([][]types.TopicPartition(nil), a.requested...)
}

// Close records the call.
func (a *Admin) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closeCalls++

	return nil
}

// Closed reports whether Close was called.
func (a *Admin) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.closeCalls > 0
}
