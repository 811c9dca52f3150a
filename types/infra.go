package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Topology describes the stores declared by the processing topology.
type Topology interface {
	// HasStore reports whether a local or global store with this name exists.
	HasStore(name string) bool

	// IsGlobalStore reports whether the named store is a global store.
	IsGlobalStore(name string) bool

	// HasGlobalStores reports whether the topology needs a global worker.
	HasGlobalStores() bool

	// StoreForChangelogTopic maps a changelog topic back to its store name.
	StoreForChangelogTopic(topic string) string

	// WakeupWorkers unblocks any worker goroutine parked in the processing layer.
	WakeupWorkers()
}

// Admin is the broker administration interface used by the client.
type Admin interface {
	// ListEndOffsets fetches the end offsets of the given partitions in one batched call.
	ListEndOffsets(ctx context.Context, partitions []TopicPartition) (map[TopicPartition]int64, error)

	// RemoveStaticMember removes a static member from the group.
	RemoveStaticMember(ctx context.Context, groupID, instanceID string) error

	Close() error
}

// StateDirectory is the local persistent state directory.
type StateDirectory interface {
	// InitializeProcessID loads the persisted process id or creates one.
	InitializeProcessID() (uuid.UUID, error)

	// CleanRemovedTasks deletes task directories unused for longer than delay.
	CleanRemovedTasks(delay time.Duration) error

	// Clean wipes the application's local state.
	Clean() error

	Close() error
}

// ShutdownBroadcaster publishes an application-wide shutdown request.
type ShutdownBroadcaster interface {
	BroadcastShutdown(ctx context.Context, req ShutdownRequest) error
}

// ShutdownRequest describes an application-wide shutdown request.
type ShutdownRequest struct {
	ApplicationID string    `json:"applicationId"`
	ClientID      string    `json:"clientId"`
	Reason        string    `json:"reason"`
	RequestedAt   time.Time `json:"requestedAt"`
}
