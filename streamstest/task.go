package streamstest

import (
	"context"
	"maps"
	"sync"

	"github.com/zcw199604/kafka/types"
)

// KeyQuery looks up a single key in a Store.
type KeyQuery struct {
	Key string
}

// Store is an in-memory key-value store answering KeyQuery.
type Store struct {
	name string

	mu       sync.Mutex
	data     map[string]any
	position types.Position
	queries  int
}

var _ types.StateStore = (*Store)(nil)

// NewStore creates an empty store.
func NewStore(name string) *Store {
	return &Store{
		name:     name,
		data:     make(map[string]any),
		position: types.Position{},
	}
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.name
}

// Put writes key and advances the store position to offset on topic and partition.
func (s *Store) Put(key string, value any, topic string, partition int32, offset int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	s.position.Merge(types.Position{topic: {partition: offset}})
}

// Queries returns how many queries the store served.
func (s *Store) Queries() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queries
}

// Query answers a KeyQuery if the store satisfies bound.
func (s *Store) Query(_ context.Context, query any, bound types.PositionBound, cfg types.QueryConfig) types.QueryResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries++

	q, ok := query.(KeyQuery)
	if !ok {
		return types.Failure(types.FailureUnknownQueryType, "store "+s.name+" only serves KeyQuery")
	}
	if !bound.IsUnbounded() && !s.reached(bound.Position()) {
		return types.Failure(types.FailureNotUpToBound, "store "+s.name+" has not caught up with the bound")
	}

	position := types.Position{}
	position.Merge(s.position)
	res := types.Success(s.data[q.Key], position)
	if cfg.CollectExecutionInfo {
		res.ExecutionInfo = []string{"handled by " + s.name}
	}

	return res
}

func (s *Store) reached(required types.Position) bool {
	for topic, partitions := range required {
		for partition, offset := range partitions {
			if s.position[topic][partition] < offset {
				return false
			}
		}
	}

	return true
}

// Task is an in-memory task owning stores.
type Task struct {
	id     types.TaskID
	active bool

	mu         sync.Mutex
	stores     map[string]types.StateStore
	changelogs []types.TopicPartition
	offsets    map[types.TopicPartition]int64
}

var _ types.Task = (*Task)(nil)

// NewTask creates a task for id owning stores.
func NewTask(id types.TaskID, active bool, stores ...types.StateStore) *Task {
	t := &Task{
		id:      id,
		active:  active,
		stores:  make(map[string]types.StateStore, len(stores)),
		offsets: make(map[types.TopicPartition]int64),
	}
	for _, s := range stores {
		t.stores[s.Name()] = s
	}

	return t
}

// ID returns the task id.
func (t *Task) ID() types.TaskID {
	return t.id
}

// IsActive reports whether the task is active.
func (t *Task) IsActive() bool {
	return t.active
}

// Store returns the named store.
func (t *Task) Store(name string) (types.StateStore, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stores[name]

	return s, ok
}

// WithChangelog declares a changelog partition and, when restored, its position.
func (t *Task) WithChangelog(tp types.TopicPartition, offset int64, restored bool) *Task {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.changelogs = append(t.changelogs, tp)
	if restored {
		t.offsets[tp] = offset
	}

	return t
}

// ChangelogPartitions returns the declared changelog partitions.
func (t *Task) ChangelogPartitions() []types.TopicPartition {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]types.TopicPartition(nil), t.changelogs...)
}

// ChangelogOffsets returns the restored changelog positions.
func (t *Task) ChangelogOffsets() map[types.TopicPartition]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return maps.Clone(t.offsets)
}
