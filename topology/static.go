package topology

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zcw199604/kafka/types"
)

// changelogSuffix is appended to "<application>-<store>" to name a changelog topic.
const changelogSuffix = "-changelog"

// ChangelogTopic returns the conventional changelog topic of a store.
func ChangelogTopic(applicationID, store string) string {
	return applicationID + "-" + store + changelogSuffix
}

// Static implements a topology with a fixed set of stores.
type Static struct {
	applicationID string

	mu         sync.RWMutex
	local      map[string]string // store -> changelog topic
	changelogs map[string]string // changelog topic -> store
	global     map[string]struct{}
	onWakeup   func()

	wakeups atomic.Int64
}

var _ types.Topology = (*Static)(nil)

// NewStatic creates a static topology.
//
// Local stores get the conventional changelog topic of applicationID.
//
// Parameters:
//   - applicationID: Application id used to derive changelog topics
//   - localStores: Names of the partitioned local stores
//   - globalStores: Names of the fully replicated global stores
//
// Returns:
//   - *Static: Initialized topology
//
// Example:
//
//	topo := topology.NewStatic("word-count", []string{"counts"}, nil)
//	streams, err := kafka.NewStreams(&cfg, topo, factory)
func NewStatic(applicationID string, localStores []string, globalStores []string) *Static {
	s := &Static{
		applicationID: applicationID,
		local:         make(map[string]string, len(localStores)),
		changelogs:    make(map[string]string, len(localStores)),
		global:        make(map[string]struct{}, len(globalStores)),
	}
	for _, name := range localStores {
		s.addLocal(name, ChangelogTopic(applicationID, name))
	}
	for _, name := range globalStores {
		s.global[name] = struct{}{}
	}

	return s
}

// AddStore declares a local store backed by an explicit changelog topic.
func (s *Static) AddStore(name, changelogTopic string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addLocal(name, changelogTopic)
}

func (s *Static) addLocal(name, changelogTopic string) {
	s.local[name] = changelogTopic
	s.changelogs[changelogTopic] = name
}

// HasStore reports whether a local or global store with this name exists.
func (s *Static) HasStore(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.local[name]; ok {
		return true
	}
	_, ok := s.global[name]

	return ok
}

// IsGlobalStore reports whether the named store is a global store.
func (s *Static) IsGlobalStore(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.global[name]

	return ok
}

// HasGlobalStores reports whether any global store is declared.
func (s *Static) HasGlobalStores() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.global) > 0
}

// ChangelogTopicOf returns the changelog topic of a local store.
func (s *Static) ChangelogTopicOf(store string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topic, ok := s.local[store]

	return topic, ok
}

// StoreForChangelogTopic maps a changelog topic back to its store.
//
// Unknown topics following the naming convention resolve to the embedded
// store name; anything else resolves to the topic itself.
func (s *Static) StoreForChangelogTopic(topic string) string {
	s.mu.RLock()
	store, ok := s.changelogs[topic]
	s.mu.RUnlock()
	if ok {
		return store
	}

	prefix := s.applicationID + "-"
	if strings.HasPrefix(topic, prefix) && strings.HasSuffix(topic, changelogSuffix) && len(topic) > len(prefix)+len(changelogSuffix) {
		return strings.TrimSuffix(strings.TrimPrefix(topic, prefix), changelogSuffix)
	}

	return topic
}

// OnWakeup sets a function run by WakeupWorkers, for example to interrupt
// blocking polls in the processing layer.
func (s *Static) OnWakeup(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onWakeup = fn
}

// WakeupWorkers runs the wakeup function, if any, and counts the call.
func (s *Static) WakeupWorkers() {
	s.wakeups.Add(1)

	s.mu.RLock()
	fn := s.onWakeup
	s.mu.RUnlock()

	if fn != nil {
		fn()
	}
}

// Wakeups returns how many times WakeupWorkers was called.
func (s *Static) Wakeups() int64 {
	return s.wakeups.Load()
}
