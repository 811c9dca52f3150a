package streamstest

import (
	"sync"

	"github.com/zcw199604/kafka/types"
)

// GlobalWorkers is a global worker factory recording the worker it builds.
type GlobalWorkers struct {
	stores []types.StateStore

	mu     sync.Mutex
	worker *GlobalWorker
}

// NewGlobalWorkers creates a factory whose global worker serves stores.
func NewGlobalWorkers(stores ...types.StateStore) *GlobalWorkers {
	return &GlobalWorkers{stores: stores}
}

// Factory builds the global worker. It satisfies types.GlobalWorkerFactory.
func (g *GlobalWorkers) Factory(spec types.GlobalWorkerSpec) (types.GlobalWorker, error) {
	w := &GlobalWorker{
		spec:       spec,
		state:      types.GlobalCreated,
		stores:     make(map[string]types.StateStore, len(g.stores)),
		cacheBytes: spec.CacheBytes,
		failures:   make(chan error),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, s := range g.stores {
		w.stores[s.Name()] = s
	}

	g.mu.Lock()
	g.worker = w
	g.mu.Unlock()

	return w, nil
}

// Worker returns the built global worker, or nil before the factory ran.
func (g *GlobalWorkers) Worker() *GlobalWorker {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.worker
}

// GlobalWorker is an in-memory global worker.
type GlobalWorker struct {
	spec   types.GlobalWorkerSpec
	stores map[string]types.StateStore

	mu         sync.Mutex
	state      types.GlobalWorkerState
	started    bool
	cacheBytes int64

	failures chan error
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once
}

var _ types.GlobalWorker = (*GlobalWorker)(nil)

// Name returns the worker name.
func (w *GlobalWorker) Name() string {
	return w.spec.Name
}

// Start launches the worker goroutine, which reports running at once.
func (w *GlobalWorker) Start() {
	w.mu.Lock()
	if w.started || w.state != types.GlobalCreated {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	go w.run()
}

func (w *GlobalWorker) run() {
	defer func() {
		w.setState(types.GlobalPendingShutdown)
		w.setState(types.GlobalDead)
		w.doneOnce.Do(func() { close(w.done) })
	}()

	w.setState(types.GlobalRunning)
	for {
		select {
		case <-w.stop:
			return
		case err := <-w.failures:
			if w.spec.OnUncaughtError(err) != nil {
				return
			}
		}
	}
}

// Shutdown signals the worker goroutine to exit.
func (w *GlobalWorker) Shutdown() {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	if !started {
		w.setState(types.GlobalDead)
		w.doneOnce.Do(func() { close(w.done) })

		return
	}
	w.setState(types.GlobalPendingShutdown)
	w.stopOnce.Do(func() { close(w.stop) })
}

// Fail injects an uncaught error into the worker goroutine.
func (w *GlobalWorker) Fail(err error) bool {
	select {
	case w.failures <- err:
		return true
	case <-w.done:
		return false
	case <-w.stop:
		return false
	}
}

func (w *GlobalWorker) setState(state types.GlobalWorkerState) {
	w.mu.Lock()
	old := w.state
	if old == state || old == types.GlobalDead || (old == types.GlobalPendingShutdown && state != types.GlobalDead) {
		w.mu.Unlock()
		return
	}
	w.state = state
	w.mu.Unlock()

	if w.spec.OnStateChange != nil {
		w.spec.OnStateChange(state, old)
	}
}

// State returns the current sub-state.
func (w *GlobalWorker) State() types.GlobalWorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.state
}

// Done is closed once the worker has exited.
func (w *GlobalWorker) Done() <-chan struct{} {
	return w.done
}

// Resize records the cache share.
func (w *GlobalWorker) Resize(cacheBytes int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cacheBytes = cacheBytes
}

// CacheBytes returns the last cache share.
func (w *GlobalWorker) CacheBytes() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.cacheBytes
}

// Store returns the named global store.
func (w *GlobalWorker) Store(name string) (types.StateStore, bool) {
	s, ok := w.stores[name]
	return s, ok
}
