package streamstest

import (
	"context"
	"maps"
	"strconv"
	"sync"
	"time"

	"github.com/zcw199604/kafka/types"
)

// WorkerOptions configures the workers built by a Pool.
type WorkerOptions struct {
	// ManualRun keeps started workers in WorkerStarting until the test drives
	// them with SetState.
	ManualRun bool

	// HoldExit keeps shut down workers in WorkerPendingShutdown until Release.
	HoldExit bool

	// GroupInstanceID enables static membership with "<id>-<slot>".
	GroupInstanceID string
}

// Pool is a worker factory recording every worker it builds.
//
// Example:
//
//	pool := streamstest.NewPool(streamstest.WorkerOptions{})
//	streams, err := kafka.NewStreams(&cfg, topo, pool.Factory)
type Pool struct {
	opts WorkerOptions

	mu      sync.Mutex
	workers []*Worker
	fail    error
}

// NewPool creates a worker pool.
func NewPool(opts WorkerOptions) *Pool {
	return &Pool{opts: opts}
}

// FailNext makes the next Factory call return err.
func (p *Pool) FailNext(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.fail = err
}

// Factory builds a Worker from spec. It satisfies types.WorkerFactory.
func (p *Pool) Factory(spec types.WorkerSpec) (types.Worker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.fail; err != nil {
		p.fail = nil
		return nil, err
	}

	w := newWorker(spec, p.opts)
	p.workers = append(p.workers, w)

	return w, nil
}

// Workers returns every worker built so far in creation order.
func (p *Pool) Workers() []*Worker {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]*Worker(nil), p.workers...)
}

// Worker returns the most recently built worker with the given name.
func (p *Pool) Worker(name string) *Worker {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := len(p.workers) - 1; i >= 0; i-- {
		if p.workers[i].Name() == name {
			return p.workers[i]
		}
	}

	return nil
}

// Worker is an in-memory worker with a goroutine lifecycle.
type Worker struct {
	spec types.WorkerSpec
	opts WorkerOptions

	mu               sync.Mutex
	state            types.WorkerState
	changed          chan struct{}
	tasks            map[types.TaskID]types.Task
	cacheBytes       int64
	bufferBytes      int64
	started          bool
	leaveGroup       bool
	shutdownRequests []string

	failures  chan failure
	stop      chan struct{}
	stopOnce  sync.Once
	release   chan struct{}
	relOnce   sync.Once
	done      chan struct{}
	doneOnce  sync.Once
	exitError error
}

type failure struct {
	err             error
	skipReplacement bool
}

var _ types.Worker = (*Worker)(nil)

func newWorker(spec types.WorkerSpec, opts WorkerOptions) *Worker {
	return &Worker{
		spec:        spec,
		opts:        opts,
		state:       types.WorkerCreated,
		changed:     make(chan struct{}),
		tasks:       make(map[types.TaskID]types.Task),
		cacheBytes:  spec.CacheBytes,
		bufferBytes: spec.BufferBytes,
		failures:    make(chan failure),
		stop:        make(chan struct{}),
		release:     make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Name returns the worker name.
func (w *Worker) Name() string {
	return w.spec.Name
}

// Slot returns the worker's slot.
func (w *Worker) Slot() int {
	return w.spec.Slot
}

// Start launches the worker goroutine.
func (w *Worker) Start() {
	w.mu.Lock()
	if w.started || w.state != types.WorkerCreated {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	go w.run()
}

func (w *Worker) run() {
	defer w.exit()

	w.SetState(types.WorkerStarting)
	if !w.opts.ManualRun {
		w.SetState(types.WorkerPartitionsAssigned)
		w.SetState(types.WorkerRunning)
	}

	for {
		select {
		case <-w.stop:
			return
		case f := <-w.failures:
			if err := w.spec.Callbacks.OnUncaughtError(f.err, f.skipReplacement); err != nil {
				w.mu.Lock()
				w.exitError = err
				w.mu.Unlock()

				return
			}
		}
	}
}

func (w *Worker) exit() {
	w.SetState(types.WorkerPendingShutdown)
	if w.opts.HoldExit {
		<-w.release
	}
	w.SetState(types.WorkerDead)
	w.doneOnce.Do(func() { close(w.done) })
}

// Shutdown signals the worker goroutine to exit.
//
// A never started worker is marked dead at once.
func (w *Worker) Shutdown() {
	w.mu.Lock()
	started := w.started
	state := w.state
	w.mu.Unlock()

	if state == types.WorkerDead {
		return
	}
	if !started {
		w.SetState(types.WorkerDead)
		w.doneOnce.Do(func() { close(w.done) })

		return
	}

	w.SetState(types.WorkerPendingShutdown)
	w.stopOnce.Do(func() { close(w.stop) })
}

// Release lets a worker held by HoldExit finish its shutdown.
func (w *Worker) Release() {
	w.relOnce.Do(func() { close(w.release) })
}

// Fail injects an uncaught error into the worker goroutine and waits until
// the worker picked it up. It reports false if the worker was not running.
func (w *Worker) Fail(err error, skipReplacement bool) bool {
	select {
	case w.failures <- failure{err: err, skipReplacement: skipReplacement}:
		return true
	case <-w.done:
		return false
	case <-w.stop:
		return false
	}
}

// ExitError returns the error that made the worker exit, if any.
func (w *Worker) ExitError() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.exitError
}

// SetState moves the worker to state and reports it to the client.
// Once shutting down a worker only moves on to WorkerDead.
func (w *Worker) SetState(state types.WorkerState) {
	w.mu.Lock()
	old := w.state
	if old == types.WorkerDead || (old == types.WorkerPendingShutdown && state != types.WorkerDead) {
		w.mu.Unlock()
		return
	}
	w.state = state
	close(w.changed)
	w.changed = make(chan struct{})
	w.mu.Unlock()

	if cb := w.spec.Callbacks.OnStateChange; cb != nil {
		cb(state, old)
	}
}

// State returns the current sub-state.
func (w *Worker) State() types.WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.state
}

// AwaitState blocks until the worker reaches target, the timeout elapses or ctx is done.
func (w *Worker) AwaitState(ctx context.Context, target types.WorkerState, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		w.mu.Lock()
		state, changed := w.state, w.changed
		w.mu.Unlock()

		if state == target {
			return true
		}

		select {
		case <-changed:
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

// Done is closed once the worker has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Resize records the worker's budget share.
func (w *Worker) Resize(cacheBytes, bufferBytes int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cacheBytes = cacheBytes
	w.bufferBytes = bufferBytes
}

// Budget returns the last budget share.
func (w *Worker) Budget() (cacheBytes, bufferBytes int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.cacheBytes, w.bufferBytes
}

// AssignTasks replaces the worker's tasks.
func (w *Worker) AssignTasks(tasks ...*Task) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tasks = make(map[types.TaskID]types.Task, len(tasks))
	for _, t := range tasks {
		w.tasks[t.ID()] = t
	}
}

// Tasks returns a copy of the worker's tasks.
func (w *Worker) Tasks() map[types.TaskID]types.Task {
	w.mu.Lock()
	defer w.mu.Unlock()

	return maps.Clone(w.tasks)
}

// RequestLeaveGroupDuringShutdown records the request.
func (w *Worker) RequestLeaveGroupDuringShutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.leaveGroup = true
}

// LeaveGroupRequested reports whether RequestLeaveGroupDuringShutdown was called.
func (w *Worker) LeaveGroupRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.leaveGroup
}

// GroupInstanceID returns the static membership id when configured.
func (w *Worker) GroupInstanceID() (string, bool) {
	if w.opts.GroupInstanceID == "" {
		return "", false
	}

	return w.opts.GroupInstanceID + "-" + strconv.Itoa(w.spec.Slot), true
}

// SendShutdownRequest records the request.
func (w *Worker) SendShutdownRequest(reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.shutdownRequests = append(w.shutdownRequests, reason)
}

// ShutdownRequests returns the reasons of every shutdown request sent.
func (w *Worker) ShutdownRequests() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]string(nil), w.shutdownRequests...)
}
