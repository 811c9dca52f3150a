package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"k8s.io/utils/clock"

	"github.com/zcw199604/kafka/internal/logging"
	"github.com/zcw199604/kafka/internal/metrics"
	"github.com/zcw199604/kafka/streamstest"
	"github.com/zcw199604/kafka/topology"
	"github.com/zcw199604/kafka/types"
)

const (
	testClientID = "client"
	waitFor      = 5 * time.Second
	tick         = 5 * time.Millisecond
)

type harnessOptions struct {
	workers      int
	workerOpts   streamstest.WorkerOptions
	globalStores []types.StateStore
	opts         []Option
}

type harness struct {
	streams *Streams
	pool    *streamstest.Pool
	global  *streamstest.GlobalWorkers
	admin   *streamstest.Admin
	dir     *streamstest.StateDirectory
	topo    *topology.Static
}

// newHarness builds a client named "client" over in-memory workers.
// The client is closed on test cleanup.
func newHarness(t *testing.T, ho harnessOptions) *harness {
	t.Helper()

	if ho.workers == 0 {
		ho.workers = 1
	}

	var globalNames []string
	for _, s := range ho.globalStores {
		globalNames = append(globalNames, s.Name())
	}

	h := &harness{
		pool:  streamstest.NewPool(ho.workerOpts),
		admin: streamstest.NewAdmin(),
		dir:   streamstest.NewStateDirectory(),
		topo:  topology.NewStatic("test-app", []string{"counts", "sessions"}, globalNames),
	}

	opts := []Option{
		WithLogger(logging.NewNop()),
		WithAdmin(h.admin),
		WithStateDirectory(h.dir),
	}
	if len(ho.globalStores) > 0 {
		h.global = streamstest.NewGlobalWorkers(ho.globalStores...)
		opts = append(opts, WithGlobalWorker(h.global.Factory))
	}
	opts = append(opts, ho.opts...)

	cfg := TestConfig()
	cfg.ClientID = testClientID
	cfg.NumWorkers = ho.workers

	s, err := NewStreams(&cfg, h.topo, h.pool.Factory, opts...)
	require.NoError(t, err)
	h.streams = s

	t.Cleanup(func() {
		for _, w := range h.pool.Workers() {
			w.Release()
		}
		_, _ = s.CloseWithTimeout(context.Background(), waitFor)
	})

	return h
}

// start starts the client and waits until it is running.
func (h *harness) start(t *testing.T) {
	t.Helper()

	require.NoError(t, h.streams.Start())
	h.requireState(t, StateRunning)
}

func (h *harness) requireState(t *testing.T, want State) {
	t.Helper()

	require.Eventually(t, func() bool {
		return h.streams.State() == want
	}, waitFor, tick, "client never reached %s, last state %s", want, h.streams.State())
}

func (h *harness) worker(t *testing.T, name string) *streamstest.Worker {
	t.Helper()

	w := h.pool.Worker(name)
	require.NotNil(t, w, "worker %s was never built", name)

	return w
}

func workerNames(md []WorkerMetadata) []string {
	names := make([]string, 0, len(md))
	for _, m := range md {
		names = append(names, m.Name)
	}

	return names
}

// bareStreams returns a client with only the state machinery wired.
func bareStreams() *Streams {
	return &Streams{
		clientID:     testClientID,
		logger:       logging.NewNop(),
		metrics:      metrics.NewNop(),
		clock:        clock.RealClock{},
		state:        StateCreated,
		stateChanged: make(chan struct{}),
		table:        newWorkerStateTable(),
	}
}

// recordingListener records every transition it observes.
type recordingListener struct {
	mu          sync.Mutex
	transitions []stateChange
}

func (r *recordingListener) onChange(newState, oldState State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transitions = append(r.transitions, stateChange{from: oldState, to: newState})
}

func (r *recordingListener) snapshot() []stateChange {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]stateChange(nil), r.transitions...)
}

// recordingBroadcaster records every broadcast shutdown request.
type recordingBroadcaster struct {
	mu       sync.Mutex
	requests []ShutdownRequest
}

func (b *recordingBroadcaster) BroadcastShutdown(_ context.Context, req ShutdownRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.requests = append(b.requests, req)

	return nil
}

func (b *recordingBroadcaster) snapshot() []ShutdownRequest {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]ShutdownRequest(nil), b.requests...)
}
