package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zcw199604/kafka/streamstest"
)

func TestAddWorker(t *testing.T) {
	t.Run("refused before start", func(t *testing.T) {
		h := newHarness(t, harnessOptions{})

		name, ok, err := h.streams.AddWorker()
		require.NoError(t, err)
		require.False(t, ok)
		require.Empty(t, name)
		require.Len(t, h.pool.Workers(), 1)
	})

	t.Run("starts a worker in the next slot and splits the budget", func(t *testing.T) {
		h := newHarness(t, harnessOptions{})
		h.start(t)

		name, ok, err := h.streams.AddWorker()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "client-worker-2", name)
		h.requireState(t, StateRunning)

		for _, w := range h.pool.Workers() {
			cache, buffer := w.Budget()
			require.Equal(t, int64(500), cache, w.Name())
			require.Equal(t, int64(300), buffer, w.Name())
		}
		require.Equal(t, []string{"client-worker-1", "client-worker-2"}, workerNames(h.streams.MetadataForLocalWorkers()))
	})

	t.Run("global worker keeps a budget share", func(t *testing.T) {
		h := newHarness(t, harnessOptions{globalStores: []StateStore{streamstest.NewStore("users")}})
		h.start(t)

		_, ok, err := h.streams.AddWorker()
		require.NoError(t, err)
		require.True(t, ok)

		for _, w := range h.pool.Workers() {
			cache, buffer := w.Budget()
			require.Equal(t, int64(1000/3), cache, w.Name())
			require.Equal(t, int64(600/3), buffer, w.Name())
		}
		require.Equal(t, int64(1000/3), h.global.Worker().CacheBytes())
	})

	t.Run("construction failure", func(t *testing.T) {
		h := newHarness(t, harnessOptions{})
		h.start(t)

		h.pool.FailNext(errors.New("no memory"))
		_, ok, err := h.streams.AddWorker()
		require.Error(t, err)
		require.False(t, ok)
		require.Equal(t, []string{"client-worker-1"}, workerNames(h.streams.MetadataForLocalWorkers()))
	})

	t.Run("concurrent additions take distinct slots", func(t *testing.T) {
		h := newHarness(t, harnessOptions{})
		h.start(t)

		var (
			mu    sync.Mutex
			names = make(map[string]struct{})
			wg    sync.WaitGroup
		)
		for range 5 {
			wg.Go(func() {
				name, ok, err := h.streams.AddWorker()
				if err != nil || !ok {
					return
				}
				mu.Lock()
				names[name] = struct{}{}
				mu.Unlock()
			})
		}
		wg.Wait()

		require.Len(t, names, 5)
		for slot := 2; slot <= 6; slot++ {
			require.Contains(t, names, fmt.Sprintf("client-worker-%d", slot))
		}

		h.requireState(t, StateRunning)
		cache, buffer := h.worker(t, "client-worker-6").Budget()
		require.Equal(t, int64(1000/6), cache)
		require.Equal(t, int64(600/6), buffer)
	})
}

func TestRemoveWorker_SkipsWorkerHandlingFailure(t *testing.T) {
	entered := make(chan struct{})
	proceed := make(chan struct{})
	release := sync.OnceFunc(func() { close(proceed) })

	h := newHarness(t, harnessOptions{
		workers: 2,
		opts: []Option{WithUncaughtExceptionHandler(func(error) ExceptionResponse {
			close(entered)
			<-proceed
			return ReplaceWorker
		})},
	})
	t.Cleanup(release)
	h.start(t)

	failing := h.worker(t, "client-worker-1")
	require.True(t, failing.Fail(errBoom, false))
	<-entered

	name, ok, err := h.streams.RemoveWorkerWithTimeout(t.Context(), 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "client-worker-2", name)
	require.True(t, failing.State().IsAlive())

	release()
	require.Eventually(t, func() bool {
		return failing.State() == WorkerDead
	}, waitFor, tick)
	require.ErrorIs(t, failing.ExitError(), errBoom)
}

func TestRemoveWorker(t *testing.T) {
	t.Run("refused before start", func(t *testing.T) {
		h := newHarness(t, harnessOptions{})

		name, ok, err := h.streams.RemoveWorker(t.Context())
		require.NoError(t, err)
		require.False(t, ok)
		require.Empty(t, name)
	})

	t.Run("negative timeout", func(t *testing.T) {
		h := newHarness(t, harnessOptions{})
		h.start(t)

		_, _, err := h.streams.RemoveWorkerWithTimeout(t.Context(), -time.Second)
		require.ErrorIs(t, err, ErrIllegalArgument)
	})

	t.Run("removes the lowest slot and reuses it", func(t *testing.T) {
		h := newHarness(t, harnessOptions{workers: 2})
		h.start(t)
		first := h.worker(t, "client-worker-1")

		name, ok, err := h.streams.RemoveWorker(t.Context())
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "client-worker-1", name)
		require.Equal(t, WorkerDead, first.State())
		require.True(t, first.LeaveGroupRequested())
		require.Equal(t, []string{"client-worker-2"}, workerNames(h.streams.MetadataForLocalWorkers()))

		cache, buffer := h.worker(t, "client-worker-2").Budget()
		require.Equal(t, int64(1000), cache)
		require.Equal(t, int64(600), buffer)
		require.Equal(t, StateRunning, h.streams.State())

		name, ok, err = h.streams.AddWorker()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "client-worker-1", name)
		require.NotSame(t, first, h.worker(t, "client-worker-1"))
		h.requireState(t, StateRunning)
	})

	t.Run("skips the calling worker", func(t *testing.T) {
		h := newHarness(t, harnessOptions{workers: 2})
		h.start(t)

		ctx := WithWorkerIdentity(t.Context(), "client-worker-1")
		name, ok, err := h.streams.RemoveWorker(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "client-worker-2", name)
		require.Equal(t, WorkerRunning, h.worker(t, "client-worker-1").State())
	})

	t.Run("removes the calling worker when it is the last one", func(t *testing.T) {
		h := newHarness(t, harnessOptions{workerOpts: streamstest.WorkerOptions{HoldExit: true}})
		h.start(t)
		self := h.worker(t, "client-worker-1")

		ctx := WithWorkerIdentity(t.Context(), "client-worker-1")
		name, ok, err := h.streams.RemoveWorkerWithTimeout(ctx, time.Second)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "client-worker-1", name)

		// Never waited for, so it is still draining.
		require.Equal(t, WorkerPendingShutdown, self.State())
		self.Release()
		require.Eventually(t, func() bool { return self.State() == WorkerDead }, waitFor, tick)
		require.Empty(t, h.streams.MetadataForLocalWorkers())
	})

	t.Run("slow worker times out and is reaped later", func(t *testing.T) {
		h := newHarness(t, harnessOptions{workers: 2, workerOpts: streamstest.WorkerOptions{HoldExit: true}})
		h.start(t)
		slow := h.worker(t, "client-worker-1")

		name, ok, err := h.streams.RemoveWorkerWithTimeout(t.Context(), 50*time.Millisecond)
		require.ErrorIs(t, err, ErrTimeout)
		require.True(t, ok)
		require.Equal(t, "client-worker-1", name)

		md := h.streams.MetadataForLocalWorkers()
		require.Equal(t, []string{"client-worker-1", "client-worker-2"}, workerNames(md))
		require.Equal(t, WorkerPendingShutdown, md[0].State)

		cache, _ := h.worker(t, "client-worker-2").Budget()
		require.Equal(t, int64(1000), cache)

		slow.Release()
		require.Eventually(t, func() bool { return slow.State() == WorkerDead }, waitFor, tick)

		name, ok, err = h.streams.AddWorker()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "client-worker-1", name)
	})

	t.Run("cancelled context", func(t *testing.T) {
		h := newHarness(t, harnessOptions{workers: 2, workerOpts: streamstest.WorkerOptions{HoldExit: true}})
		h.start(t)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		name, ok, err := h.streams.RemoveWorker(ctx)
		require.ErrorIs(t, err, context.Canceled)
		require.True(t, ok)
		require.Equal(t, "client-worker-1", name)
	})

	t.Run("no eligible worker", func(t *testing.T) {
		h := newHarness(t, harnessOptions{workerOpts: streamstest.WorkerOptions{HoldExit: true}})
		h.start(t)
		h.worker(t, "client-worker-1").Shutdown()

		name, ok, err := h.streams.RemoveWorker(t.Context())
		require.NoError(t, err)
		require.False(t, ok)
		require.Empty(t, name)
	})
}

func TestRemoveWorker_StaticMembership(t *testing.T) {
	t.Run("removes the member from the group", func(t *testing.T) {
		h := newHarness(t, harnessOptions{workers: 2, workerOpts: streamstest.WorkerOptions{GroupInstanceID: "static"}})
		h.start(t)

		name, ok, err := h.streams.RemoveWorker(t.Context())
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "client-worker-1", name)
		require.Equal(t, []string{"test-app/static-1"}, h.admin.RemovedMembers())
	})

	t.Run("not for the calling worker", func(t *testing.T) {
		h := newHarness(t, harnessOptions{workerOpts: streamstest.WorkerOptions{GroupInstanceID: "static"}})
		h.start(t)

		ctx := WithWorkerIdentity(t.Context(), "client-worker-1")
		_, ok, err := h.streams.RemoveWorker(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Empty(t, h.admin.RemovedMembers())
	})

	t.Run("group removal exceeds the timeout", func(t *testing.T) {
		h := newHarness(t, harnessOptions{workers: 2, workerOpts: streamstest.WorkerOptions{GroupInstanceID: "static"}})
		h.start(t)
		h.admin.DelayRemoval(time.Second)

		name, ok, err := h.streams.RemoveWorkerWithTimeout(t.Context(), 100*time.Millisecond)
		require.ErrorIs(t, err, ErrTimeout)
		require.True(t, ok)
		require.Equal(t, "client-worker-1", name)
		require.Empty(t, h.admin.RemovedMembers())
	})
}
