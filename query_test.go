package kafka

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/zcw199604/kafka/streamstest"
	"github.com/zcw199604/kafka/topology"
	"github.com/zcw199604/kafka/types"
)

var countsChangelog = topology.ChangelogTopic("test-app", "counts")

// ignoreMessage compares failures by reason only.
var ignoreMessage = cmpopts.IgnoreFields(QueryResult{}, "FailureMsg")

func countsStore(partition int32, value any, offset int64) *streamstest.Store {
	s := streamstest.NewStore("counts")
	s.Put("a", value, countsChangelog, partition, offset)

	return s
}

func position(partition int32, offset int64) types.Position {
	return types.Position{countsChangelog: {partition: offset}}
}

func failure(reason FailureReason) QueryResult {
	return QueryResult{Failure: reason}
}

func TestQuery_Access(t *testing.T) {
	h := newHarness(t, harnessOptions{globalStores: []StateStore{streamstest.NewStore("users")}})
	req := types.InStore("counts", streamstest.KeyQuery{Key: "a"})

	_, err := h.streams.Query(t.Context(), types.InStore("missing", nil))
	require.ErrorIs(t, err, ErrUnknownStore)

	_, err = h.streams.Query(t.Context(), req)
	require.ErrorIs(t, err, ErrNotStarted)

	h.start(t)
	_, err = h.streams.Query(t.Context(), req)
	require.NoError(t, err)

	require.NoError(t, h.streams.Close())
	_, err = h.streams.Query(t.Context(), req)
	require.ErrorIs(t, err, ErrStopped)
}

func TestQuery_GlobalStore(t *testing.T) {
	h := newHarness(t, harnessOptions{globalStores: []StateStore{streamstest.NewStore("users")}})
	h.start(t)

	res, err := h.streams.Query(t.Context(), types.InStore("users", streamstest.KeyQuery{Key: "a"}))
	require.NoError(t, err)
	require.Empty(t, res.Partitions)
	require.NotNil(t, res.Global)
	require.Equal(t, FailureUnknownQueryType, res.Global.Failure)
}

func TestQuery_Partitions(t *testing.T) {
	h := newHarness(t, harnessOptions{workers: 2})
	h.start(t)

	h.worker(t, "client-worker-1").AssignTasks(
		streamstest.NewTask(TaskID{Partition: 0}, true, countsStore(0, 10, 5)),
	)
	h.worker(t, "client-worker-2").AssignTasks(
		streamstest.NewTask(TaskID{Partition: 1}, true, countsStore(1, 20, 7)),
		streamstest.NewTask(TaskID{Partition: 2}, false, countsStore(2, 30, 3)),
	)

	tests := []struct {
		name string
		req  StateQueryRequest
		want map[int32]QueryResult
	}{
		{
			name: "all local partitions",
			req:  types.InStore("counts", streamstest.KeyQuery{Key: "a"}),
			want: map[int32]QueryResult{
				0: types.Success(10, position(0, 5)),
				1: types.Success(20, position(1, 7)),
				2: types.Success(30, position(2, 3)),
			},
		},
		{
			name: "requested partitions",
			req:  types.InStore("counts", streamstest.KeyQuery{Key: "a"}).WithPartitions(1, 9),
			want: map[int32]QueryResult{
				1: types.Success(20, position(1, 7)),
				9: failure(FailureNotPresent),
			},
		},
		{
			name: "explicit empty partition set",
			req:  types.InStore("counts", streamstest.KeyQuery{Key: "a"}).WithPartitions(),
			want: map[int32]QueryResult{},
		},
		{
			name: "active only",
			req:  types.InStore("counts", streamstest.KeyQuery{Key: "a"}).RequireActiveOnly(),
			want: map[int32]QueryResult{
				0: types.Success(10, position(0, 5)),
				1: types.Success(20, position(1, 7)),
				2: failure(FailureNotActive),
			},
		},
		{
			name: "position bound not reached",
			req: types.InStore("counts", streamstest.KeyQuery{Key: "a"}).
				WithPartitions(0).
				WithPositionBound(types.AtLeast(position(0, 6))),
			want: map[int32]QueryResult{
				0: failure(FailureNotUpToBound),
			},
		},
		{
			name: "active only ignores the bound",
			req: types.InStore("counts", streamstest.KeyQuery{Key: "a"}).
				WithPartitions(0).
				WithPositionBound(types.AtLeast(position(0, 6))).
				RequireActiveOnly(),
			want: map[int32]QueryResult{
				0: types.Success(10, position(0, 5)),
			},
		},
		{
			name: "unknown query type",
			req:  types.InStore("counts", "SELECT *").WithPartitions(0),
			want: map[int32]QueryResult{
				0: failure(FailureUnknownQueryType),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.streams.Query(t.Context(), tt.req)
			require.NoError(t, err)
			require.Nil(t, res.Global)
			if diff := cmp.Diff(tt.want, res.Partitions, ignoreMessage); diff != "" {
				t.Errorf("Query() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQuery_ActiveAnswerWinsOverStandby(t *testing.T) {
	h := newHarness(t, harnessOptions{workers: 2})
	h.start(t)

	h.worker(t, "client-worker-1").AssignTasks(
		streamstest.NewTask(TaskID{Partition: 0}, false, countsStore(0, "stale", 2)),
	)
	h.worker(t, "client-worker-2").AssignTasks(
		streamstest.NewTask(TaskID{Partition: 0}, true, countsStore(0, "fresh", 9)),
	)

	res, err := h.streams.Query(t.Context(), types.InStore("counts", streamstest.KeyQuery{Key: "a"}).RequireActiveOnly())
	require.NoError(t, err)
	if diff := cmp.Diff(map[int32]QueryResult{0: types.Success("fresh", position(0, 9))}, res.Partitions); diff != "" {
		t.Errorf("Query() mismatch (-want +got):\n%s", diff)
	}
}

func TestQuery_StopsOnceRequestedPartitionsAnswered(t *testing.T) {
	h := newHarness(t, harnessOptions{workers: 2})
	h.start(t)

	first := countsStore(0, 1, 1)
	second := countsStore(0, 1, 1)
	h.worker(t, "client-worker-1").AssignTasks(streamstest.NewTask(TaskID{Partition: 0}, true, first))
	h.worker(t, "client-worker-2").AssignTasks(streamstest.NewTask(TaskID{Partition: 0}, false, second))

	res, err := h.streams.Query(t.Context(), types.InStore("counts", streamstest.KeyQuery{Key: "a"}).WithPartitions(0))
	require.NoError(t, err)
	require.True(t, res.Partitions[0].IsSuccess())
	require.Equal(t, 1, first.Queries())
	require.Zero(t, second.Queries())
}

func TestQuery_NotActiveOnStoppedWorker(t *testing.T) {
	h := newHarness(t, harnessOptions{workers: 2, workerOpts: streamstest.WorkerOptions{HoldExit: true}})
	h.start(t)

	draining := h.worker(t, "client-worker-1")
	draining.AssignTasks(streamstest.NewTask(TaskID{Partition: 0}, true, countsStore(0, 1, 1)))
	draining.Shutdown()

	res, err := h.streams.Query(t.Context(), types.InStore("counts", streamstest.KeyQuery{Key: "a"}).RequireActiveOnly())
	require.NoError(t, err)
	require.Equal(t, FailureNotActive, res.Partitions[0].Failure)
	require.Contains(t, res.Partitions[0].FailureMsg, "client-worker-1")
}

func TestQuery_ExecutionInfoAndPosition(t *testing.T) {
	h := newHarness(t, harnessOptions{workers: 2})
	h.start(t)

	h.worker(t, "client-worker-1").AssignTasks(streamstest.NewTask(TaskID{Partition: 0}, true, countsStore(0, 1, 4)))
	h.worker(t, "client-worker-2").AssignTasks(streamstest.NewTask(TaskID{Partition: 1}, true, countsStore(1, 2, 8)))

	req := types.InStore("counts", streamstest.KeyQuery{Key: "a"})
	req.CollectExecutionInfo = true

	res, err := h.streams.Query(t.Context(), req)
	require.NoError(t, err)
	require.Equal(t, []string{"handled by counts"}, res.Partitions[0].ExecutionInfo)
	require.Equal(t, types.Position{countsChangelog: {0: 4, 1: 8}}, res.Position())
}
