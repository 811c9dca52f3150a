package kafka

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zcw199604/kafka/streamstest"
	"github.com/zcw199604/kafka/topology"
)

func TestAllLocalStorePartitionLags(t *testing.T) {
	sessionsChangelog := topology.ChangelogTopic("test-app", "sessions")
	counts0 := TopicPartition{Topic: countsChangelog, Partition: 0}
	counts1 := TopicPartition{Topic: countsChangelog, Partition: 1}
	sessions0 := TopicPartition{Topic: sessionsChangelog, Partition: 0}

	t.Run("active and standby tasks", func(t *testing.T) {
		h := newHarness(t, harnessOptions{workers: 2})
		h.start(t)

		h.worker(t, "client-worker-1").AssignTasks(
			streamstest.NewTask(TaskID{Partition: 0}, true).
				WithChangelog(counts0, 5, true).
				WithChangelog(sessions0, LatestOffset, true),
		)
		h.worker(t, "client-worker-2").AssignTasks(
			streamstest.NewTask(TaskID{Partition: 1}, false).WithChangelog(counts1, 0, false),
		)
		h.admin.SetEndOffset(counts0, 10)
		h.admin.SetEndOffset(counts1, 4)
		h.admin.SetEndOffset(sessions0, 12)

		lags, err := h.streams.AllLocalStorePartitionLags(t.Context())
		require.NoError(t, err)
		require.Equal(t, map[string]map[int32]LagInfo{
			"counts": {
				0: {CurrentOffset: 5, EndOffset: 10},
				1: {CurrentOffset: 0, EndOffset: 4},
			},
			"sessions": {
				0: {CurrentOffset: 12, EndOffset: 12},
			},
		}, lags)
		require.Equal(t, int64(5), lags["counts"][0].Lag())
		require.Zero(t, lags["sessions"][0].Lag())
		require.Equal(t, 1, h.admin.ListCalls())
	})

	t.Run("shared changelog partitions are fetched once", func(t *testing.T) {
		h := newHarness(t, harnessOptions{workers: 2})
		h.start(t)

		h.worker(t, "client-worker-1").AssignTasks(streamstest.NewTask(TaskID{Partition: 0}, true).WithChangelog(counts0, 3, true))
		h.worker(t, "client-worker-2").AssignTasks(streamstest.NewTask(TaskID{Partition: 0}, false).WithChangelog(counts0, 1, true))
		h.admin.SetEndOffset(counts0, 3)

		_, err := h.streams.AllLocalStorePartitionLags(t.Context())
		require.NoError(t, err)
		require.Equal(t, [][]TopicPartition{{counts0}}, h.admin.Requested())
	})

	t.Run("no local tasks", func(t *testing.T) {
		h := newHarness(t, harnessOptions{})
		h.start(t)

		lags, err := h.streams.AllLocalStorePartitionLags(t.Context())
		require.NoError(t, err)
		require.Empty(t, lags)
		require.Zero(t, h.admin.ListCalls())
	})

	t.Run("partitions without an end offset are skipped", func(t *testing.T) {
		h := newHarness(t, harnessOptions{})
		h.start(t)

		h.worker(t, "client-worker-1").AssignTasks(streamstest.NewTask(TaskID{Partition: 0}, true).WithChangelog(counts0, 3, true))

		lags, err := h.streams.AllLocalStorePartitionLags(t.Context())
		require.NoError(t, err)
		require.Empty(t, lags)
	})

	t.Run("end offset lookup failure", func(t *testing.T) {
		h := newHarness(t, harnessOptions{})
		h.start(t)

		h.worker(t, "client-worker-1").AssignTasks(streamstest.NewTask(TaskID{Partition: 0}, true).WithChangelog(counts0, 3, true))
		h.admin.FailListing(errors.New("broker unavailable"))

		_, err := h.streams.AllLocalStorePartitionLags(t.Context())
		require.ErrorIs(t, err, ErrStreams)
	})
}
