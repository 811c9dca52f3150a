package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/zcw199604/kafka/types"
)

func TestPrometheusCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test", "app-1")

	p.RecordStateTransition(types.StateCreated, types.StateRebalancing)
	p.RecordStateTransition(types.StateRebalancing, types.StateRunning)
	p.RecordAliveWorkers(3)
	p.RecordWorkerAdded()
	p.RecordWorkerAdded()
	p.RecordWorkerRemoved()
	p.RecordBudget(1024, 2048)
	p.RecordUncaughtFailure(types.ReplaceWorker)
	p.RecordShutdownDuration(0.2, true)

	require.InDelta(t, float64(types.StateRunning), testutil.ToFloat64(p.state), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.transitions.WithLabelValues("Created", "Rebalancing")), 0)
	require.InDelta(t, 3, testutil.ToFloat64(p.aliveWorkers), 0)
	require.InDelta(t, 2, testutil.ToFloat64(p.workersAdded), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.workersRemoved), 0)
	require.InDelta(t, 1024, testutil.ToFloat64(p.cachePerWorker), 0)
	require.InDelta(t, 2048, testutil.ToFloat64(p.bufferPerWorker), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.uncaughtFailures.WithLabelValues("ReplaceWorker")), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestPrometheusCollector_CloseUnregisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test", "app-1")
	p.RecordAliveWorkers(1)

	p.Close()
	p.Close()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Empty(t, families)

	require.NotPanics(t, func() { p.RecordWorkerAdded() })
}

func TestNopMetrics(t *testing.T) {
	var m types.MetricsCollector = NewNop()
	require.NotPanics(t, func() {
		m.RecordStateTransition(types.StateCreated, types.StateRunning)
		m.RecordBudget(1, 1)
		m.Close()
	})
}
