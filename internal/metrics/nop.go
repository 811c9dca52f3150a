// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/zcw199604/kafka/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordStateTransition discards the state transition metric.
func (n *NopMetrics) RecordStateTransition(_ /* from */, _ /* to */ types.State) {}

// RecordUncaughtFailure discards the uncaught failure metric.
func (n *NopMetrics) RecordUncaughtFailure(_ /* response */ types.ExceptionResponse) {}

// RecordShutdownDuration discards the shutdown duration metric.
func (n *NopMetrics) RecordShutdownDuration(_ /* seconds */ float64, _ /* clean */ bool) {}

// RecordAliveWorkers discards the live worker gauge.
func (n *NopMetrics) RecordAliveWorkers(_ /* count */ int) {}

// RecordWorkerAdded discards the worker added counter.
func (n *NopMetrics) RecordWorkerAdded() {}

// RecordWorkerRemoved discards the worker removed counter.
func (n *NopMetrics) RecordWorkerRemoved() {}

// RecordBudget discards the per-worker budget gauges.
func (n *NopMetrics) RecordBudget(_ /* cacheBytes */, _ /* bufferBytes */ int64) {}

// Close does nothing.
func (n *NopMetrics) Close() {}
