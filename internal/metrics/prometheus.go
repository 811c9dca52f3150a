package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zcw199604/kafka/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are created and registered lazily on first use. Close unregisters
// every collector, after which recording calls are ignored.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	labels    prometheus.Labels
	once      sync.Once
	closed    atomic.Bool

	state            prometheus.Gauge
	transitions      *prometheus.CounterVec
	aliveWorkers     prometheus.Gauge
	workersAdded     prometheus.Counter
	workersRemoved   prometheus.Counter
	cachePerWorker   prometheus.Gauge
	bufferPerWorker  prometheus.Gauge
	uncaughtFailures *prometheus.CounterVec
	shutdownDuration *prometheus.HistogramVec

	collectors []prometheus.Collector
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Metrics namespace (defaults to "kafka_streams" if empty)
//   - clientID: Value of the constant "client_id" label
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string, clientID string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "kafka_streams"
	}

	return &PrometheusCollector{
		reg:       reg,
		namespace: namespace,
		labels:    prometheus.Labels{"client_id": clientID},
	}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.state = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   p.namespace,
			Subsystem:   "client",
			Name:        "state",
			Help:        "Current client state as its numeric value.",
			ConstLabels: p.labels,
		})
		p.transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   p.namespace,
			Subsystem:   "client",
			Name:        "state_transitions_total",
			Help:        "Accepted client state transitions.",
			ConstLabels: p.labels,
		}, []string{"from", "to"})
		p.aliveWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   p.namespace,
			Subsystem:   "pool",
			Name:        "alive_workers",
			Help:        "Number of live workers.",
			ConstLabels: p.labels,
		})
		p.workersAdded = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   p.namespace,
			Subsystem:   "pool",
			Name:        "workers_added_total",
			Help:        "Workers added to the pool.",
			ConstLabels: p.labels,
		})
		p.workersRemoved = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   p.namespace,
			Subsystem:   "pool",
			Name:        "workers_removed_total",
			Help:        "Workers removed from the pool.",
			ConstLabels: p.labels,
		})
		p.cachePerWorker = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   p.namespace,
			Subsystem:   "pool",
			Name:        "cache_bytes_per_worker",
			Help:        "Cache budget assigned to each worker.",
			ConstLabels: p.labels,
		})
		p.bufferPerWorker = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   p.namespace,
			Subsystem:   "pool",
			Name:        "input_buffer_bytes_per_worker",
			Help:        "Input buffer budget assigned to each worker.",
			ConstLabels: p.labels,
		})
		p.uncaughtFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   p.namespace,
			Subsystem:   "client",
			Name:        "uncaught_failures_total",
			Help:        "Uncaught worker errors by selected response.",
			ConstLabels: p.labels,
		}, []string{"response"})
		p.shutdownDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   p.namespace,
			Subsystem:   "client",
			Name:        "shutdown_duration_seconds",
			Help:        "Duration of the client teardown.",
			ConstLabels: p.labels,
			Buckets:     prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}, []string{"result"})

		p.collectors = []prometheus.Collector{
			p.state, p.transitions, p.aliveWorkers, p.workersAdded, p.workersRemoved,
			p.cachePerWorker, p.bufferPerWorker, p.uncaughtFailures, p.shutdownDuration,
		}
		p.reg.MustRegister(p.collectors...)
	})
}

func (p *PrometheusCollector) active() bool {
	if p.closed.Load() {
		return false
	}
	p.ensureRegistered()

	return true
}

// RecordStateTransition records an accepted client state transition.
func (p *PrometheusCollector) RecordStateTransition(from, to types.State) {
	if !p.active() {
		return
	}
	p.state.Set(float64(to))
	p.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

// RecordUncaughtFailure counts the response selected for an uncaught worker error.
func (p *PrometheusCollector) RecordUncaughtFailure(response types.ExceptionResponse) {
	if !p.active() {
		return
	}
	p.uncaughtFailures.WithLabelValues(response.String()).Inc()
}

// RecordShutdownDuration observes the teardown duration.
func (p *PrometheusCollector) RecordShutdownDuration(seconds float64, clean bool) {
	if !p.active() {
		return
	}
	result := "error"
	if clean {
		result = "clean"
	}
	p.shutdownDuration.WithLabelValues(result).Observe(seconds)
}

// RecordAliveWorkers sets the live worker gauge.
func (p *PrometheusCollector) RecordAliveWorkers(count int) {
	if !p.active() {
		return
	}
	p.aliveWorkers.Set(float64(count))
}

// RecordWorkerAdded counts a worker added to the pool.
func (p *PrometheusCollector) RecordWorkerAdded() {
	if !p.active() {
		return
	}
	p.workersAdded.Inc()
}

// RecordWorkerRemoved counts a worker removed from the pool.
func (p *PrometheusCollector) RecordWorkerRemoved() {
	if !p.active() {
		return
	}
	p.workersRemoved.Inc()
}

// RecordBudget sets the per-worker budget gauges.
func (p *PrometheusCollector) RecordBudget(cacheBytes, bufferBytes int64) {
	if !p.active() {
		return
	}
	p.cachePerWorker.Set(float64(cacheBytes))
	p.bufferPerWorker.Set(float64(bufferBytes))
}

// Close unregisters every collector. It is safe to call more than once.
func (p *PrometheusCollector) Close() {
	if p.closed.Swap(true) {
		return
	}
	for _, c := range p.collectors {
		p.reg.Unregister(c)
	}
}
