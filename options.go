package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/utils/clock"
)

// Option configures a Streams client with optional dependencies.
type Option func(*streamsOptions)

// streamsOptions holds optional Streams configuration.
type streamsOptions struct {
	logger         Logger
	metrics        MetricsCollector
	registerer     prometheus.Registerer
	admin          Admin
	stateDir       StateDirectory
	globalFactory  GlobalWorkerFactory
	broadcaster    ShutdownBroadcaster
	clock          clock.WithTicker
	recordingHook  func()
	stateListener  StateListener
	failureHandler UncaughtExceptionHandler
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewStreams
//
// Example:
//
//	logger := logging.NewSlog(slog.Default())
//	streams, err := kafka.NewStreams(&cfg, topo, factory, kafka.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *streamsOptions) {
		o.logger = logger
	}
}

// WithMetrics sets a metrics collector. The collector is closed when the client shuts down.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewStreams
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *streamsOptions) {
		o.metrics = metrics
	}
}

// WithPrometheus records client metrics into reg under Config.MetricsNamespace,
// labelled with the client id. Ignored when WithMetrics is also given.
//
// Example:
//
//	streams, err := kafka.NewStreams(&cfg, topo, factory, kafka.WithPrometheus(prometheus.DefaultRegisterer))
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(o *streamsOptions) {
		o.registerer = reg
	}
}

// WithAdmin sets the broker admin client used for end offsets and static member removal.
// When absent a franz-go admin connected to Config.BootstrapServers is created.
// The admin is closed when the client shuts down.
func WithAdmin(admin Admin) Option {
	return func(o *streamsOptions) {
		o.admin = admin
	}
}

// WithStateDirectory replaces the on-disk state directory rooted at Config.StateDir.
func WithStateDirectory(dir StateDirectory) Option {
	return func(o *streamsOptions) {
		o.stateDir = dir
	}
}

// WithGlobalWorker sets the factory of the global worker.
// Required when the topology declares global stores.
func WithGlobalWorker(factory GlobalWorkerFactory) Option {
	return func(o *streamsOptions) {
		o.globalFactory = factory
	}
}

// WithShutdownBroadcaster publishes application shutdown requests beyond the consumer group.
//
// Example:
//
//	b := coordination.NewShutdownBroadcaster(nc, cfg.ApplicationID, logger)
//	streams, err := kafka.NewStreams(&cfg, topo, factory, kafka.WithShutdownBroadcaster(b))
func WithShutdownBroadcaster(b ShutdownBroadcaster) Option {
	return func(o *streamsOptions) {
		o.broadcaster = b
	}
}

// WithClock overrides the clock driving timeouts and maintenance tasks.
func WithClock(clk clock.WithTicker) Option {
	return func(o *streamsOptions) {
		o.clock = clk
	}
}

// WithMetricsRecordingTrigger adds fn to the periodic metrics sampling task,
// for example to pull storage engine statistics.
func WithMetricsRecordingTrigger(fn func()) Option {
	return func(o *streamsOptions) {
		o.recordingHook = fn
	}
}

// WithStateListener sets the state listener at construction.
// Equivalent to calling SetStateListener before Start.
func WithStateListener(listener StateListener) Option {
	return func(o *streamsOptions) {
		o.stateListener = listener
	}
}

// WithUncaughtExceptionHandler sets the uncaught exception handler at construction.
// Equivalent to calling SetUncaughtExceptionHandler before Start.
func WithUncaughtExceptionHandler(handler UncaughtExceptionHandler) Option {
	return func(o *streamsOptions) {
		o.failureHandler = handler
	}
}
