package kafka

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/twmb/franz-go/pkg/kgo"
	"k8s.io/utils/clock"

	"github.com/zcw199604/kafka/internal/budget"
	"github.com/zcw199604/kafka/internal/kafkaadmin"
	"github.com/zcw199604/kafka/internal/logging"
	"github.com/zcw199604/kafka/internal/maintenance"
	"github.com/zcw199604/kafka/internal/metrics"
	"github.com/zcw199604/kafka/internal/statedir"
)

// Streams is the client runtime of a stream processing application.
//
// Streams owns a pool of workers, each consuming a subset of the application's
// input partitions, plus an optional global worker maintaining replicated
// global stores. It aggregates the workers' sub-states into one client State,
// reacts to uncaught worker errors, and serves interactive queries against
// the local state stores.
//
// Thread Safety:
//   - All public methods are safe for concurrent use
//   - State transitions are serialized and listeners observe them in order
//   - Pool changes (add, remove, replace) are serialized
//
// Lifecycle:
//   - Create with NewStreams()
//   - Optionally set a state listener and an uncaught exception handler
//   - Call Start() once
//   - Call Close() or CloseWithTimeout() for shutdown
//
// Testing:
// The streamstest package provides in-memory workers, stores and admin clients.
type Streams struct {
	cfg         Config
	topology    Topology
	factory     WorkerFactory
	global      GlobalWorker
	admin       Admin
	stateDir    StateDirectory
	broadcaster ShutdownBroadcaster
	metrics     MetricsCollector
	logger      Logger
	clock       clock.WithTicker

	processID uuid.UUID
	clientID  string
	total     budget.Total

	maintenance   *maintenance.Scheduler
	recordingHook func()

	// Worker pool keyed by slot
	workers *xsync.Map[int, *workerEntry]
	poolMu  sync.Mutex

	// Sub-state table of every worker
	table workerStateTable

	// Client state, guarded by stateMu
	stateMu        sync.Mutex
	state          State
	stateChanged   chan struct{}
	pending        []stateChange
	stateListener  StateListener
	failureHandler UncaughtExceptionHandler

	// Serializes listener delivery
	notifyMu sync.Mutex

	// Serializes Start and the initiation of Close
	lifecycleMu sync.Mutex
}

// workerEntry is a registered worker together with its slot.
type workerEntry struct {
	slot   int
	name   string
	worker Worker

	// failing is set while the worker runs the uncaught exception policy.
	failing atomic.Bool
}

// NewStreams creates a new Streams client.
//
// The client is returned in StateCreated with NumWorkers workers constructed
// but not started. The state directory is opened and the process id loaded
// or created.
//
// Parameters:
//   - cfg: Client configuration, defaults are applied to a copy
//   - topology: Store layout of the processing topology
//   - factory: Constructs regular workers
//   - opts: Optional dependencies (logger, metrics, admin, global worker, ...)
//
// Returns:
//   - *Streams: Initialized client
//   - error: Configuration, state directory or worker construction error
//
// Example:
//
//	cfg := kafka.DefaultConfig()
//	cfg.ApplicationID = "word-count"
//	cfg.BootstrapServers = []string{"localhost:9092"}
//	streams, err := kafka.NewStreams(&cfg, topo, factory, kafka.WithLogger(logger))
func NewStreams(cfg *Config, topology Topology, factory WorkerFactory, opts ...Option) (*Streams, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if topology == nil {
		return nil, ErrTopologyRequired
	}
	if factory == nil {
		return nil, ErrWorkerFactoryRequired
	}

	config := *cfg
	SetDefaults(&config)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	options := &streamsOptions{}
	for _, opt := range opts {
		opt(options)
	}

	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logging.NewNop()
	}

	config.ValidateWithWarnings(loggerInstance)

	clk := options.clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	if topology.HasGlobalStores() && options.globalFactory == nil {
		return nil, ErrGlobalWorkerRequired
	}
	if options.admin == nil && len(config.BootstrapServers) == 0 {
		return nil, fmt.Errorf("%w: BootstrapServers is required when no admin is supplied", ErrInvalidConfig)
	}

	stateDir := options.stateDir
	if stateDir == nil {
		dir, err := statedir.New(config.StateDir, config.ApplicationID, clk, loggerInstance)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to open state directory: %w", ErrStreams, err)
		}
		stateDir = dir
	}

	processID, err := stateDir.InitializeProcessID()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize process id: %w", ErrStreams, err)
	}

	clientID := config.ClientID
	if clientID == "" {
		clientID = config.ApplicationID + "-" + processID.String()
	}

	metricsCollector := options.metrics
	if metricsCollector == nil {
		if options.registerer != nil {
			metricsCollector = metrics.NewPrometheus(options.registerer, config.MetricsNamespace, clientID)
		} else {
			metricsCollector = metrics.NewNop()
		}
	}

	admin := options.admin
	if admin == nil {
		kafkaAdmin, err := kafkaadmin.New(config.BootstrapServers, loggerInstance, kgo.ClientID(clientID+"-admin"))
		if err != nil {
			_ = stateDir.Close()
			return nil, fmt.Errorf("%w: failed to create admin client: %w", ErrStreams, err)
		}
		admin = kafkaAdmin
	}

	s := &Streams{
		cfg:            config,
		topology:       topology,
		factory:        factory,
		admin:          admin,
		stateDir:       stateDir,
		broadcaster:    options.broadcaster,
		metrics:        metricsCollector,
		logger:         loggerInstance,
		clock:          clk,
		processID:      processID,
		clientID:       clientID,
		total:          budget.Total{CacheBytes: config.CacheMaxBytes, BufferBytes: config.InputBufferMaxBytes},
		recordingHook:  options.recordingHook,
		workers:        xsync.NewMap[int, *workerEntry](),
		table:          newWorkerStateTable(),
		state:          StateCreated,
		stateChanged:   make(chan struct{}),
		stateListener:  options.stateListener,
		failureHandler: options.failureHandler,
	}
	s.maintenance = maintenance.NewScheduler(clk, loggerInstance)

	if options.globalFactory != nil && topology.HasGlobalStores() {
		share := budget.Split(s.total, config.NumWorkers, true)
		global, err := options.globalFactory(GlobalWorkerSpec{
			Name:            clientID + "-global",
			ClientID:        clientID,
			CacheBytes:      share.CacheBytes,
			OnStateChange:   s.onGlobalWorkerStateChange,
			OnUncaughtError: s.onGlobalUncaughtError,
		})
		if err != nil {
			s.releaseOnConstructionFailure()
			return nil, fmt.Errorf("%w: failed to create global worker: %w", ErrStreams, err)
		}
		s.global = global
		s.table.trackGlobal()
	}

	for slot := 1; slot <= config.NumWorkers; slot++ {
		if _, err := s.createWorker(slot); err != nil {
			s.releaseOnConstructionFailure()
			return nil, fmt.Errorf("%w: failed to create worker %d: %w", ErrStreams, slot, err)
		}
	}
	s.resize(config.NumWorkers)

	s.logger.Info("streams client created",
		"client_id", clientID,
		"process_id", processID,
		"workers", config.NumWorkers,
		"global_worker", s.global != nil,
	)

	return s, nil
}

// releaseOnConstructionFailure closes the handles acquired by NewStreams.
func (s *Streams) releaseOnConstructionFailure() {
	for _, e := range s.snapshot() {
		e.worker.Shutdown()
	}
	if err := s.admin.Close(); err != nil {
		s.logger.Warn("failed to close admin client", "error", err)
	}
	if err := s.stateDir.Close(); err != nil {
		s.logger.Warn("failed to close state directory", "error", err)
	}
	s.metrics.Close()
}

// Start starts the global worker, every regular worker and the maintenance tasks.
//
// Start may be called only once. The client moves to StateRebalancing and
// reaches StateRunning once every worker reports running.
//
// Returns:
//   - error: ErrIllegalState if the client was already started or stopped
func (s *Streams) Start() error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if st := s.State(); !st.HasNotStarted() {
		return fmt.Errorf("%w: client already started or stopped (state %s)", ErrIllegalState, st)
	}

	s.logger.Debug("starting streams client", "client_id", s.clientID)
	ok, err := s.setState(StateRebalancing)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: client cannot be started in state %s", ErrIllegalState, s.State())
	}

	if s.global != nil {
		s.global.Start()
	}
	for _, e := range s.snapshot() {
		e.worker.Start()
	}

	if err := s.maintenance.Add("state-dir-cleaner", s.cfg.StateCleanupDelay, s.cleanRemovedTasks); err != nil {
		return fmt.Errorf("failed to schedule state directory cleaner: %w", err)
	}
	if s.cfg.MetricsRecordingInterval > 0 {
		if err := s.maintenance.Add("metrics-recording", s.cfg.MetricsRecordingInterval, s.recordMetrics); err != nil {
			return fmt.Errorf("failed to schedule metrics recording: %w", err)
		}
	}
	if err := s.maintenance.Start(); err != nil {
		return fmt.Errorf("failed to start maintenance tasks: %w", err)
	}

	s.logger.Info("streams client started", "client_id", s.clientID, "workers", s.workers.Size())

	return nil
}

func (s *Streams) cleanRemovedTasks() {
	if s.State() != StateRunning {
		return
	}
	if err := s.stateDir.CleanRemovedTasks(s.cfg.StateCleanupDelay); err != nil {
		s.logger.Warn("failed to clean removed task directories", "error", err)
	}
}

func (s *Streams) recordMetrics() {
	s.metrics.RecordAliveWorkers(s.liveCount())
	if s.recordingHook != nil {
		s.recordingHook()
	}
}

// ClientID returns the client identity.
func (s *Streams) ClientID() string {
	return s.clientID
}

// ProcessID returns the persistent process id loaded from the state directory.
func (s *Streams) ProcessID() uuid.UUID {
	return s.processID
}

// SetStateListener sets the listener notified after every client state transition.
//
// Returns:
//   - error: ErrIllegalState unless the client is in StateCreated
func (s *Streams) SetStateListener(listener StateListener) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if !s.state.HasNotStarted() {
		return fmt.Errorf("%w: state listener can only be set before Start, current state %s", ErrIllegalState, s.state)
	}
	s.stateListener = listener

	return nil
}

// SetUncaughtExceptionHandler sets the handler choosing the response to uncaught worker errors.
//
// Returns:
//   - error: ErrIllegalArgument for a nil handler, ErrIllegalState unless the client is in StateCreated
func (s *Streams) SetUncaughtExceptionHandler(handler UncaughtExceptionHandler) error {
	if handler == nil {
		return fmt.Errorf("%w: uncaught exception handler must not be nil", ErrIllegalArgument)
	}

	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if !s.state.HasNotStarted() {
		return fmt.Errorf("%w: uncaught exception handler can only be set before Start, current state %s", ErrIllegalState, s.state)
	}
	s.failureHandler = handler

	return nil
}

// CleanUp wipes the application's local state directory.
//
// Returns:
//   - error: ErrIllegalState while the client is running or shutting down
func (s *Streams) CleanUp() error {
	if st := s.State(); !st.HasNotStarted() && !st.HasCompletedShutdown() {
		return fmt.Errorf("%w: cannot clean up while running, current state %s", ErrIllegalState, st)
	}
	if err := s.stateDir.Clean(); err != nil {
		return fmt.Errorf("failed to clean up state directory: %w", err)
	}

	return nil
}

type workerIdentityKey struct{}

// WithWorkerIdentity marks ctx as issued from the goroutine of the named worker.
//
// Workers pass such a context to RemoveWorkerWithTimeout and CloseWithTimeout so
// the client never waits for the calling worker to terminate.
func WithWorkerIdentity(ctx context.Context, workerName string) context.Context {
	return context.WithValue(ctx, workerIdentityKey{}, workerName)
}

func workerIdentity(ctx context.Context) string {
	name, _ := ctx.Value(workerIdentityKey{}).(string)
	return name
}

// remainingFunc returns a function reporting the time left of timeout since start.
func (s *Streams) remainingFunc(timeout time.Duration) func() time.Duration {
	if timeout == forever {
		return func() time.Duration { return forever }
	}
	start := s.clock.Now()

	return func() time.Duration {
		return timeout - s.clock.Since(start)
	}
}
