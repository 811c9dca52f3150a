// Package kafka provides the client runtime of a stream processing application.
//
// A Streams client supervises a resizable pool of workers, each consuming a
// subset of the application's input partitions, plus an optional global worker
// maintaining replicated global stores. It folds the workers' sub-states into
// one client State, applies an uncaught exception policy to worker failures,
// orchestrates graceful shutdown, and routes interactive queries to the local
// state stores.
//
// Record processing, partition assignment and store persistence are supplied
// by the caller through the Worker, Task and StateStore interfaces. The
// streamstest package provides in-memory implementations.
//
// # Quick Start
//
//	cfg := kafka.DefaultConfig()
//	cfg.ApplicationID = "word-count"
//	cfg.BootstrapServers = []string{"localhost:9092"}
//	cfg.NumWorkers = 4
//
//	topo := topology.NewStatic(cfg.ApplicationID, []string{"counts"}, nil)
//	streams, err := kafka.NewStreams(&cfg, topo, workerFactory)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := streams.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer streams.Close()
//
// # Client States
//
// The client moves through a directed graph of states:
//
//	CREATED → REBALANCING ⇄ RUNNING → PENDING_SHUTDOWN → NOT_RUNNING
//	REBALANCING, RUNNING → PENDING_ERROR → ERROR
//
// The client is REBALANCING while any worker revokes or receives partitions,
// and RUNNING once every worker and the global worker run. A listener set with
// SetStateListener observes every transition in order.
//
// # Uncaught Errors
//
// A worker failure is resolved by the UncaughtExceptionHandler:
//
//   - ReplaceWorker: the failed worker is replaced by a fresh one
//   - ShutdownClient: the client shuts down into ERROR (the default)
//   - ShutdownApplication: every client of the application is asked to stop
//
// Errors wrapping ErrIllegalState or ErrIllegalArgument always shut the client down.
//
// # Scaling
//
// AddWorker and RemoveWorker resize the pool while the client runs. The cache
// and input buffer budgets are divided evenly across live workers, plus the
// global worker when present, after every change. Worker slots are reused once their previous holder is dead.
//
// # Interactive Queries
//
//	req := types.InStore("counts", query).WithPartitions(0, 1).RequireActiveOnly()
//	res, err := streams.Query(ctx, req)
//
// Per-partition failures are reported in the result; only lookup errors such
// as ErrUnknownStore, ErrNotStarted and ErrStopped are returned as errors.
//
// See the examples/ directory for a complete program.
package kafka
