// Package streamstest provides in-memory test doubles for the Streams client.
//
// It follows Go's convention of shipping testing helpers in a dedicated
// package, like net/http/httptest.
//
// Key utilities:
//   - Pool: Worker factory building goroutine-backed workers
//   - GlobalWorker: In-memory global worker
//   - Task and Store: Tasks owning queryable key-value stores
//   - Admin: Broker admin with scripted end offsets
//   - StateDirectory: Counting state directory
//   - StartEmbeddedNATS: NATS server with JetStream for coordination tests
//
// Example usage:
//
//	func TestMyProcessor(t *testing.T) {
//	    pool := streamstest.NewPool(streamstest.WorkerOptions{})
//	    topo := topology.NewStatic("app", []string{"counts"}, nil)
//	    cfg := kafka.TestConfig()
//	    streams, err := kafka.NewStreams(&cfg, topo, pool.Factory,
//	        kafka.WithAdmin(streamstest.NewAdmin()),
//	        kafka.WithStateDirectory(streamstest.NewStateDirectory()))
//	}
package streamstest
