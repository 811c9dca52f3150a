// Package coordination connects Streams clients of one application over NATS.
//
// The package includes:
//
//   - ShutdownBroadcaster: Publishes application shutdown requests on a core
//     NATS subject so clients outside the consumer group react as well
//   - StateReporter: Mirrors each client's state into a JetStream KV bucket
//     for operators and health checks
//
// Both are optional. A Streams client runs without them.
package coordination
