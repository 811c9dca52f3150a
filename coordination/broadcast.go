package coordination

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/zcw199604/kafka/types"
)

// ShutdownSubject returns the NATS subject carrying shutdown requests of an application.
func ShutdownSubject(applicationID string) string {
	return "kstreams." + applicationID + ".shutdown"
}

// ShutdownBroadcaster publishes application shutdown requests over core NATS.
type ShutdownBroadcaster struct {
	nc      *nats.Conn
	subject string
	logger  types.Logger
}

var _ types.ShutdownBroadcaster = (*ShutdownBroadcaster)(nil)

// NewShutdownBroadcaster creates a broadcaster for applicationID.
//
// Parameters:
//   - nc: NATS connection
//   - applicationID: Application whose clients receive the requests
//   - logger: Logger for malformed requests and delivery failures
//
// Returns:
//   - *ShutdownBroadcaster: Broadcaster ready to publish and subscribe
//
// Example:
//
//	b := coordination.NewShutdownBroadcaster(nc, cfg.ApplicationID, logger)
//	streams, _ := kafka.NewStreams(&cfg, topo, factory, kafka.WithShutdownBroadcaster(b))
//	sub, _ := b.Subscribe(func(req types.ShutdownRequest) {
//	    go streams.CloseWithTimeout(context.Background(), time.Minute)
//	})
//	defer sub.Unsubscribe()
func NewShutdownBroadcaster(nc *nats.Conn, applicationID string, logger types.Logger) *ShutdownBroadcaster {
	return &ShutdownBroadcaster{
		nc:      nc,
		subject: ShutdownSubject(applicationID),
		logger:  logger,
	}
}

// BroadcastShutdown publishes req and flushes it to the server.
//
// Returns:
//   - error: Encoding, publish or flush error
func (b *ShutdownBroadcaster) BroadcastShutdown(ctx context.Context, req types.ShutdownRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode shutdown request: %w", err)
	}

	if err := b.nc.Publish(b.subject, data); err != nil {
		return fmt.Errorf("failed to publish shutdown request: %w", err)
	}
	if err := b.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush shutdown request: %w", err)
	}

	b.logger.Info("broadcast application shutdown request",
		"subject", b.subject,
		"client_id", req.ClientID,
		"reason", req.Reason,
	)

	return nil
}

// Subscribe calls handler for every shutdown request of the application.
// Malformed messages are logged and dropped.
//
// Returns:
//   - *nats.Subscription: Subscription to unsubscribe when done
//   - error: Subscription error
func (b *ShutdownBroadcaster) Subscribe(handler func(types.ShutdownRequest)) (*nats.Subscription, error) {
	sub, err := b.nc.Subscribe(b.subject, func(msg *nats.Msg) {
		var req types.ShutdownRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			b.logger.Warn("dropping malformed shutdown request", "subject", msg.Subject, "error", err)
			return
		}
		handler(req)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.subject, err)
	}

	return sub, nil
}
