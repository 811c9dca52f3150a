package coordination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/zcw199604/kafka/internal/natsutil"
	"github.com/zcw199604/kafka/types"
)

// defaultReportTimeout bounds a single KV write.
const defaultReportTimeout = 2 * time.Second

// ClientStatus is the last reported state of a Streams client.
type ClientStatus struct {
	ClientID  string    `json:"clientId"`
	State     string    `json:"state"`
	Previous  string    `json:"previous"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReporterConfig configures a StateReporter.
type ReporterConfig struct {
	// ApplicationID names the bucket "kstreams-<ApplicationID>-clients".
	ApplicationID string

	// ClientID is the key this reporter writes.
	ClientID string

	// TTL expires statuses of clients that stopped reporting. Zero keeps them.
	TTL time.Duration

	// Timeout bounds each KV write. Defaults to 2s.
	Timeout time.Duration
}

// StateReporter mirrors a client's state transitions into a JetStream KV bucket.
//
// OnChange has the StateListener signature and can be installed with
// kafka.WithStateListener.
type StateReporter struct {
	kv       jetstream.KeyValue
	clientID string
	timeout  time.Duration
	logger   types.Logger
	now      func() time.Time
}

// BucketName returns the KV bucket holding the client statuses of an application.
func BucketName(applicationID string) string {
	return "kstreams-" + applicationID + "-clients"
}

// NewStateReporter creates or opens the application's status bucket.
//
// Parameters:
//   - ctx: Context for bucket creation
//   - js: JetStream context
//   - cfg: Reporter configuration
//   - logger: Logger for write failures
//
// Returns:
//   - *StateReporter: Reporter writing cfg.ClientID
//   - error: Bucket creation error
//
// Example:
//
//	js, _ := jetstream.New(nc)
//	reporter, err := coordination.NewStateReporter(ctx, js, coordination.ReporterConfig{
//	    ApplicationID: cfg.ApplicationID,
//	    ClientID:      cfg.ClientID,
//	}, logger)
//	streams, err := kafka.NewStreams(&cfg, topo, factory, kafka.WithStateListener(reporter.OnChange))
func NewStateReporter(ctx context.Context, js jetstream.JetStream, cfg ReporterConfig, logger types.Logger) (*StateReporter, error) {
	if cfg.ApplicationID == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: application id and client id are required", types.ErrIllegalArgument)
	}

	kv, err := natsutil.EnsureKVBucket(ctx, js, jetstream.KeyValueConfig{
		Bucket:      BucketName(cfg.ApplicationID),
		Description: "Streams client states of " + cfg.ApplicationID,
		TTL:         cfg.TTL,
		Storage:     jetstream.MemoryStorage,
	}, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to open status bucket: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultReportTimeout
	}

	return &StateReporter{
		kv:       kv,
		clientID: cfg.ClientID,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// OnChange writes the transition to the bucket. Failures are logged.
func (r *StateReporter) OnChange(newState, oldState types.State) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.Report(ctx, newState, oldState); err != nil {
		if natsutil.IsConnectivityError(err) {
			r.logger.Warn("status bucket unreachable, state not reported", "state", newState, "error", err)
			return
		}
		r.logger.Error("failed to report client state", "state", newState, "error", err)
	}
}

// Report writes the transition to the bucket.
func (r *StateReporter) Report(ctx context.Context, newState, oldState types.State) error {
	data, err := json.Marshal(ClientStatus{
		ClientID:  r.clientID,
		State:     newState.String(),
		Previous:  oldState.String(),
		UpdatedAt: r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode client status: %w", err)
	}

	if _, err := r.kv.Put(ctx, r.clientID, data); err != nil {
		return fmt.Errorf("failed to write client status: %w", err)
	}

	return nil
}

// Status returns the last reported status of a client.
func (r *StateReporter) Status(ctx context.Context, clientID string) (ClientStatus, error) {
	entry, err := r.kv.Get(ctx, clientID)
	if err != nil {
		return ClientStatus{}, fmt.Errorf("failed to read status of %s: %w", clientID, err)
	}

	var status ClientStatus
	if err := json.Unmarshal(entry.Value(), &status); err != nil {
		return ClientStatus{}, fmt.Errorf("failed to decode status of %s: %w", clientID, err)
	}

	return status, nil
}

// List returns the statuses of every client of the application, ordered by client id.
func (r *StateReporter) List(ctx context.Context) ([]ClientStatus, error) {
	lister, err := r.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list client statuses: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	var statuses []ClientStatus
	for key := range lister.Keys() {
		status, err := r.Status(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				continue
			}

			return nil, err
		}
		statuses = append(statuses, status)
	}
	slices.SortFunc(statuses, func(a, b ClientStatus) int {
		return strings.Compare(a.ClientID, b.ClientID)
	})

	return statuses, nil
}

// Remove deletes the status of this reporter's client.
func (r *StateReporter) Remove(ctx context.Context) error {
	if err := r.kv.Delete(ctx, r.clientID); err != nil {
		return fmt.Errorf("failed to delete client status: %w", err)
	}

	return nil
}
