// Package kafkaadmin adapts a franz-go admin client to types.Admin.
package kafkaadmin

import (
	"context"
	"fmt"
	"sort"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/zcw199604/kafka/types"
)

// client is the subset of *kadm.Client used by Admin.
type client interface {
	ListEndOffsets(ctx context.Context, topics ...string) (kadm.ListedOffsets, error)
	LeaveGroup(ctx context.Context, b *kadm.LeaveGroupBuilder) (kadm.LeaveGroupResponses, error)
	Close()
}

// Admin implements types.Admin on top of kadm.
type Admin struct {
	cl     client
	logger types.Logger
}

// Compile-time assertion that Admin implements types.Admin.
var _ types.Admin = (*Admin)(nil)

// New creates an admin client connected to seedBrokers.
//
// Parameters:
//   - seedBrokers: Initial broker addresses (Config.BootstrapServers)
//   - logger: Logger for partition-level failures
//   - opts: Additional kgo options (TLS, SASL, client id)
//
// Returns:
//   - *Admin: The admin adapter
//   - error: Any error creating the underlying kgo client
func New(seedBrokers []string, logger types.Logger, opts ...kgo.Opt) (*Admin, error) {
	cl, err := kgo.NewClient(append([]kgo.Opt{kgo.SeedBrokers(seedBrokers...)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin client: %w", err)
	}

	return &Admin{cl: kadm.NewClient(cl), logger: logger}, nil
}

// NewFromClient wraps an existing kadm client. Closing the Admin closes it.
func NewFromClient(cl *kadm.Client, logger types.Logger) *Admin {
	return &Admin{cl: cl, logger: logger}
}

// ListEndOffsets fetches end offsets of partitions with one request per call.
//
// kadm lists every partition of each topic; the result is filtered back to the
// requested partitions. Partitions whose listing failed are omitted and logged.
func (a *Admin) ListEndOffsets(ctx context.Context, partitions []types.TopicPartition) (map[types.TopicPartition]int64, error) {
	result := make(map[types.TopicPartition]int64, len(partitions))
	if len(partitions) == 0 {
		return result, nil
	}

	wanted := make(map[types.TopicPartition]struct{}, len(partitions))
	topicSet := make(map[string]struct{})
	for _, tp := range partitions {
		wanted[tp] = struct{}{}
		topicSet[tp.Topic] = struct{}{}
	}
	topics := make([]string, 0, len(topicSet))
	for topic := range topicSet {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	listed, err := a.cl.ListEndOffsets(ctx, topics...)
	if err != nil {
		return nil, fmt.Errorf("failed to list end offsets: %w", err)
	}

	listed.Each(func(o kadm.ListedOffset) {
		tp := types.TopicPartition{Topic: o.Topic, Partition: o.Partition}
		if _, ok := wanted[tp]; !ok {
			return
		}
		if o.Err != nil {
			a.logger.Warn("failed to fetch end offset", "topic", o.Topic, "partition", o.Partition, "error", o.Err)
			return
		}
		result[tp] = o.Offset
	})

	return result, nil
}

// RemoveStaticMember removes the static member instanceID from groupID.
func (a *Admin) RemoveStaticMember(ctx context.Context, groupID, instanceID string) error {
	resps, err := a.cl.LeaveGroup(ctx, kadm.LeaveGroup(groupID).InstanceIDs(instanceID).Reason("worker removed"))
	if err != nil {
		return fmt.Errorf("failed to remove static member %s from group %s: %w", instanceID, groupID, err)
	}
	if err := resps.Error(); err != nil {
		return fmt.Errorf("failed to remove static member %s from group %s: %w", instanceID, groupID, err)
	}

	return nil
}

// Close closes the underlying client.
func (a *Admin) Close() error {
	a.cl.Close()
	return nil
}
