package natsutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/zcw199604/kafka/streamstest"
)

func TestEnsureKVBucket_ConcurrentCreators(t *testing.T) {
	_, nc := streamstest.StartEmbeddedNATS(t)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	const creators = 5
	var wg sync.WaitGroup
	kvs := make([]jetstream.KeyValue, creators)
	errs := make([]error, creators)
	for i := range creators {
		wg.Go(func() {
			kvs[i], errs[i] = EnsureKVBucket(ctx, js, jetstream.KeyValueConfig{
				Bucket:  "client-states",
				History: 1,
			}, 3)
		})
	}
	wg.Wait()

	for i := range creators {
		require.NoError(t, errs[i])
		require.NotNil(t, kvs[i])
		require.Equal(t, "client-states", kvs[i].Bucket())
	}
}

func TestEnsureKVBucket_CancelledContext(t *testing.T) {
	_, nc := streamstest.StartEmbeddedNATS(t)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err = EnsureKVBucket(ctx, js, jetstream.KeyValueConfig{Bucket: "cancelled"}, 3)
	require.Error(t, err)
}

func TestIsConnectivityError(t *testing.T) {
	require.False(t, IsConnectivityError(nil))
	require.False(t, IsConnectivityError(errors.New("bad request")))
	require.True(t, IsConnectivityError(fmt.Errorf("publish: %w", nats.ErrConnectionClosed)))
	require.True(t, IsConnectivityError(errors.New("dial tcp: connection refused")))
}
