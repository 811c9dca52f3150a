package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateQueryRequest_Partitions(t *testing.T) {
	req := InStore("counts", "q")
	require.True(t, req.IsAllPartitions())

	restricted := req.WithPartitions(3, 1)
	require.False(t, restricted.IsAllPartitions())
	require.Equal(t, []int32{3, 1}, restricted.Partitions)
	require.True(t, req.IsAllPartitions(), "original request is unchanged")

	empty := req.WithPartitions()
	require.False(t, empty.IsAllPartitions())
	require.Empty(t, empty.Partitions)
}
