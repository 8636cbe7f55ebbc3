package trainer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/mindrs/core"
	"github.com/rushteam/mindrs/store"
)

func TestLocalGatherer(t *testing.T) {
	local := core.ResultTable{1: {"auc": 60}}
	got, coordinator, err := LocalGatherer{}.Gather(context.Background(), "k", local)
	require.NoError(t, err)
	assert.True(t, coordinator)
	assert.Equal(t, local, got)
}

func TestStoreGathererUnion(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	ctx := context.Background()

	// rank 1 先发布分片（非协调进程，拿到本地分片即返回）
	g1 := NewStoreGatherer(kv, 1, 2)
	shard1 := core.ResultTable{2: {"auc": 40}}
	got, coordinator, err := g1.Gather(ctx, "valid:1", shard1)
	require.NoError(t, err)
	assert.False(t, coordinator)
	assert.Equal(t, shard1, got)

	// rank 0 收齐两个分片后做纯并集
	g0 := NewStoreGatherer(kv, 0, 2)
	merged, coordinator, err := g0.Gather(ctx, "valid:1", core.ResultTable{1: {"auc": 60}})
	require.NoError(t, err)
	assert.True(t, coordinator)
	require.Len(t, merged, 2)
	assert.Equal(t, 60.0, merged[1]["auc"])
	assert.Equal(t, 40.0, merged[2]["auc"])
}
