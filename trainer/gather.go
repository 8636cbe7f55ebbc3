package trainer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rushteam/mindrs/core"
)

// Gatherer 汇总多进程副本的验证结果分片。
//
// 约定：
//   - impression index 全局唯一，聚合是纯粹的 key 并集
//   - 只有协调进程（coordinator == true）拿到完整结果，
//     其余进程拿到本地分片即可
type Gatherer interface {
	// Gather 提交本地分片并返回 (聚合结果, 是否协调进程)
	Gather(ctx context.Context, key string, local core.ResultTable) (core.ResultTable, bool, error)
}

// LocalGatherer 是单进程场景的恒等实现。
type LocalGatherer struct{}

// Gather 原样返回本地结果。
func (LocalGatherer) Gather(_ context.Context, _ string, local core.ResultTable) (core.ResultTable, bool, error) {
	return local, true, nil
}

// StoreGatherer 经由 KeyValueStore 做跨进程汇总：
// 各 rank 把分片写入同一 Hash，rank 0 轮询到齐后做并集。
type StoreGatherer struct {
	kv        core.KeyValueStore
	rank      int
	worldSize int
	poll      time.Duration
	timeout   time.Duration
}

// NewStoreGatherer 创建跨进程汇总器。
func NewStoreGatherer(kv core.KeyValueStore, rank, worldSize int) *StoreGatherer {
	return &StoreGatherer{
		kv:        kv,
		rank:      rank,
		worldSize: worldSize,
		poll:      200 * time.Millisecond,
		timeout:   5 * time.Minute,
	}
}

// Gather 发布本进程分片；协调进程等待全部 rank 到齐后并集返回。
func (g *StoreGatherer) Gather(ctx context.Context, key string, local core.ResultTable) (core.ResultTable, bool, error) {
	data, err := json.Marshal(local)
	if err != nil {
		return nil, false, fmt.Errorf("encode result shard: %w", err)
	}
	field := fmt.Sprintf("rank:%d", g.rank)
	if err := g.kv.HSet(ctx, key, field, data); err != nil {
		return nil, false, fmt.Errorf("publish result shard: %w", err)
	}
	if g.rank != 0 {
		return local, false, nil
	}

	deadline := time.Now().Add(g.timeout)
	for {
		shards, err := g.kv.HGetAll(ctx, key)
		if err != nil && !core.IsStoreNotFound(err) {
			return nil, true, fmt.Errorf("collect result shards: %w", err)
		}
		if len(shards) >= g.worldSize {
			merged := make(core.ResultTable)
			for _, raw := range shards {
				var shard core.ResultTable
				if err := json.Unmarshal(raw, &shard); err != nil {
					return nil, true, fmt.Errorf("decode result shard: %w", err)
				}
				merged.Merge(shard)
			}
			return merged, true, nil
		}
		if time.Now().After(deadline) {
			return nil, true, fmt.Errorf("gather %s: %d/%d shards after %s", key, len(shards), g.worldSize, g.timeout)
		}
		select {
		case <-ctx.Done():
			return nil, true, ctx.Err()
		case <-time.After(g.poll):
		}
	}
}

var (
	_ Gatherer = LocalGatherer{}
	_ Gatherer = (*StoreGatherer)(nil)
)
