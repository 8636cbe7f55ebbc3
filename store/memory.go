package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore 是进程内的 KeyValueStore，服务单进程训练与测试：
//   - hash：按 rank 分片的验证结果汇总
//   - 有序集合：按指标分数排序的最优 checkpoint 记录
//   - 普通 KV（带 TTL）：新闻向量的外溢缓存
//
// 进程重启后数据丢失，多进程场景换 RedisStore。
type MemoryStore struct {
	mu      sync.RWMutex
	kv      map[string]kvItem
	hashes  map[string]map[string][]byte
	zsets   map[string]map[string]float64
	janitor *time.Ticker
}

type kvItem struct {
	value    []byte
	expireAt time.Time // 零值表示不过期
}

func (it kvItem) expired(now time.Time) bool {
	return !it.expireAt.IsZero() && now.After(it.expireAt)
}

func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{
		kv:      make(map[string]kvItem),
		hashes:  make(map[string]map[string][]byte),
		zsets:   make(map[string]map[string]float64),
		janitor: time.NewTicker(10 * time.Second),
	}
	go m.sweep()
	return m
}

func (m *MemoryStore) Name() string { return "memory" }

// sweep 定期清理到期的 KV 条目。hash/zset 不设 TTL，不参与清理。
func (m *MemoryStore) sweep() {
	for range m.janitor.C {
		now := time.Now()
		m.mu.Lock()
		for k, it := range m.kv {
			if it.expired(now) {
				delete(m.kv, k)
			}
		}
		m.mu.Unlock()
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.kv[key]
	if !ok || it.expired(time.Now()) {
		return nil, ErrNotFound
	}
	return it.value, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	it := kvItem{value: value}
	if len(ttl) > 0 && ttl[0] > 0 {
		it.expireAt = time.Now().Add(time.Duration(ttl[0]) * time.Second)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = it
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.kv, key)
	return nil
}

func (m *MemoryStore) Close() error {
	if m.janitor != nil {
		m.janitor.Stop()
	}
	return nil
}

// 验证结果分片：hash key 对应一轮 gather，field 对应一个 rank。

func (m *MemoryStore) HSet(ctx context.Context, key, field string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string][]byte)
		m.hashes[key] = h
	}
	h[field] = value
	return nil
}

func (m *MemoryStore) HGet(ctx context.Context, key, field string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.hashes[key][field]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h := m.hashes[key]
	out := make(map[string][]byte, len(h))
	for field, v := range h {
		out[field] = v
	}
	return out, nil
}

// 最优 checkpoint 记录：member "epoch:<N>"，score 为监控指标值。

func (m *MemoryStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	z, ok := m.zsets[key]
	if !ok {
		z = make(map[string]float64)
		m.zsets[key] = z
	}
	z[member] = score
	return nil
}

// ZRange 按分数降序返回 [start, stop] 区间的成员；stop < 0 取到末尾。
func (m *MemoryStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	z := m.zsets[key]
	if len(z) == 0 {
		return nil, nil
	}

	members := make([]string, 0, len(z))
	for member := range z {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		return z[members[i]] > z[members[j]]
	})

	if start < 0 {
		start = 0
	}
	if stop < 0 || stop >= int64(len(members)) {
		stop = int64(len(members)) - 1
	}
	if start > stop {
		return nil, nil
	}
	return members[start : stop+1], nil
}

func (m *MemoryStore) ZScore(ctx context.Context, key string, member string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	score, ok := m.zsets[key][member]
	if !ok {
		return 0, ErrNotFound
	}
	return score, nil
}

var _ KeyValueStore = (*MemoryStore)(nil)
