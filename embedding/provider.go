// Package embedding 提供词向量与新闻向量的加载/预计算。
//
// 两类向量：
//   - 词向量（GloVe）：模型 embedding 层的初始化权重
//   - 新闻向量：快速评估用的文档级向量，可由模型离线编码，
//     也可从外部特征仓库（Feast）拉取
package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rushteam/mindrs/core"
)

// Provider 是新闻向量提供方的领域接口。
type Provider interface {
	// Name 返回提供方名称（用于日志）
	Name() string

	// BatchGet 批量获取新闻向量；缺失的索引不出现在结果中
	BatchGet(ctx context.Context, newsIndex []int) (map[int][]float64, error)

	// Dimension 返回向量维度
	Dimension() int

	// Close 释放资源
	Close() error
}

// Publisher 是可回写的 Provider：预计算编码出的新向量可以发布，
// 供后续验证轮与其他副本直接命中，免去重复编码。
type Publisher interface {
	Publish(ctx context.Context, cache core.NewsEmbeddingCache) error
}

// MemoryProvider 是内存实现的 Provider，用于测试/开发/原型。
type MemoryProvider struct {
	dim     int
	vectors map[int][]float64
}

// NewMemoryProvider 从现成的向量表创建 Provider。
func NewMemoryProvider(vectors map[int][]float64, dim int) *MemoryProvider {
	if dim <= 0 {
		for _, v := range vectors {
			dim = len(v)
			break
		}
	}
	return &MemoryProvider{dim: dim, vectors: vectors}
}

func (p *MemoryProvider) Name() string { return "memory" }

func (p *MemoryProvider) Dimension() int { return p.dim }

func (p *MemoryProvider) BatchGet(ctx context.Context, newsIndex []int) (map[int][]float64, error) {
	out := make(map[int][]float64, len(newsIndex))
	for _, idx := range newsIndex {
		if v, ok := p.vectors[idx]; ok {
			out[idx] = v
		}
	}
	return out, nil
}

func (p *MemoryProvider) Close() error { return nil }

// StoreProvider 把 KeyValueStore 当作新闻向量的外溢缓存：
// 向量按 "mindrs:news:<index>" 存 JSON 编码的 []float64。
// 实现 Publisher，预计算结果会回写进存储。
type StoreProvider struct {
	store core.Store
	dim   int
}

// NewStoreProvider 创建存储后端的新闻向量提供方。
func NewStoreProvider(store core.Store, dim int) *StoreProvider {
	return &StoreProvider{store: store, dim: dim}
}

func (p *StoreProvider) Name() string { return "store" }

func (p *StoreProvider) Dimension() int { return p.dim }

func (p *StoreProvider) key(idx int) string {
	return "mindrs:news:" + strconv.Itoa(idx)
}

func (p *StoreProvider) BatchGet(ctx context.Context, newsIndex []int) (map[int][]float64, error) {
	out := make(map[int][]float64, len(newsIndex))
	for _, idx := range newsIndex {
		raw, err := p.store.Get(ctx, p.key(idx))
		if core.IsStoreNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var vec []float64
		if err := json.Unmarshal(raw, &vec); err != nil {
			return nil, fmt.Errorf("decode news vector %d: %w", idx, err)
		}
		out[idx] = vec
	}
	return out, nil
}

// Publish 把预计算出的向量写回存储。
func (p *StoreProvider) Publish(ctx context.Context, cache core.NewsEmbeddingCache) error {
	for idx, vec := range cache {
		raw, err := json.Marshal(vec)
		if err != nil {
			return fmt.Errorf("encode news vector %d: %w", idx, err)
		}
		if err := p.store.Set(ctx, p.key(idx), raw); err != nil {
			return fmt.Errorf("publish news vector %d: %w", idx, err)
		}
	}
	return nil
}

func (p *StoreProvider) Close() error { return p.store.Close() }

var (
	_ Provider  = (*StoreProvider)(nil)
	_ Publisher = (*StoreProvider)(nil)
)
