package embedding

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/mindrs/core"
)

// PrecomputeOptions 控制新闻向量预计算。
type PrecomputeOptions struct {
	// MaxConcurrent 最大并发 batch 数（<= 0 表示不限流）
	MaxConcurrent int

	// Provider 可选的外部向量来源；命中的新闻跳过模型编码
	Provider Provider
}

// PrecomputeNewsEmbeddings 用新闻 loader 一次性编码全部去重新闻，
// 返回快速评估使用的 NewsEmbeddingCache。
//
// 要求 encoder 处于 eval 模式且 EncodeNews 可并发调用（只读参数）。
// 任意 batch 编码失败都会使整个预计算失败，由调用方回退慢速评估。
// Provider 实现了 Publisher 时，本轮新编码的向量会回写进提供方。
func PrecomputeNewsEmbeddings(
	ctx context.Context,
	encoder core.NewsEncoder,
	loader core.NewsIterator,
	opts PrecomputeOptions,
) (core.NewsEmbeddingCache, error) {
	var (
		mu    sync.Mutex
		cache = make(core.NewsEmbeddingCache)
		fresh = make(core.NewsEmbeddingCache)
		eg, _ = errgroup.WithContext(ctx)
	)

	// 限流：使用 semaphore 控制并发数
	sem := make(chan struct{}, opts.MaxConcurrent)

	loader.Reset()
	for {
		nb, ok := loader.Next()
		if !ok {
			break
		}
		batch := nb

		eg.Go(func() error {
			if opts.MaxConcurrent > 0 {
				sem <- struct{}{}
				defer func() { <-sem }()
			}

			// 先查外部提供方，命中的不再编码
			pending := batch
			if opts.Provider != nil {
				got, err := opts.Provider.BatchGet(ctx, batch.Index)
				if err != nil {
					return err
				}
				rest := &core.NewsBatch{}
				mu.Lock()
				for i, idx := range batch.Index {
					if v, ok := got[idx]; ok {
						cache[idx] = v
					} else {
						rest.Index = append(rest.Index, idx)
						rest.Tokens = append(rest.Tokens, batch.Tokens[i])
					}
				}
				mu.Unlock()
				pending = rest
			}
			if len(pending.Index) == 0 {
				return nil
			}

			embeds, err := encoder.EncodeNews(pending.Tokens)
			if err != nil {
				return err
			}
			mu.Lock()
			for i, idx := range pending.Index {
				cache[idx] = embeds[i]
				fresh[idx] = embeds[i]
			}
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if pub, ok := opts.Provider.(Publisher); ok && len(fresh) > 0 {
		if err := pub.Publish(ctx, fresh); err != nil {
			return nil, err
		}
	}
	return cache, nil
}
