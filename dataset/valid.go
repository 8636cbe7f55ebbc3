package dataset

import "github.com/rushteam/mindrs/core"

// ValidSource 把一份验证语料打包成训练器需要的两个迭代器来源：
// 新闻 loader（用于向量预计算）与 impression 迭代器（用于逐批评估）。
type ValidSource struct {
	corpus        *Corpus
	opts          ImpressionOptions
	newsBatchSize int
}

// NewValidSource 创建验证数据来源。
func NewValidSource(corpus *Corpus, opts ImpressionOptions, newsBatchSize int) *ValidSource {
	return &ValidSource{corpus: corpus, opts: opts, newsBatchSize: newsBatchSize}
}

// News 返回新的新闻迭代器。
func (s *ValidSource) News() core.NewsIterator {
	return NewNewsLoader(s.corpus, s.newsBatchSize)
}

// Impressions 返回新的 impression 迭代器；cache 非 nil 时
// batch 会携带缓存的新闻向量（快速评估）。
func (s *ValidSource) Impressions(cache core.NewsEmbeddingCache) (core.BatchIterator, error) {
	return NewImpressionDataset(s.corpus, cache, s.opts)
}
