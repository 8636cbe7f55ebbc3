package dataset

import (
	"fmt"

	"github.com/rushteam/mindrs/core"
	"github.com/rushteam/mindrs/pkg/dsl"
)

// ImpressionOptions 控制验证集 batch 构建。
type ImpressionOptions struct {
	// BatchSize 每个验证 batch 的曝光数，默认 128
	BatchSize int

	// HistoryLen 历史截断/padding 长度，默认 50
	HistoryLen int

	// SelectedImp 可选的曝光子集筛选表达式（CEL）
	SelectedImp string
}

// ImpressionDataset 实现 core.BatchIterator：
// 一条曝光一个评估单元，候选按 batch 内最大长度 padding。
//
// 附带 NewsEmbeddingCache 时（快速评估），batch 会携带
// CandidateEmbeds/HistoryEmbeds，模型可跳过新闻编码。
type ImpressionDataset struct {
	corpus    *Corpus
	opts      ImpressionOptions
	cache     core.NewsEmbeddingCache
	behaviors []int // 入选曝光的语料下标
	cursor    int
}

// NewImpressionDataset 构建验证迭代器。
// cache 为 nil 时走慢速评估（模型重新编码）。
func NewImpressionDataset(corpus *Corpus, cache core.NewsEmbeddingCache, opts ImpressionOptions) (*ImpressionDataset, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 128
	}
	if opts.HistoryLen <= 0 {
		opts.HistoryLen = 50
	}

	filter, err := dsl.NewImpressionFilter(opts.SelectedImp)
	if err != nil {
		return nil, fmt.Errorf("selected_imp: %w", err)
	}

	ds := &ImpressionDataset{corpus: corpus, opts: opts, cache: cache}
	for bi, b := range corpus.Behaviors {
		if b.Labels == nil {
			continue
		}
		ok, err := filter.Match(b.ImpressionIndex, b.UID, len(b.Candidates), len(b.History))
		if err != nil {
			return nil, fmt.Errorf("selected_imp: %w", err)
		}
		if ok {
			ds.behaviors = append(ds.behaviors, bi)
		}
	}
	return ds, nil
}

// Len 返回验证 batch 数。
func (ds *ImpressionDataset) Len() int {
	n := len(ds.behaviors)
	return (n + ds.opts.BatchSize - 1) / ds.opts.BatchSize
}

// Reset 回到起点（验证顺序固定，不打乱）。
func (ds *ImpressionDataset) Reset() { ds.cursor = 0 }

// Next 产出下一个验证 batch。
func (ds *ImpressionDataset) Next() (*core.Batch, bool) {
	if ds.cursor >= len(ds.behaviors) {
		return nil, false
	}
	end := ds.cursor + ds.opts.BatchSize
	if end > len(ds.behaviors) {
		end = len(ds.behaviors)
	}
	part := ds.behaviors[ds.cursor:end]
	ds.cursor = end

	// 候选 padding 到 batch 内最大候选数
	candPad := 0
	for _, bi := range part {
		if n := len(ds.corpus.Behaviors[bi].Candidates); n > candPad {
			candPad = n
		}
	}

	batch := newBatch(len(part))
	for i, bi := range part {
		b := ds.corpus.Behaviors[bi]
		fillRow(batch, i, ds.corpus, b, b.Candidates, b.Labels, ds.opts.HistoryLen, candPad)
	}
	if ds.cache != nil {
		ds.attachEmbeds(batch)
	}
	return batch, true
}

// attachEmbeds 把缓存向量贴到 batch 上；padding 位置用零向量。
func (ds *ImpressionDataset) attachEmbeds(batch *core.Batch) {
	dim := 0
	for _, v := range ds.cache {
		dim = len(v)
		break
	}
	zero := make([]float64, dim)
	lookup := func(idx int) []float64 {
		if idx == 0 {
			return zero
		}
		if v, ok := ds.cache[idx]; ok {
			return v
		}
		return zero
	}

	n := batch.Size()
	batch.CandidateEmbeds = make([][][]float64, n)
	batch.HistoryEmbeds = make([][][]float64, n)
	for i := 0; i < n; i++ {
		ce := make([][]float64, len(batch.CandidateIndex[i]))
		for c, idx := range batch.CandidateIndex[i] {
			ce[c] = lookup(idx)
		}
		he := make([][]float64, len(batch.HistoryIndex[i]))
		for h, idx := range batch.HistoryIndex[i] {
			he[h] = lookup(idx)
		}
		batch.CandidateEmbeds[i] = ce
		batch.HistoryEmbeds[i] = he
	}
}

var _ core.BatchIterator = (*ImpressionDataset)(nil)

// NewsLoader 实现 core.NewsIterator：按批产出全部去重新闻。
type NewsLoader struct {
	corpus    *Corpus
	batchSize int
	cursor    int
}

// NewNewsLoader 创建新闻 loader（跳过索引 0 的 padding 新闻）。
func NewNewsLoader(corpus *Corpus, batchSize int) *NewsLoader {
	if batchSize <= 0 {
		batchSize = 512
	}
	return &NewsLoader{corpus: corpus, batchSize: batchSize, cursor: 1}
}

func (nl *NewsLoader) Len() int {
	n := nl.corpus.NewsCount() - 1
	return (n + nl.batchSize - 1) / nl.batchSize
}

func (nl *NewsLoader) Reset() { nl.cursor = 1 }

func (nl *NewsLoader) Next() (*core.NewsBatch, bool) {
	if nl.cursor >= nl.corpus.NewsCount() {
		return nil, false
	}
	end := nl.cursor + nl.batchSize
	if end > nl.corpus.NewsCount() {
		end = nl.corpus.NewsCount()
	}
	nb := &core.NewsBatch{
		Index:  make([]int, 0, end-nl.cursor),
		Tokens: make([][]int, 0, end-nl.cursor),
	}
	for idx := nl.cursor; idx < end; idx++ {
		nb.Index = append(nb.Index, idx)
		nb.Tokens = append(nb.Tokens, nl.corpus.NewsTokens[idx])
	}
	nl.cursor = end
	return nb, true
}

var _ core.NewsIterator = (*NewsLoader)(nil)
