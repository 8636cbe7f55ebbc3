package dataset

import (
	"math/rand"

	"github.com/rushteam/mindrs/core"
)

// TrainOptions 控制训练样本构建。
type TrainOptions struct {
	// Strategy 训练样本组织方式（pair_wise / point_wise）
	Strategy core.TrainStrategy

	// NegNum pair_wise 模式下每个正样本搭配的负样本数，默认 4
	NegNum int

	// BatchSize 默认 64
	BatchSize int

	// HistoryLen 历史截断/padding 长度，默认 50
	HistoryLen int

	// Seed 采样随机种子
	Seed int64
}

type trainSample struct {
	behavior   int   // 语料中的曝光下标
	candidates []int // 候选新闻索引（pair_wise：pos 在 0 位）
	labels     []float64
}

// TrainIterator 实现 core.BatchIterator：
// 负采样 + padding，每轮耗尽即一个 epoch，Reset 时重新打乱。
type TrainIterator struct {
	corpus  *Corpus
	opts    TrainOptions
	rng     *rand.Rand
	samples []trainSample
	cursor  int
}

// NewTrainIterator 从语料构建训练迭代器。
func NewTrainIterator(corpus *Corpus, opts TrainOptions) (*TrainIterator, error) {
	if err := opts.Strategy.Validate(); err != nil {
		return nil, err
	}
	if opts.NegNum <= 0 {
		opts.NegNum = 4
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.HistoryLen <= 0 {
		opts.HistoryLen = 50
	}
	it := &TrainIterator{
		corpus: corpus,
		opts:   opts,
		rng:    rand.New(rand.NewSource(opts.Seed)),
	}
	it.build()
	it.shuffle()
	return it, nil
}

// build 展开曝光日志为训练样本。
func (it *TrainIterator) build() {
	for bi, b := range it.corpus.Behaviors {
		if b.Labels == nil {
			continue
		}
		var negatives []int
		for ci, l := range b.Labels {
			if l == 0 {
				negatives = append(negatives, b.Candidates[ci])
			}
		}
		for ci, l := range b.Labels {
			if l != 1 {
				continue
			}
			switch it.opts.Strategy {
			case core.TrainStrategyPairWise:
				// 一正多负：负样本从同曝光的未点击候选中有放回采样
				cands := make([]int, 0, it.opts.NegNum+1)
				labels := make([]float64, it.opts.NegNum+1)
				cands = append(cands, b.Candidates[ci])
				labels[0] = 1
				for k := 0; k < it.opts.NegNum; k++ {
					if len(negatives) == 0 {
						cands = append(cands, 0) // 无负样本时用 padding 新闻
						continue
					}
					cands = append(cands, negatives[it.rng.Intn(len(negatives))])
				}
				it.samples = append(it.samples, trainSample{behavior: bi, candidates: cands, labels: labels})
			case core.TrainStrategyPointWise:
				it.samples = append(it.samples, trainSample{
					behavior:   bi,
					candidates: []int{b.Candidates[ci]},
					labels:     []float64{1},
				})
			}
		}
		if it.opts.Strategy == core.TrainStrategyPointWise {
			for _, neg := range negatives {
				it.samples = append(it.samples, trainSample{
					behavior:   bi,
					candidates: []int{neg},
					labels:     []float64{0},
				})
			}
		}
	}
}

func (it *TrainIterator) shuffle() {
	it.rng.Shuffle(len(it.samples), func(i, j int) {
		it.samples[i], it.samples[j] = it.samples[j], it.samples[i]
	})
}

// Len 返回一个 epoch 的 batch 数。
func (it *TrainIterator) Len() int {
	n := len(it.samples)
	return (n + it.opts.BatchSize - 1) / it.opts.BatchSize
}

// Reset 重新打乱并回到起点。
func (it *TrainIterator) Reset() {
	it.cursor = 0
	it.shuffle()
}

// Next 产出下一个训练 batch。
func (it *TrainIterator) Next() (*core.Batch, bool) {
	if it.cursor >= len(it.samples) {
		return nil, false
	}
	end := it.cursor + it.opts.BatchSize
	if end > len(it.samples) {
		end = len(it.samples)
	}
	part := it.samples[it.cursor:end]
	it.cursor = end

	batch := newBatch(len(part))
	for i, s := range part {
		b := it.corpus.Behaviors[s.behavior]
		fillRow(batch, i, it.corpus, b, s.candidates, s.labels, it.opts.HistoryLen, len(s.candidates))
	}
	return batch, true
}

// newBatch 分配一个 n 行的空 batch。
func newBatch(n int) *core.Batch {
	return &core.Batch{
		Label:           make([][]float64, n),
		CandidateNews:   make([][][]int, n),
		HistoryNews:     make([][][]int, n),
		UID:             make([]int, n),
		HistoryLength:   make([]int, n),
		CandidateLength: make([]int, n),
		ImpressionIndex: make([]int, n),
		CandidateIndex:  make([][]int, n),
		HistoryIndex:    make([][]int, n),
	}
}

// fillRow 填充 batch 的第 i 行：候选/历史 padding 与真实长度记录。
func fillRow(batch *core.Batch, i int, corpus *Corpus, b Behavior,
	candidates []int, labels []float64, historyLen, candPad int) {

	// 候选：padding 到 candPad
	canLen := len(candidates)
	if canLen > candPad {
		canLen = candPad
	}
	candIdx := make([]int, candPad)
	candTokens := make([][]int, candPad)
	labelRow := make([]float64, candPad)
	for c := 0; c < candPad; c++ {
		if c < canLen {
			candIdx[c] = candidates[c]
			candTokens[c] = corpus.NewsTokens[candidates[c]]
			if c < len(labels) {
				labelRow[c] = labels[c]
			}
		} else {
			candTokens[c] = corpus.NewsTokens[0]
		}
	}

	// 历史：保留最近 historyLen 条
	hist := b.History
	if len(hist) > historyLen {
		hist = hist[len(hist)-historyLen:]
	}
	hisIdx := make([]int, historyLen)
	hisTokens := make([][]int, historyLen)
	for h := 0; h < historyLen; h++ {
		if h < len(hist) {
			hisIdx[h] = hist[h]
			hisTokens[h] = corpus.NewsTokens[hist[h]]
		} else {
			hisTokens[h] = corpus.NewsTokens[0]
		}
	}
	hisLen := len(hist)
	if hisLen == 0 {
		hisLen = 1 // 空历史退化为一条 padding 新闻，避免零长度注意力
	}

	batch.Label[i] = labelRow
	batch.CandidateNews[i] = candTokens
	batch.HistoryNews[i] = hisTokens
	batch.UID[i] = b.UID
	batch.HistoryLength[i] = hisLen
	batch.CandidateLength[i] = canLen
	batch.ImpressionIndex[i] = b.ImpressionIndex
	batch.CandidateIndex[i] = candIdx
	batch.HistoryIndex[i] = hisIdx
}

var _ core.BatchIterator = (*TrainIterator)(nil)
