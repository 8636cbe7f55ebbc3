package trainer

import (
	"context"
	"errors"

	"github.com/rushteam/mindrs/core"
)

// fakeModel 的分数只由候选的新闻索引决定（score = index / 10），
// 快慢两条路径产出完全一致的分数。
type fakeModel struct {
	params    []*core.Param
	training  bool
	encodeErr error

	forwardCalls int
	scoreCalls   int
	encodeCalls  int
}

func newFakeModel() *fakeModel {
	return &fakeModel{
		params:   []*core.Param{core.NewParam("w", []float64{0.1, 0.2})},
		training: true,
	}
}

func (m *fakeModel) Name() string { return "fake" }

func (m *fakeModel) Forward(batch *core.Batch) (*core.Output, error) {
	m.forwardCalls++
	return &core.Output{Pred: m.score(batch)}, nil
}

func (m *fakeModel) score(batch *core.Batch) [][]float64 {
	pred := make([][]float64, batch.Size())
	for i := range pred {
		row := make([]float64, len(batch.CandidateIndex[i]))
		for c, idx := range batch.CandidateIndex[i] {
			row[c] = float64(idx) / 10
		}
		pred[i] = row
	}
	return pred
}

func (m *fakeModel) Backward(_ *core.Batch, _ *core.OutputGrad) error { return nil }
func (m *fakeModel) Parameters() []*core.Param                        { return m.params }
func (m *fakeModel) Train()                                           { m.training = true }
func (m *fakeModel) Eval()                                            { m.training = false }
func (m *fakeModel) SupportsFastEvaluation() bool                     { return true }

func (m *fakeModel) EncodeNews(tokens [][]int) ([][]float64, error) {
	m.encodeCalls++
	if m.encodeErr != nil {
		return nil, m.encodeErr
	}
	out := make([][]float64, len(tokens))
	for i := range out {
		out[i] = []float64{1}
	}
	return out, nil
}

func (m *fakeModel) ScoreWithEmbeds(batch *core.Batch) (*core.Output, error) {
	m.scoreCalls++
	if batch.CandidateEmbeds == nil {
		return nil, errors.New("no cached embeds")
	}
	return &core.Output{Pred: m.score(batch)}, nil
}

var (
	_ core.Model            = (*fakeModel)(nil)
	_ core.NewsEncoder      = (*fakeModel)(nil)
	_ core.EvalCapabilities = (*fakeModel)(nil)
)

// fakeBatchIter 按序产出固定 batch 序列。
type fakeBatchIter struct {
	batches []*core.Batch
	cursor  int
}

func (it *fakeBatchIter) Len() int { return len(it.batches) }
func (it *fakeBatchIter) Reset()   { it.cursor = 0 }
func (it *fakeBatchIter) Next() (*core.Batch, bool) {
	if it.cursor >= len(it.batches) {
		return nil, false
	}
	b := it.batches[it.cursor]
	it.cursor++
	return b, true
}

type fakeNewsIter struct {
	done bool
}

func (it *fakeNewsIter) Len() int { return 1 }
func (it *fakeNewsIter) Reset()   { it.done = false }
func (it *fakeNewsIter) Next() (*core.NewsBatch, bool) {
	if it.done {
		return nil, false
	}
	it.done = true
	return &core.NewsBatch{Index: []int{1, 2}, Tokens: [][]int{{1}, {2}}}, true
}

// fakeValidData 记录 Impressions 收到的缓存，便于断言快慢路径。
type fakeValidData struct {
	batches     []*core.Batch
	impressions int
	lastCache   core.NewsEmbeddingCache
	cacheAtCall []bool

	// attachEmbeds 为 true 时在缓存可用时给 batch 贴上向量
	attachEmbeds bool
}

func (d *fakeValidData) News() core.NewsIterator { return &fakeNewsIter{} }

func (d *fakeValidData) Impressions(cache core.NewsEmbeddingCache) (core.BatchIterator, error) {
	d.impressions++
	d.lastCache = cache
	d.cacheAtCall = append(d.cacheAtCall, cache != nil)
	batches := d.batches
	if cache != nil && d.attachEmbeds {
		for _, b := range batches {
			b.CandidateEmbeds = make([][][]float64, b.Size())
			b.HistoryEmbeds = make([][][]float64, b.Size())
			for i := 0; i < b.Size(); i++ {
				b.CandidateEmbeds[i] = make([][]float64, len(b.CandidateIndex[i]))
				for c := range b.CandidateEmbeds[i] {
					b.CandidateEmbeds[i][c] = []float64{1}
				}
				b.HistoryEmbeds[i] = make([][]float64, len(b.HistoryIndex[i]))
				for h := range b.HistoryEmbeds[i] {
					b.HistoryEmbeds[i][h] = []float64{1}
				}
			}
		}
	}
	return &fakeBatchIter{batches: batches}, nil
}

var _ ValidData = (*fakeValidData)(nil)

// nopLoss 返回零损失与零梯度，用于只关注控制流的测试。
type nopLoss struct{}

func (nopLoss) Name() string { return "nop" }

func (nopLoss) Compute(pred, _ [][]float64, _ []int) (float64, [][]float64, error) {
	grad := make([][]float64, len(pred))
	for i := range grad {
		grad[i] = make([]float64, len(pred[i]))
	}
	return 0, grad, nil
}

type nopOptimizer struct{}

func (nopOptimizer) Step()                   {}
func (nopOptimizer) ZeroGrad()               {}
func (nopOptimizer) LearningRate() float64   { return 0.1 }
func (nopOptimizer) SetLearningRate(float64) {}

// captureGatherer 记录提交的分片，便于断言逐 impression 结果。
type captureGatherer struct {
	tables []core.ResultTable
}

func (g *captureGatherer) Gather(_ context.Context, _ string, local core.ResultTable) (core.ResultTable, bool, error) {
	g.tables = append(g.tables, local)
	return local, true, nil
}
