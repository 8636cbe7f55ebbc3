package trainer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/mindrs/core"
)

func TestWeightCaptureTruncation(t *testing.T) {
	batch := validBatch()
	out := &core.Output{
		Pred: [][]float64{
			{0.9, 0.1, 0.2, 0.9},
			{0.6, 0.7, 0, 0},
		},
		Weights: map[string][][]float64{
			"candidate_weight": {{1, 2, 3, 4}, {5, 6, 7, 8}},
			"history_weight":   {{0.5, 0.5}, {1, 0}},
		},
	}

	c := NewWeightCapture(10)
	c.Add(batch, out, [][]float64{{200.0 / 3}, {50}})
	require.Equal(t, 2, c.Count())
	dump := c.Dump()

	assert.Equal(t, []float64{10}, dump["impression_index"][0])
	assert.Equal(t, []float64{11}, dump["impression_index"][1])

	// 标签/分数按候选长度截断
	assert.Equal(t, []float64{1, 0, 1}, dump["label"][0])
	assert.Equal(t, []float64{0.6, 0.7}, dump["pred_score"][1])

	// 逐 impression 的指标行随权重一起记录
	assert.Equal(t, []float64{200.0 / 3}, dump["results"][0])
	assert.Equal(t, []float64{50}, dump["results"][1])

	// 名字含 candidate 的权重按候选长度截断，否则按历史长度
	assert.Equal(t, []float64{1, 2, 3}, dump["candidate_weight"][0])
	assert.Equal(t, []float64{5, 6}, dump["candidate_weight"][1])
	assert.Equal(t, []float64{0.5}, dump["history_weight"][0])
}

func TestWeightCaptureCap(t *testing.T) {
	batch := validBatch()
	out := &core.Output{Pred: [][]float64{{0.9, 0.1, 0.2, 0.9}, {0.6, 0.7, 0, 0}}}

	c := NewWeightCapture(3)
	c.Add(batch, out, nil)
	c.Add(batch, out, nil)
	assert.True(t, c.Full())
	assert.Equal(t, 3, c.Count(), "capture stops at the configured cap")
	assert.Len(t, c.Dump()["impression_index"], 3)
}

func TestMergeWeightDumpConcatenative(t *testing.T) {
	a := WeightDump{"label": {{1}, {2}}}
	b := WeightDump{"label": {{3}}, "pred_score": {{0.5}}}

	merged := MergeWeightDump(a, b)
	// 逐字段拼接，A 在前，不受采集上限影响
	assert.Equal(t, [][]float64{{1}, {2}, {3}}, merged["label"])
	assert.Equal(t, [][]float64{{0.5}}, merged["pred_score"])

	// 原 dump 不被改写
	assert.Len(t, a["label"], 2)
}

func TestWeightDumpPersistence(t *testing.T) {
	dir := t.TempDir()
	path := DumpPath(dir, 8)
	assert.Equal(t, filepath.Join(dir, "weight", "8.pt"), path)

	// 文件不存在时返回空 dump
	prior, err := LoadWeightDump(path)
	require.NoError(t, err)
	assert.Empty(t, prior)

	first := WeightDump{"label": {{1, 0}}}
	require.NoError(t, err)
	require.NoError(t, SaveWeightDump(path, first))

	// 第二次验证：读旧 dump、拼接、覆盖写
	loaded, err := LoadWeightDump(path)
	require.NoError(t, err)
	require.NoError(t, SaveWeightDump(path, MergeWeightDump(loaded, WeightDump{"label": {{0, 1}}})))

	final, err := LoadWeightDump(path)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, final["label"])
}
