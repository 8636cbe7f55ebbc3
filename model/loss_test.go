package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/mindrs/core"
)

func TestLossFor(t *testing.T) {
	l, err := LossFor(core.TrainStrategyPairWise)
	require.NoError(t, err)
	assert.Equal(t, "cross_entropy", l.Name())

	l, err = LossFor(core.TrainStrategyPointWise)
	require.NoError(t, err)
	assert.Equal(t, "bce", l.Name())

	_, err = LossFor(core.TrainStrategy("list_wise"))
	assert.Error(t, err)
}

func TestCrossEntropyLoss(t *testing.T) {
	loss := &CrossEntropyLoss{}
	pred := [][]float64{{2, 1, 0, 99}}
	label := [][]float64{{1, 0, 0, 0}}

	got, grad, err := loss.Compute(pred, label, []int{3})
	require.NoError(t, err)

	// softmax([2,1,0]) 的正样本概率
	z := math.Exp(2) + math.Exp(1) + 1
	want := -math.Log(math.Exp(2) / z)
	assert.InDelta(t, want, got, 1e-12)

	// 梯度 = softmax 概率 - 标签；padding 位恒为 0
	assert.InDelta(t, math.Exp(2)/z-1, grad[0][0], 1e-12)
	assert.InDelta(t, math.Exp(1)/z, grad[0][1], 1e-12)
	assert.Zero(t, grad[0][3])

	// 梯度在有效位上和为 0（softmax 性质）
	assert.InDelta(t, 0, grad[0][0]+grad[0][1]+grad[0][2], 1e-12)
}

func TestCrossEntropyLossBatchMean(t *testing.T) {
	loss := &CrossEntropyLoss{}
	pred := [][]float64{{1, 0}, {1, 0}}
	label := [][]float64{{1, 0}, {1, 0}}

	single, singleGrad, err := loss.Compute(pred[:1], label[:1], []int{2})
	require.NoError(t, err)
	double, doubleGrad, err := loss.Compute(pred, label, []int{2, 2})
	require.NoError(t, err)

	// 损失对 batch 取均值，梯度同步缩放
	assert.InDelta(t, single, double, 1e-12)
	assert.InDelta(t, singleGrad[0][0], doubleGrad[0][0]*2, 1e-12)
}

func TestBCELoss(t *testing.T) {
	loss := &BCELoss{}
	pred := [][]float64{{0, 2, 99}}
	label := [][]float64{{1, 0, 0}}

	got, grad, err := loss.Compute(pred, label, []int{2})
	require.NoError(t, err)

	p0, p1 := sigmoid(0.0), sigmoid(2.0)
	want := -(math.Log(p0) + math.Log(1-p1)) / 2
	assert.InDelta(t, want, got, 1e-12)

	// 梯度 = (sigmoid(x) - y) / total
	assert.InDelta(t, (p0-1)/2, grad[0][0], 1e-12)
	assert.InDelta(t, p1/2, grad[0][1], 1e-12)
	assert.Zero(t, grad[0][2])

	_, _, err = loss.Compute([][]float64{{1}}, [][]float64{{1}}, []int{0})
	assert.Error(t, err, "empty batch must be rejected")
}

func TestLossRowMismatch(t *testing.T) {
	for _, l := range []Loss{&CrossEntropyLoss{}, &BCELoss{}} {
		_, _, err := l.Compute([][]float64{{1}}, nil, []int{1})
		assert.Error(t, err, l.Name())
	}
}
