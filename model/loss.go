package model

import (
	"math"

	"github.com/rushteam/mindrs/core"
)

// Loss 计算一个 batch 的标量损失与对预测分数的梯度。
// 候选的有效长度由 candLen 给出，padding 位置损失与梯度均为 0。
type Loss interface {
	Name() string
	Compute(pred, label [][]float64, candLen []int) (float64, [][]float64, error)
}

// LossFor 按训练策略返回损失函数。
func LossFor(strategy core.TrainStrategy) (Loss, error) {
	if err := strategy.Validate(); err != nil {
		return nil, err
	}
	if strategy == core.TrainStrategyPointWise {
		return &BCELoss{}, nil
	}
	return &CrossEntropyLoss{}, nil
}

// CrossEntropyLoss 是 pair_wise 策略的候选组 softmax 交叉熵：
// 一正多负构成一个候选组，正样本在组内竞争排序。
type CrossEntropyLoss struct{}

func (l *CrossEntropyLoss) Name() string { return "cross_entropy" }

// Compute 逐行在有效候选上做 softmax，损失对 batch 取均值。
func (l *CrossEntropyLoss) Compute(pred, label [][]float64, candLen []int) (float64, [][]float64, error) {
	if len(pred) != len(label) {
		return 0, nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			"pred/label row count mismatch")
	}
	n := len(pred)
	grad := make([][]float64, n)
	var loss float64
	inv := 1 / float64(n)
	for i := range pred {
		cl := candLen[i]
		p := softmaxVec(pred[i][:cl])
		g := make([]float64, len(pred[i]))
		for c := 0; c < cl; c++ {
			if label[i][c] > 0 {
				loss -= label[i][c] * math.Log(math.Max(p[c], 1e-12)) * inv
			}
			g[c] = (p[c]*rowLabelSum(label[i][:cl]) - label[i][c]) * inv
		}
		grad[i] = g
	}
	return loss, grad, nil
}

func rowLabelSum(label []float64) float64 {
	var s float64
	for _, v := range label {
		s += v
	}
	return s
}

// BCELoss 是 point_wise 策略的逐候选二元交叉熵。
type BCELoss struct{}

func (l *BCELoss) Name() string { return "bce" }

// Compute 对全部有效候选位取均值。
func (l *BCELoss) Compute(pred, label [][]float64, candLen []int) (float64, [][]float64, error) {
	if len(pred) != len(label) {
		return 0, nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			"pred/label row count mismatch")
	}
	total := 0
	for _, cl := range candLen {
		total += cl
	}
	if total == 0 {
		return 0, nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			"empty batch")
	}
	grad := make([][]float64, len(pred))
	var loss float64
	inv := 1 / float64(total)
	for i := range pred {
		g := make([]float64, len(pred[i]))
		for c := 0; c < candLen[i]; c++ {
			p := sigmoid(pred[i][c])
			y := label[i][c]
			loss -= (y*math.Log(math.Max(p, 1e-12)) + (1-y)*math.Log(math.Max(1-p, 1e-12))) * inv
			g[c] = (p - y) * inv
		}
		grad[i] = g
	}
	return loss, grad, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
