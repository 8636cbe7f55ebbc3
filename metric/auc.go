package metric

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// AUC 是单条 impression 内的 ROC-AUC。
//
// 采用秩和（Mann-Whitney U）计算：
//   AUC = (Σ rank(正样本) - P*(P+1)/2) / (P*N)
// 并列分数取平均秩。全正或全负的 impression 返回 0.5（无区分度）。
type AUC struct{}

func (AUC) Name() string { return "group_auc" }

func (AUC) Compute(labels, scores []float64) float64 {
	n := len(labels)
	if n == 0 || n != len(scores) {
		return 0.5
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	// 并列分数取平均秩（1-based）
	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && scores[idx[j+1]] == scores[idx[i]] {
			j++
		}
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	var pos int
	var rankSum float64
	for i, l := range labels {
		if l > 0 {
			pos++
			rankSum += ranks[i]
		}
	}
	neg := n - pos
	if pos == 0 || neg == 0 {
		return 0.5
	}
	return (rankSum - float64(pos)*float64(pos+1)/2) / (float64(pos) * float64(neg))
}

// GroupAUC 是训练循环内的 in-loop 指标：逐行计算 AUC 后取均值。
// labels 必须是前向之前快照的 host 侧 ground truth。
func GroupAUC(labels, scores [][]float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	auc := AUC{}
	vals := make([]float64, 0, len(labels))
	for i := range labels {
		n := len(labels[i])
		if n > len(scores[i]) {
			n = len(scores[i])
		}
		vals = append(vals, auc.Compute(labels[i][:n], scores[i][:n]))
	}
	return floats.Sum(vals) / float64(len(vals))
}
