package metric

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// MRR 是平均倒数排名：对每个正样本取 1/rank，按正样本数归一。
type MRR struct{}

func (MRR) Name() string { return "mean_mrr" }

func (MRR) Compute(labels, scores []float64) float64 {
	order := descendingOrder(scores)
	var rr, pos float64
	for rank, i := range order {
		if labels[i] > 0 {
			rr += 1 / float64(rank+1)
			pos++
		}
	}
	if pos == 0 {
		return 0
	}
	return rr / pos
}

// NDCG 是归一化折损累积增益（nDCG@K）。
type NDCG struct {
	K int
}

func (m NDCG) Name() string {
	if m.K == 5 {
		return "ndcg_5"
	}
	if m.K == 10 {
		return "ndcg_10"
	}
	return "ndcg"
}

func (m NDCG) Compute(labels, scores []float64) float64 {
	ideal := dcgAtK(labels, labels, m.K)
	if ideal == 0 {
		return 0
	}
	return dcgAtK(labels, scores, m.K) / ideal
}

// dcgAtK 按 scores 降序取前 K 个 label 计算 DCG。
func dcgAtK(labels, scores []float64, k int) float64 {
	order := descendingOrder(scores)
	if k > len(order) {
		k = len(order)
	}
	var dcg float64
	for rank := 0; rank < k; rank++ {
		gain := math.Pow(2, labels[order[rank]]) - 1
		dcg += gain / math.Log2(float64(rank)+2)
	}
	return dcg
}

// Accuracy 是按 0.5 阈值的命中率（诊断用，不在 MIND 榜单内）。
type Accuracy struct{}

func (Accuracy) Name() string { return "accuracy" }

func (Accuracy) Compute(labels, scores []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	hits := make([]float64, len(labels))
	for i := range labels {
		pred := 0.0
		if scores[i] > 0.5 {
			pred = 1.0
		}
		if pred == labels[i] {
			hits[i] = 1
		}
	}
	return floats.Sum(hits) / float64(len(hits))
}

// descendingOrder 返回按分数降序的下标序（稳定，同分保持原序）。
func descendingOrder(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	return order
}
