package core

import "fmt"

// Batch 是训练/验证的最小数据单元：一组对齐在同一 batch 维度上的字段。
//
// 约定：
//   - 所有字段的第一维长度一致（batch size N）
//   - 变长字段（候选新闻、历史新闻）按最大长度做 padding，
//     真实长度记录在 CandidateLength / HistoryLength 中
//   - HistoryLength[i] <= len(HistoryNews[i])，超出部分视为 padding
type Batch struct {
	// Label 是候选新闻的点击标签（0/1），padding 位置为 0
	Label [][]float64

	// CandidateNews 是候选新闻的 token 序列（padding 后等长）
	CandidateNews [][][]int

	// HistoryNews 是用户历史新闻的 token 序列（padding 后等长）
	HistoryNews [][][]int

	// UID 是用户 ID 索引（用于 user embedding）
	UID []int

	// HistoryLength 是每个样本的真实历史长度
	HistoryLength []int

	// CandidateLength 是每个样本的真实候选数量
	CandidateLength []int

	// ImpressionIndex 是曝光（impression）全局唯一索引，验证结果按此聚合
	ImpressionIndex []int

	// CandidateIndex 是候选新闻的全局新闻索引（padding 后等长）
	CandidateIndex [][]int

	// HistoryIndex 是历史新闻的全局新闻索引（padding 后等长）
	HistoryIndex [][]int

	// CandidateEmbeds / HistoryEmbeds 是快速评估时复用的新闻向量缓存，
	// 为 nil 时模型需要重新编码
	CandidateEmbeds [][][]float64
	HistoryEmbeds   [][][]float64
}

// Size 返回 batch 维度 N。
func (b *Batch) Size() int {
	return len(b.Label)
}

// Validate 校验所有字段的第一维长度一致，且真实长度不超过 padding 长度。
func (b *Batch) Validate() error {
	n := b.Size()
	check := func(name string, got int) error {
		if got != n {
			return NewDomainError(ModuleDataset, ErrorCodeInvalidInput,
				fmt.Sprintf("batch field %s has leading dim %d, expect %d", name, got, n))
		}
		return nil
	}
	if err := check("candidate_news", len(b.CandidateNews)); err != nil {
		return err
	}
	if err := check("history_news", len(b.HistoryNews)); err != nil {
		return err
	}
	if err := check("uid", len(b.UID)); err != nil {
		return err
	}
	if err := check("history_length", len(b.HistoryLength)); err != nil {
		return err
	}
	if err := check("candidate_length", len(b.CandidateLength)); err != nil {
		return err
	}
	if err := check("impression_index", len(b.ImpressionIndex)); err != nil {
		return err
	}
	if err := check("candidate_index", len(b.CandidateIndex)); err != nil {
		return err
	}
	if err := check("history_index", len(b.HistoryIndex)); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if b.HistoryLength[i] > len(b.HistoryNews[i]) {
			return NewDomainError(ModuleDataset, ErrorCodeInvalidInput,
				fmt.Sprintf("history_length[%d]=%d exceeds padded history %d",
					i, b.HistoryLength[i], len(b.HistoryNews[i])))
		}
		if b.CandidateLength[i] > len(b.CandidateNews[i]) {
			return NewDomainError(ModuleDataset, ErrorCodeInvalidInput,
				fmt.Sprintf("candidate_length[%d]=%d exceeds padded candidates %d",
					i, b.CandidateLength[i], len(b.CandidateNews[i])))
		}
	}
	return nil
}

// CopyLabels 返回 Label 的深拷贝。
// 训练循环在前向之前快照标签，保证 in-loop AUC 使用未被触碰的 ground truth。
func (b *Batch) CopyLabels() [][]float64 {
	out := make([][]float64, len(b.Label))
	for i, row := range b.Label {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
