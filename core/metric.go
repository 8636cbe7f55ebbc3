package core

// MetricFunc 是单个排序指标：对一条 impression 的
// (labels, scores) 计算一个标量（原始尺度 [0,1]，由训练器转为百分比）。
//
// 约定：
//   - labels 取值 {0,1}，与 scores 等长且均已按真实候选长度截断
//   - 实现必须是纯函数，可在多个进程副本中独立调用
type MetricFunc interface {
	// Name 返回稳定的指标名（作为结果列 key）
	Name() string

	// Compute 计算指标值
	Compute(labels, scores []float64) float64
}

// ResultTable 是验证结果表：impression index -> 指标名 -> 百分比数值。
// 跨进程聚合按 key 并集合并（index 全局唯一），再逐列求均值。
type ResultTable map[int]map[string]float64

// Merge 将 other 并入 r（纯并集；index 冲突时以 other 为准，
// 正常情况下各进程分片不相交）。
func (r ResultTable) Merge(other ResultTable) {
	for idx, row := range other {
		r[idx] = row
	}
}

// Columns 返回所有出现过的指标列名（去重，无序）。
func (r ResultTable) Columns() []string {
	seen := make(map[string]struct{})
	cols := make([]string, 0, 4)
	for _, row := range r {
		for name := range row {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				cols = append(cols, name)
			}
		}
	}
	return cols
}
