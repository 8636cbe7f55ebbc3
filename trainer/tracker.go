package trainer

// MetricTracker 是训练过程中的运行指标累加器。
//
// 核心思想：
//   - 显式传递、按需重置，不依赖任何进程级环境状态
//   - 每个指标维护 (sum, count)，Result 输出均值
//   - 进程本地，不跨进程共享
type MetricTracker struct {
	sums   map[string]float64
	counts map[string]int
	order  []string
}

// NewMetricTracker 创建累加器。
func NewMetricTracker() *MetricTracker {
	t := &MetricTracker{}
	t.Reset()
	return t
}

// Update 累加一个观测值。
func (t *MetricTracker) Update(name string, value float64) {
	t.UpdateN(name, value, 1)
}

// UpdateN 累加 n 个观测值的合计。
func (t *MetricTracker) UpdateN(name string, sum float64, n int) {
	if _, ok := t.sums[name]; !ok {
		t.order = append(t.order, name)
	}
	t.sums[name] += sum
	t.counts[name] += n
}

// Avg 返回单个指标的当前均值。
func (t *MetricTracker) Avg(name string) float64 {
	if t.counts[name] == 0 {
		return 0
	}
	return t.sums[name] / float64(t.counts[name])
}

// Result 输出全部指标均值。
func (t *MetricTracker) Result() map[string]float64 {
	out := make(map[string]float64, len(t.order))
	for _, name := range t.order {
		out[name] = t.Avg(name)
	}
	return out
}

// Keys 返回指标名（按首次出现顺序）。
func (t *MetricTracker) Keys() []string {
	keys := make([]string, len(t.order))
	copy(keys, t.order)
	return keys
}

// Reset 清空累加器（每个日志间隔调用一次）。
func (t *MetricTracker) Reset() {
	t.sums = make(map[string]float64)
	t.counts = make(map[string]int)
	t.order = t.order[:0]
}
