package trainer

import (
	"context"
	"fmt"

	"github.com/rushteam/mindrs/core"
)

// Monitor 是早停协作者：跟踪监控指标的最优值，
// 连续 patience 个 epoch 无改善则建议停止。
type Monitor struct {
	metric   string
	min      bool
	patience int

	best      float64
	bestEpoch int
	bad       int
	seen      bool

	// 可选的外部记录：改善时按指标值写入有序集合
	store    core.KeyValueStore
	storeKey string
}

// NewMonitor 创建监控器。mode 取 "min" 或 "max"；
// patience <= 0 表示只跟踪最优、不早停。
func NewMonitor(metric, mode string, patience int) (*Monitor, error) {
	switch mode {
	case "min", "max":
	default:
		return nil, core.NewDomainError(core.ModuleTrainer, core.ErrorCodeInvalidInput,
			fmt.Sprintf("unknown monitor mode %q (want min/max)", mode))
	}
	return &Monitor{metric: metric, min: mode == "min", patience: patience}, nil
}

// WithStore 启用最优 checkpoint 的外部记录：每次改善把
// "epoch:<N>" 以指标值为分数写入有序集合，跨进程可按分数查最优。
func (m *Monitor) WithStore(store core.KeyValueStore, key string) *Monitor {
	m.store = store
	m.storeKey = key
	return m
}

// Record 把最优记录写入外部存储；未配置存储时为空操作。
func (m *Monitor) Record(ctx context.Context, epoch int, value float64) error {
	if m.store == nil {
		return nil
	}
	return m.store.ZAdd(ctx, m.storeKey, value, fmt.Sprintf("epoch:%d", epoch))
}

// Update 喂入一轮验证结果，返回 (是否改善, 是否应当早停)。
// 结果中缺失监控指标时视为无改善。
func (m *Monitor) Update(metrics map[string]float64, epoch int) (improved, stop bool) {
	v, ok := metrics[m.metric]
	if !ok {
		return false, false
	}
	if !m.seen || (m.min && v < m.best) || (!m.min && v > m.best) {
		m.seen = true
		m.best = v
		m.bestEpoch = epoch
		m.bad = 0
		return true, false
	}
	m.bad++
	return false, m.patience > 0 && m.bad >= m.patience
}

// Best 返回迄今最优值与对应 epoch。
func (m *Monitor) Best() (value float64, epoch int) {
	return m.best, m.bestEpoch
}

// Metric 返回监控的指标名。
func (m *Monitor) Metric() string { return m.metric }
