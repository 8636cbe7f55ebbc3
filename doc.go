// Package mindrs 是一个新闻推荐研究流水线（MIND Recommendation System）。
//
// 设计要点：
// - Trainer-first: 训练/验证编排是核心（批式优化、按比例插入验证、快速评估缓存）
// - 接口收敛在 core: Model / BatchIterator / MetricFunc / Store 由领域层定义，
//   model / dataset / metric / store 各自实现
// - 配置驱动: YAML 配置 + 注册表构建优化器与存储后端
package mindrs

import (
	"github.com/rushteam/mindrs/core"
	"github.com/rushteam/mindrs/trainer"
)

// 轻量 facade：便于用户直接 import "mindrs" 使用核心抽象。
type Model = core.Model
type Batch = core.Batch
type BatchIterator = core.BatchIterator
type MetricFunc = core.MetricFunc
type ResultTable = core.ResultTable
type Trainer = trainer.MindRSTrainer
