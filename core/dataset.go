package core

// BatchIterator 是训练器消费的数据迭代器契约：
// 按 loader 顺序产出 batch，一轮耗尽即一个 epoch。
//
// 设计原则：
//   - 定义在领域层（core），由数据层（dataset）实现
//   - 训练器不感知采样/padding/负采样细节
type BatchIterator interface {
	// Next 返回下一个 batch；耗尽时返回 (nil, false)
	Next() (*Batch, bool)

	// Reset 回到起点（下一个 epoch / 下一轮验证）
	Reset()

	// Len 返回一轮的 batch 总数
	Len() int
}

// NewsBatch 是新闻专用 loader 的产出：一批去重新闻的 token 序列。
// 用于快速评估前的新闻向量预计算。
type NewsBatch struct {
	// Index 新闻全局索引
	Index []int

	// Tokens 新闻 token 序列（等长 padding）
	Tokens [][]int
}

// NewsIterator 按批产出全部去重新闻。
type NewsIterator interface {
	Next() (*NewsBatch, bool)
	Reset()
	Len() int
}

// NewsEmbeddingCache 是新闻索引到预计算向量的映射。
// 每轮验证（符合条件时）构建一次，验证结束即丢弃；进程内状态，不持久化。
type NewsEmbeddingCache map[int][]float64
