package core

// Output 是模型前向的统一输出结构。
//
// 约定：
//   - Pred 与 Batch.Label 形状一致（逐候选打分）
//   - Weights 中 key 含 "weight" 的条目是注意力权重，
//     key 含 "candidate" 的按候选长度截断，否则按历史长度截断
//   - Entropy / KLDivergence 仅在对应变体开启时非零
type Output struct {
	// Pred 是逐候选预测分数，[N][C]
	Pred [][]float64

	// Entropy 是注意力分布的熵（辅助损失项）
	Entropy float64

	// KLDivergence 是 variational 变体的 KL 散度项
	KLDivergence float64

	// Weights 是命名注意力权重，例如 "candidate_weight"、"history_weight"，[N][L]
	Weights map[string][][]float64
}

// Model 是训练器消费的模型契约（窄接口，实现细节对训练器不可见）。
//
// 设计原则：
//   - 定义在领域层（core），由模型层（model）实现
//   - 训练器只通过 Forward/Backward/Parameters 驱动优化，
//     不感知编码器结构
type Model interface {
	// Name 返回模型名称（用于日志/产物命名）
	Name() string

	// Forward 对一个 batch 做前向，返回统一输出
	Forward(batch *Batch) (*Output, error)

	// Backward 以输出各项的上游梯度为入口做反向，梯度累积到 Parameters。
	// 必须在同一 batch 的 Forward 之后调用
	Backward(batch *Batch, grad *OutputGrad) error

	// Parameters 返回全部可训练参数
	Parameters() []*Param

	// Train / Eval 切换训练与推理模式（影响 dropout 等行为）
	Train()
	Eval()
}

// OutputGrad 是损失对模型输出各项的上游梯度。
// 标量项（Entropy/KLDivergence）的梯度即损失中的系数；
// 未启用的项置 0 即可。
type OutputGrad struct {
	// Pred 是 dLoss/dPred，与 Output.Pred 形状一致
	Pred [][]float64

	// Entropy 是熵项在总损失中的系数（已含动态缩放）
	Entropy float64

	// KLDivergence 是 KL 项在总损失中的系数
	KLDivergence float64
}

// EvalCapabilities 是快速评估资格的显式探针。
// 训练器据此决策验证路径，而不是试错后回退：
// 需要注意力权重、熵或 KL 输出的配置必须走慢速评估。
type EvalCapabilities interface {
	// SupportsFastEvaluation 返回当前配置能否走缓存向量打分
	SupportsFastEvaluation() bool
}

// NewsEncoder 是支持快速评估的模型需要额外实现的契约：
// 离线一次性编码所有新闻，验证时复用缓存向量。
type NewsEncoder interface {
	// EncodeNews 编码一批新闻 token 序列，返回新闻向量
	EncodeNews(tokens [][]int) ([][]float64, error)

	// ScoreWithEmbeds 使用缓存的新闻向量打分（跳过新闻编码）
	ScoreWithEmbeds(batch *Batch) (*Output, error)
}

// Param 是一块可训练参数及其梯度。
type Param struct {
	// Name 参数名（用于调试与 L2 统计）
	Name string

	// Data 参数值（按行主序展平）
	Data []float64

	// Grad 梯度，与 Data 等长
	Grad []float64
}

// NewParam 创建一块参数并分配梯度缓冲。
func NewParam(name string, data []float64) *Param {
	return &Param{
		Name: name,
		Data: data,
		Grad: make([]float64, len(data)),
	}
}

// ZeroGrad 清零梯度。
func (p *Param) ZeroGrad() {
	for i := range p.Grad {
		p.Grad[i] = 0
	}
}

// SquaredNorm 返回参数平方和（L2 正则项使用）。
func (p *Param) SquaredNorm() float64 {
	var s float64
	for _, v := range p.Data {
		s += v * v
	}
	return s
}
