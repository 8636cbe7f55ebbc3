// Package trainer 实现新闻推荐模型的训练/验证编排：
// 批式优化、按比例插入的验证、快速评估缓存、逐 impression 指标、
// 跨进程结果汇总与诊断权重落盘。
package trainer

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/rushteam/mindrs/core"
	"github.com/rushteam/mindrs/embedding"
	"github.com/rushteam/mindrs/metric"
	"github.com/rushteam/mindrs/model"
)

// Config 是训练器的运行配置（已通过 config 层校验）。
type Config struct {
	// Epochs 训练轮数
	Epochs int

	// LogStep 每多少个 batch 刷写一次运行指标
	LogStep int

	// ValidInterval 插入验证的 epoch 比例间隔，默认 0.6
	ValidInterval float64

	// AddL2Norm / L2Lambda L2 正则项开关与系数
	AddL2Norm bool
	L2Lambda  float64

	// WithEntropy / EntropyMode / Alpha 注意力熵辅助项
	WithEntropy bool
	EntropyMode core.EntropyMode
	Alpha       float64

	// TopicVariant / Beta 主题变体与 KL 系数
	TopicVariant core.TopicVariant
	Beta         float64

	// FastEvaluation / ValidMethod 验证路径选择
	FastEvaluation bool
	ValidMethod    core.ValidMethod

	// ReturnWeight / SavedWeightNum 诊断权重采集
	ReturnWeight   bool
	SavedWeightNum int

	// ModelDir / HeadNum 权重产物落盘位置
	ModelDir string
	HeadNum  int

	// Rank / WorldSize 多进程数据并行的副本标识
	Rank      int
	WorldSize int

	// DisableProgress 为 true 时逐步进度日志降为 Debug 级
	DisableProgress bool

	// EvaluateTopicByEpoch 为 true 时主题诊断改到 epoch 末执行
	EvaluateTopicByEpoch bool

	// TopicEvaluationMethod 非空时启用主题诊断
	TopicEvaluationMethod string

	// MaxConcurrentEncode 预计算新闻向量的最大并发
	MaxConcurrentEncode int
}

// Deps 是训练器的外部协作者。
type Deps struct {
	Model     core.Model
	Loss      model.Loss
	Optimizer model.Optimizer
	Scheduler *model.StepLR
	Train     core.BatchIterator
	Valid     ValidData
	Metrics   []core.MetricFunc

	// Gatherer 缺省为 LocalGatherer
	Gatherer Gatherer

	// Writer / Monitor / Provider 均可为 nil
	Writer   *ScalarWriter
	Monitor  *Monitor
	Provider embedding.Provider

	Logger *logrus.Logger
}

// ValidData 是验证数据来源（dataset.ValidSource 实现）。
type ValidData interface {
	// News 返回用于向量预计算的新闻迭代器
	News() core.NewsIterator

	// Impressions 返回 impression 迭代器；cache 非 nil 时走快速评估
	Impressions(cache core.NewsEmbeddingCache) (core.BatchIterator, error)
}

// MindRSTrainer 是训练/验证编排器。
//
// 工程特征：
//   - 单进程单逻辑流，不自行起 goroutine；
//     多进程并行由各副本跑同一循环、分片数据实现
//   - 运行指标走显式的 MetricTracker，按日志间隔重置
//   - 模型/优化器错误直接上抛，不重试不吞错
type MindRSTrainer struct {
	cfg     Config
	deps    Deps
	tracker *MetricTracker
	log     *logrus.Logger

	validSeq int
	stopped  bool
}

// NewMindRSTrainer 创建训练器并校验配置。
func NewMindRSTrainer(cfg Config, deps Deps) (*MindRSTrainer, error) {
	if deps.Model == nil || deps.Loss == nil || deps.Optimizer == nil || deps.Train == nil {
		return nil, core.NewDomainError(core.ModuleTrainer, core.ErrorCodeInvalidInput,
			"model, loss, optimizer and train iterator are required")
	}
	if cfg.ValidInterval <= 0 || cfg.ValidInterval > 1 {
		cfg.ValidInterval = 0.6
	}
	if cfg.LogStep <= 0 {
		cfg.LogStep = 100
	}
	if cfg.L2Lambda == 0 {
		cfg.L2Lambda = 1e-7
	}
	if cfg.SavedWeightNum <= 0 {
		cfg.SavedWeightNum = 250
	}
	if cfg.WorldSize <= 0 {
		cfg.WorldSize = 1
	}
	if cfg.EntropyMode == "" {
		cfg.EntropyMode = core.EntropyModeStatic
	}
	if err := cfg.EntropyMode.Validate(); err != nil {
		return nil, err
	}
	if cfg.TopicVariant == "" {
		cfg.TopicVariant = core.TopicVariantBase
	}
	if err := cfg.TopicVariant.Validate(); err != nil {
		return nil, err
	}
	if cfg.ValidMethod == "" {
		cfg.ValidMethod = core.ValidMethodFast
	}
	if err := cfg.ValidMethod.Validate(); err != nil {
		return nil, err
	}
	if deps.Gatherer == nil {
		deps.Gatherer = LocalGatherer{}
	}
	if len(deps.Metrics) == 0 {
		funcs, err := metric.Resolve(metric.Names())
		if err != nil {
			return nil, err
		}
		deps.Metrics = funcs
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	return &MindRSTrainer{
		cfg:     cfg,
		deps:    deps,
		tracker: NewMetricTracker(),
		log:     deps.Logger,
	}, nil
}

// Train 跑完整的训练流程（逐 epoch，支持早停）。
func (t *MindRSTrainer) Train(ctx context.Context) error {
	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		if _, err := t.TrainEpoch(ctx, epoch); err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}
		if t.stopped {
			best, bestEpoch := t.deps.Monitor.Best()
			t.log.WithFields(logrus.Fields{
				"epoch":      epoch,
				"best":       best,
				"best_epoch": bestEpoch,
			}).Info("early stopping")
			break
		}
	}
	return nil
}

// TrainEpoch 训练一个 epoch，返回最终验证的指标。
func (t *MindRSTrainer) TrainEpoch(ctx context.Context, epoch int) (map[string]float64, error) {
	t.deps.Model.Train()
	t.tracker.Reset()
	t.deps.Train.Reset()

	lenEpoch := t.deps.Train.Len()
	validEvery := int(math.Ceil(float64(lenEpoch) * t.cfg.ValidInterval))

	batchIdx := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, ok := t.deps.Train.Next()
		if !ok {
			break
		}

		// 1. 在任何搬运/原地改写之前快照标签，
		//    环内 AUC 必须用未动过的 ground truth
		labels := batch.CopyLabels()

		// 2. 前向 + 主损失
		t.deps.Optimizer.ZeroGrad()
		out, err := t.deps.Model.Forward(batch)
		if err != nil {
			return nil, fmt.Errorf("forward batch %d: %w", batchIdx, err)
		}
		loss, gradPred, err := t.deps.Loss.Compute(out.Pred, labels, batch.CandidateLength)
		if err != nil {
			return nil, fmt.Errorf("loss batch %d: %w", batchIdx, err)
		}

		total := loss
		grad := &core.OutputGrad{Pred: gradPred}

		// 3. L2 正则项
		var l2 float64
		if t.cfg.AddL2Norm {
			for _, p := range t.deps.Model.Parameters() {
				l2 += p.SquaredNorm()
			}
			total += t.cfg.L2Lambda * l2
			t.tracker.Update("l2_norm", l2)
		}

		// 4. 熵辅助项：dynamic 模式按熵/损失的数量级缩系数，
		//    让两项保持在大致同一量级
		if t.cfg.WithEntropy {
			coef := t.cfg.Alpha
			if t.cfg.EntropyMode == core.EntropyModeDynamic && out.Entropy > 0 && loss > 0 {
				magnitude := int(math.Log10(out.Entropy / loss))
				coef = t.cfg.Alpha * math.Pow(10, -float64(magnitude))
			}
			total += coef * out.Entropy
			grad.Entropy = coef
			t.tracker.Update("entropy", out.Entropy)
			t.tracker.Update("entropy_loss", coef*out.Entropy)
		}

		// 5. variational 变体的 KL 项
		if t.cfg.TopicVariant == core.TopicVariantVariational {
			total += t.cfg.Beta * out.KLDivergence
			grad.KLDivergence = t.cfg.Beta
			t.tracker.Update("kl_loss", t.cfg.Beta*out.KLDivergence)
		}

		// 6. 反向 + 更新
		if err := t.deps.Model.Backward(batch, grad); err != nil {
			return nil, fmt.Errorf("backward batch %d: %w", batchIdx, err)
		}
		if t.cfg.AddL2Norm {
			for _, p := range t.deps.Model.Parameters() {
				for i, v := range p.Data {
					p.Grad[i] += 2 * t.cfg.L2Lambda * v
				}
			}
		}
		t.deps.Optimizer.Step()

		// 7. 运行指标
		t.tracker.Update("loss", total)
		t.tracker.Update("group_auc", trainGroupAUC(labels, out.Pred, batch.CandidateLength))

		// 8. 日志刷写
		if (batchIdx+1)%t.cfg.LogStep == 0 {
			t.flushTrainLog(epoch, batchIdx, lenEpoch)
		}

		// 9. 按 epoch 比例插入验证；最后一个 batch 留给 epoch 末验证
		if validEvery > 0 && (batchIdx+1)%validEvery == 0 && batchIdx != lenEpoch-1 {
			if _, err := t.Validation(ctx, epoch, batchIdx, true); err != nil {
				return nil, err
			}
		}
		batchIdx++
	}

	if t.deps.Scheduler != nil {
		t.deps.Scheduler.Step()
	}
	if t.topicDiagnosticsEnabled() && t.cfg.EvaluateTopicByEpoch {
		t.logTopicDiagnostics(epoch, batchIdx)
	}
	// epoch 末验证不喂监控器：早停只由插入验证驱动
	return t.Validation(ctx, epoch, lenEpoch-1, false)
}

// flushTrainLog 刷写运行指标并重置累加器。
func (t *MindRSTrainer) flushTrainLog(epoch, batchIdx, lenEpoch int) {
	if t.topicDiagnosticsEnabled() && !t.cfg.EvaluateTopicByEpoch {
		t.logTopicDiagnostics(epoch, batchIdx)
	}
	fields := logrus.Fields{"epoch": epoch, "batch": batchIdx + 1, "len_epoch": lenEpoch}
	step := (epoch-1)*lenEpoch + batchIdx + 1
	for _, k := range t.tracker.Keys() {
		avg := t.tracker.Avg(k)
		fields["train/"+k] = avg
		if t.deps.Writer != nil {
			t.deps.Writer.AddScalar("train/"+k, avg, step)
		}
	}
	level := logrus.InfoLevel
	if t.cfg.DisableProgress {
		level = logrus.DebugLevel
	}
	t.log.WithFields(fields).Log(level, "train progress")
	t.tracker.Reset()
}

func (t *MindRSTrainer) topicDiagnosticsEnabled() bool {
	return t.cfg.TopicEvaluationMethod != "" && t.cfg.TopicVariant == core.TopicVariantVariational
}

// logTopicDiagnostics 输出主题诊断。诊断在 eval 模式下读取，
// 结束后恢复训练模式。
func (t *MindRSTrainer) logTopicDiagnostics(epoch, batchIdx int) {
	t.deps.Model.Eval()
	defer t.deps.Model.Train()
	t.log.WithFields(logrus.Fields{
		"epoch":   epoch,
		"batch":   batchIdx,
		"method":  t.cfg.TopicEvaluationMethod,
		"kl_loss": t.tracker.Avg("kl_loss"),
	}).Info("topic diagnostics")
}

// trainGroupAUC 用快照标签计算环内 group AUC（按真实候选长度截断）。
func trainGroupAUC(labels, pred [][]float64, candLen []int) float64 {
	tl := make([][]float64, len(labels))
	ts := make([][]float64, len(labels))
	for i := range labels {
		cl := candLen[i]
		tl[i] = labels[i][:cl]
		ts[i] = pred[i][:cl]
	}
	return metric.GroupAUC(tl, ts)
}
