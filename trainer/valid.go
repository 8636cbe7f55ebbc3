package trainer

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/rushteam/mindrs/core"
	"github.com/rushteam/mindrs/embedding"
)

// fastEvalEligible 是快速评估的显式资格探针：
// 配置选择了快速路径、模型实现了 NewsEncoder、
// 且当前配置不需要完整前向（权重/熵/KL 任一开启都不行）。
func (t *MindRSTrainer) fastEvalEligible(mdl core.Model) bool {
	if !t.cfg.FastEvaluation || t.cfg.ValidMethod != core.ValidMethodFast {
		return false
	}
	if t.cfg.ReturnWeight || t.cfg.WithEntropy || t.cfg.TopicVariant == core.TopicVariantVariational {
		return false
	}
	if _, ok := mdl.(core.NewsEncoder); !ok {
		return false
	}
	caps, ok := mdl.(core.EvalCapabilities)
	return ok && caps.SupportsFastEvaluation()
}

// ValidEpoch 跑一遍完整的验证：
// 逐 impression 计算配置的指标（×100），跨进程并集后逐列求均值。
// mdl / src 传 nil 时使用训练器自己持有的模型/验证集。
func (t *MindRSTrainer) ValidEpoch(ctx context.Context, src ValidData, mdl core.Model) (map[string]float64, error) {
	if mdl == nil {
		mdl = t.deps.Model
	}
	if src == nil {
		src = t.deps.Valid
	}
	if src == nil {
		return nil, core.NewDomainError(core.ModuleTrainer, core.ErrorCodeInvalidInput,
			"no validation data source")
	}
	mdl.Eval()

	// 1. 快速评估资格探针 + 缓存构建。
	//    构建失败不致命：降级为慢速评估（newsEmbeds == nil）
	var cache core.NewsEmbeddingCache
	if t.fastEvalEligible(mdl) {
		encoder := mdl.(core.NewsEncoder)
		built, err := embedding.PrecomputeNewsEmbeddings(ctx, encoder, src.News(), embedding.PrecomputeOptions{
			MaxConcurrent: t.cfg.MaxConcurrentEncode,
			Provider:      t.deps.Provider,
		})
		if err != nil {
			t.log.WithError(err).Warn("news embedding cache build failed, falling back to slow evaluation")
			built = nil
		}
		cache = built
	}

	it, err := src.Impressions(cache)
	if err != nil {
		return nil, fmt.Errorf("build impression dataset: %w", err)
	}

	var capture *WeightCapture
	if t.cfg.ReturnWeight {
		capture = NewWeightCapture(t.cfg.SavedWeightNum)
	}

	// 2. 逐批推理与逐 impression 指标
	results := make(core.ResultTable)
	it.Reset()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, ok := it.Next()
		if !ok {
			break
		}

		var out *core.Output
		if cache != nil {
			out, err = mdl.(core.NewsEncoder).ScoreWithEmbeds(batch)
		} else {
			out, err = mdl.Forward(batch)
		}
		if err != nil {
			return nil, fmt.Errorf("valid forward: %w", err)
		}

		metricRows := make([][]float64, batch.Size())
		for i := 0; i < batch.Size(); i++ {
			cl := batch.CandidateLength[i]
			labels := batch.Label[i][:cl]
			scores := out.Pred[i][:cl]
			row := make(map[string]float64, len(t.deps.Metrics))
			metricRows[i] = make([]float64, len(t.deps.Metrics))
			for j, f := range t.deps.Metrics {
				v := f.Compute(labels, scores) * 100
				row[f.Name()] = v
				metricRows[i][j] = v
			}
			results[batch.ImpressionIndex[i]] = row
		}
		if capture != nil && !capture.Full() {
			capture.Add(batch, out, metricRows)
		}
	}

	// 3. 跨进程并集与逐列均值（4 位小数）
	t.validSeq++
	gatherKey := fmt.Sprintf("mindrs:valid:%d", t.validSeq)
	merged, isCoordinator, err := t.deps.Gatherer.Gather(ctx, gatherKey, results)
	if err != nil {
		return nil, fmt.Errorf("gather validation results: %w", err)
	}
	metrics := averageColumns(merged)

	// 4. 诊断权重只由协调进程落盘：读旧 dump、拼接、覆盖写
	if capture != nil && isCoordinator {
		path := DumpPath(t.cfg.ModelDir, t.cfg.HeadNum)
		prior, err := LoadWeightDump(path)
		if err != nil {
			return nil, err
		}
		if err := SaveWeightDump(path, MergeWeightDump(prior, capture.Dump())); err != nil {
			return nil, err
		}
	}

	// 缓存随本次验证结束离开作用域，不跨验证轮保留
	return metrics, nil
}

// averageColumns 对结果表逐列求均值并保留 4 位小数。
func averageColumns(table core.ResultTable) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, row := range table {
		for name, v := range row {
			sums[name] += v
			counts[name]++
		}
	}
	out := make(map[string]float64, len(sums))
	for name, s := range sums {
		out[name] = math.Round(s/float64(counts[name])*1e4) / 1e4
	}
	return out
}

// Validation 包装 ValidEpoch：val 命名空间日志、单调递增的验证步号、
// 标量镜像、喂监控器（可抑制）。无论成败都恢复训练模式。
func (t *MindRSTrainer) Validation(ctx context.Context, epoch, batchIdx int, doMonitor bool) (map[string]float64, error) {
	defer t.deps.Model.Train()

	metrics, err := t.ValidEpoch(ctx, nil, nil)
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{"epoch": epoch, "batch": batchIdx + 1, "step": t.validSeq}
	for name, v := range metrics {
		fields["val/"+name] = v
		if t.deps.Writer != nil {
			t.deps.Writer.AddScalar("val/"+name, v, t.validSeq)
		}
	}
	t.log.WithFields(fields).Info("validation")

	if doMonitor && t.deps.Monitor != nil {
		improved, stop := t.deps.Monitor.Update(metrics, epoch)
		if improved {
			best, _ := t.deps.Monitor.Best()
			t.log.WithFields(logrus.Fields{
				"metric": t.deps.Monitor.Metric(),
				"best":   best,
			}).Info("monitored metric improved")
			if err := t.deps.Monitor.Record(ctx, epoch, best); err != nil {
				t.log.WithError(err).Warn("record best checkpoint")
			}
		}
		if stop {
			t.stopped = true
		}
	}
	return metrics, nil
}

// Evaluate 是外部评估入口：对任意 (数据集, 模型) 跑一遍 ValidEpoch，
// prefix 非空时为每个指标 key 加前缀。
func (t *MindRSTrainer) Evaluate(ctx context.Context, src ValidData, mdl core.Model, epoch int, prefix string) (map[string]float64, error) {
	metrics, err := t.ValidEpoch(ctx, src, mdl)
	if err != nil {
		return nil, err
	}
	if prefix != "" {
		prefixed := make(map[string]float64, len(metrics))
		for name, v := range metrics {
			prefixed[prefix+name] = v
		}
		metrics = prefixed
	}
	fields := logrus.Fields{"epoch": epoch}
	for name, v := range metrics {
		fields[name] = v
	}
	t.log.WithFields(fields).Info("evaluation")
	return metrics, nil
}
