package main

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/rushteam/mindrs/config"
	"github.com/rushteam/mindrs/core"
	"github.com/rushteam/mindrs/dataset"
	"github.com/rushteam/mindrs/embedding"
	"github.com/rushteam/mindrs/metric"
	"github.com/rushteam/mindrs/model"
	"github.com/rushteam/mindrs/trainer"
)

// buildTrainer 按配置装配完整的训练器：
// 语料、词向量、模型、优化器、验证来源与跨进程汇总。
func buildTrainer(cfg *config.TrainerConfig) (*trainer.MindRSTrainer, error) {
	// 词典
	var wordDict, uidDict map[string]int
	var err error
	if cfg.WordDictPath != "" {
		if wordDict, err = dataset.LoadDict(cfg.WordDictPath); err != nil {
			return nil, err
		}
	}
	userEmbed := core.UserEmbedMethod(cfg.UserEmbedMethod)
	if userEmbed != core.UserEmbedNone {
		if uidDict, err = dataset.LoadDict(cfg.UIDPath); err != nil {
			return nil, err
		}
	}

	// 语料：train 先加载（必要时增长词典），dev 共用同一词典
	trainCorpus, err := dataset.LoadCorpus(cfg.TrainDir, dataset.CorpusOptions{
		TitleLen: cfg.TitleLen,
		WordDict: wordDict,
		UIDDict:  uidDict,
	})
	if err != nil {
		return nil, fmt.Errorf("load train corpus: %w", err)
	}
	if err := trainCorpus.RequireUIDDict(userEmbed); err != nil {
		return nil, err
	}
	devCorpus, err := dataset.LoadCorpus(cfg.DevDir, dataset.CorpusOptions{
		TitleLen: cfg.TitleLen,
		WordDict: trainCorpus.WordDict,
		UIDDict:  uidDict,
	})
	if err != nil {
		return nil, fmt.Errorf("load dev corpus: %w", err)
	}

	// 词向量
	var we *embedding.WordEmbedding
	if cfg.EmbeddingPath != "" {
		if we, err = embedding.LoadGlove(cfg.EmbeddingPath, trainCorpus.WordDict, cfg.WordDim); err != nil {
			return nil, err
		}
	} else {
		we = embedding.RandomInit(trainCorpus.VocabSize(), cfg.WordDim, rand.New(rand.NewSource(cfg.Seed)))
	}

	// 模型与损失
	mdl, err := model.NewNRSModel(model.Options{
		WordEmbeds:      we.Matrix,
		NewsDim:         cfg.NewsDim,
		AttentionDim:    cfg.AttentionDim,
		TopicVariant:    core.TopicVariant(cfg.TopicVariant),
		TopicNum:        cfg.TopicNum,
		UserEmbedMethod: userEmbed,
		UserNum:         len(uidDict) + 1,
		ReturnWeight:    cfg.ReturnWeight,
		WithEntropy:     cfg.WithEntropy,
		Seed:            cfg.Seed,
	})
	if err != nil {
		return nil, err
	}
	loss, err := model.LossFor(core.TrainStrategy(cfg.TrainStrategy))
	if err != nil {
		return nil, err
	}

	// 优化器与调度器（注册表驱动）
	opt, err := config.BuildOptimizer(cfg.Optimizer, mdl.Parameters(), map[string]any{
		"learning_rate": cfg.LearningRate,
		"clip_value":    cfg.ClipValue,
		"momentum":      cfg.Momentum,
	})
	if err != nil {
		return nil, err
	}
	var sched *model.StepLR
	if cfg.SchedulerStep > 0 {
		sched = model.NewStepLR(opt, cfg.SchedulerStep, cfg.SchedulerGamma)
	}

	// 数据迭代器
	trainIter, err := dataset.NewTrainIterator(trainCorpus, dataset.TrainOptions{
		Strategy:   core.TrainStrategy(cfg.TrainStrategy),
		NegNum:     cfg.NegNum,
		BatchSize:  cfg.BatchSize,
		HistoryLen: cfg.HistoryLen,
		Seed:       cfg.Seed,
	})
	if err != nil {
		return nil, err
	}
	validSrc := dataset.NewValidSource(devCorpus, dataset.ImpressionOptions{
		BatchSize:   cfg.ImpressionBatchSize,
		HistoryLen:  cfg.HistoryLen,
		SelectedImp: cfg.SelectedImp,
	}, cfg.NewsBatchSize)

	// 指标与汇总
	metrics, err := metric.Resolve(cfg.Metrics)
	if err != nil {
		return nil, err
	}
	var gatherer trainer.Gatherer = trainer.LocalGatherer{}
	var kv core.KeyValueStore
	if cfg.NumProcesses > 1 {
		if kv, err = config.BuildStore(cfg.Store.Type, map[string]any{
			"addr": cfg.Store.Addr,
			"db":   cfg.Store.DB,
		}); err != nil {
			return nil, err
		}
		gatherer = trainer.NewStoreGatherer(kv, cfg.Rank, cfg.NumProcesses)
	}

	var writer *trainer.ScalarWriter
	if cfg.ScalarLog != "" {
		if writer, err = trainer.NewScalarWriter(cfg.ScalarLog); err != nil {
			return nil, err
		}
	}
	monitor, err := trainer.NewMonitor(cfg.MntMetric, cfg.MntMode, cfg.EarlyStop)
	if err != nil {
		return nil, err
	}
	if kv != nil {
		monitor.WithStore(kv, "mindrs:best")
	}

	// 外部新闻向量提供方
	var provider embedding.Provider
	switch cfg.Provider.Type {
	case "feast":
		if provider, err = embedding.NewFeastProvider(cfg.Provider.Host, cfg.Provider.Port,
			cfg.Provider.Project, cfg.Provider.FeatureView, cfg.Provider.Dim); err != nil {
			return nil, err
		}
	case "store":
		if kv == nil {
			if kv, err = config.BuildStore(cfg.Store.Type, map[string]any{
				"addr": cfg.Store.Addr,
				"db":   cfg.Store.DB,
			}); err != nil {
				return nil, err
			}
		}
		provider = embedding.NewStoreProvider(kv, cfg.Provider.Dim)
	}

	return trainer.NewMindRSTrainer(cfg.TrainerRuntime(), trainer.Deps{
		Model:     mdl,
		Loss:      loss,
		Optimizer: opt,
		Scheduler: sched,
		Train:     trainIter,
		Valid:     validSrc,
		Metrics:   metrics,
		Gatherer:  gatherer,
		Writer:    writer,
		Monitor:   monitor,
		Provider:  provider,
		Logger:    logrus.StandardLogger(),
	})
}
