// Package config 提供训练流程的配置面：YAML/JSON 加载、默认值与
// 构造期校验，以及优化器/存储的注册表驱动构建。
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/mindrs/core"
	"github.com/rushteam/mindrs/trainer"
)

// TrainerConfig 是训练流程识别的全部配置项（支持 YAML/JSON）。
type TrainerConfig struct {
	// 数据
	DataDir       string `yaml:"data_dir" json:"data_dir"`
	MindVariant   string `yaml:"mind_variant" json:"mind_variant"` // large / small / demo
	TrainDir      string `yaml:"train_dir" json:"train_dir"`
	DevDir        string `yaml:"dev_dir" json:"dev_dir"`
	WordDictPath  string `yaml:"word_dict_path" json:"word_dict_path"`
	UIDPath       string `yaml:"uid_path" json:"uid_path"`
	EmbeddingPath string `yaml:"embedding_path" json:"embedding_path"`
	WordDim       int    `yaml:"word_dim" json:"word_dim"`
	TitleLen      int    `yaml:"title_len" json:"title_len"`
	HistoryLen    int    `yaml:"history_len" json:"history_len"`
	NegNum        int    `yaml:"neg_num" json:"neg_num"`
	BatchSize     int    `yaml:"batch_size" json:"batch_size"`
	NewsBatchSize int    `yaml:"news_batch_size" json:"news_batch_size"`

	// 模型
	NewsDim         int    `yaml:"news_dim" json:"news_dim"`
	AttentionDim    int    `yaml:"attention_dim" json:"attention_dim"`
	TopicVariant    string `yaml:"topic_variant" json:"topic_variant"`
	TopicNum        int    `yaml:"topic_num" json:"topic_num"`
	UserEmbedMethod string `yaml:"user_embed_method" json:"user_embed_method"`
	WithEntropy     bool   `yaml:"with_entropy" json:"with_entropy"`
	ReturnWeight    bool   `yaml:"return_weight" json:"return_weight"`
	HeadNum         int    `yaml:"head_num" json:"head_num"`
	Seed            int64  `yaml:"seed" json:"seed"`

	// 训练
	Epochs         int     `yaml:"epochs" json:"epochs"`
	LogStep        int     `yaml:"log_step" json:"log_step"`
	LearningRate   float64 `yaml:"learning_rate" json:"learning_rate"`
	Optimizer      string  `yaml:"optimizer" json:"optimizer"`
	ClipValue      float64 `yaml:"clip_value" json:"clip_value"`
	Momentum       float64 `yaml:"momentum" json:"momentum"`
	SchedulerStep  int     `yaml:"scheduler_step" json:"scheduler_step"`
	SchedulerGamma float64 `yaml:"scheduler_gamma" json:"scheduler_gamma"`
	TrainStrategy  string  `yaml:"train_strategy" json:"train_strategy"`
	ValidInterval  float64 `yaml:"valid_interval" json:"valid_interval"`
	AddL2Norm      bool    `yaml:"add_l2norm" json:"add_l2norm"`
	L2Lambda       float64 `yaml:"l2_lambda" json:"l2_lambda"`
	EntropyMode    string  `yaml:"entropy_mode" json:"entropy_mode"`
	Alpha          float64 `yaml:"alpha" json:"alpha"`
	Beta           float64 `yaml:"beta" json:"beta"`

	// 早停
	MntMetric string `yaml:"mnt_metric" json:"mnt_metric"`
	MntMode   string `yaml:"mnt_mode" json:"mnt_mode"`
	EarlyStop int    `yaml:"early_stop" json:"early_stop"`

	// 验证
	FastEvaluation        *bool    `yaml:"fast_evaluation" json:"fast_evaluation"`
	MaxConcurrentEncode   int      `yaml:"max_concurrent_encode" json:"max_concurrent_encode"`
	ValidMethod           string   `yaml:"valid_method" json:"valid_method"`
	ImpressionBatchSize   int      `yaml:"impression_batch_size" json:"impression_batch_size"`
	SelectedImp           string   `yaml:"selected_imp" json:"selected_imp"`
	SavedWeightNum        int      `yaml:"saved_weight_num" json:"saved_weight_num"`
	Metrics               []string `yaml:"metrics" json:"metrics"`
	EvaluateTopicByEpoch  bool     `yaml:"evaluate_topic_by_epoch" json:"evaluate_topic_by_epoch"`
	TopicEvaluationMethod string   `yaml:"topic_evaluation_method" json:"topic_evaluation_method"`
	DisableProgress       bool     `yaml:"disable_progress" json:"disable_progress"`

	// 输出
	ModelDir  string `yaml:"model_dir" json:"model_dir"`
	ScalarLog string `yaml:"scalar_log" json:"scalar_log"`

	// 多进程
	NumProcesses int            `yaml:"num_processes" json:"num_processes"`
	Rank         int            `yaml:"rank" json:"rank"`
	Store        StoreConfig    `yaml:"store" json:"store"`
	StoreExtra   map[string]any `yaml:"store_extra" json:"store_extra"`

	// 新闻向量提供方（快速评估的外部向量来源）
	Provider ProviderConfig `yaml:"provider" json:"provider"`
}

// StoreConfig 是跨进程汇总使用的存储后端配置。
type StoreConfig struct {
	Type string `yaml:"type" json:"type"` // memory / redis
	Addr string `yaml:"addr" json:"addr"`
	DB   int    `yaml:"db" json:"db"`
}

// ProviderConfig 是外部新闻向量来源的配置。
// type 为 "feast" 时从 Feast 在线特征仓库拉取；
// 为 "store" 时把汇总存储当作外溢缓存（预计算结果回写）。
type ProviderConfig struct {
	Type        string `yaml:"type" json:"type"` // feast / store / 空表示不启用
	Host        string `yaml:"host" json:"host"`
	Port        int    `yaml:"port" json:"port"`
	Project     string `yaml:"project" json:"project"`
	FeatureView string `yaml:"feature_view" json:"feature_view"`
	Dim         int    `yaml:"dim" json:"dim"`
}

// LoadFromYAML 从 YAML 文件加载配置（含默认值与校验）。
func LoadFromYAML(path string) (*TrainerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var cfg TrainerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromJSON 从 JSON 文件加载配置（含默认值与校验）。
func LoadFromJSON(path string) (*TrainerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var cfg TrainerConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults 填充所有未显式设置的默认值。
func (c *TrainerConfig) ApplyDefaults() {
	if c.MindVariant == "" {
		c.MindVariant = "small"
	}
	if c.WordDim <= 0 {
		c.WordDim = 300
	}
	if c.TitleLen <= 0 {
		c.TitleLen = 30
	}
	if c.HistoryLen <= 0 {
		c.HistoryLen = 50
	}
	if c.NegNum <= 0 {
		c.NegNum = 4
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	if c.NewsBatchSize <= 0 {
		c.NewsBatchSize = 512
	}
	if c.NewsDim <= 0 {
		c.NewsDim = 64
	}
	if c.AttentionDim <= 0 {
		c.AttentionDim = 64
	}
	if c.TopicVariant == "" {
		c.TopicVariant = string(core.TopicVariantBase)
	}
	if c.TopicNum <= 0 {
		c.TopicNum = 50
	}
	if c.Epochs <= 0 {
		c.Epochs = 5
	}
	if c.LogStep <= 0 {
		c.LogStep = 100
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 1e-3
	}
	if c.Optimizer == "" {
		c.Optimizer = "adam"
	}
	if c.SchedulerGamma <= 0 {
		c.SchedulerGamma = 0.5
	}
	if c.TrainStrategy == "" {
		c.TrainStrategy = string(core.TrainStrategyPairWise)
	}
	if c.ValidInterval <= 0 || c.ValidInterval > 1 {
		c.ValidInterval = 0.6
	}
	if c.L2Lambda <= 0 {
		c.L2Lambda = 1e-7
	}
	if c.EntropyMode == "" {
		c.EntropyMode = string(core.EntropyModeStatic)
	}
	if c.MntMetric == "" {
		c.MntMetric = "group_auc"
	}
	if c.MntMode == "" {
		c.MntMode = "max"
	}
	if c.FastEvaluation == nil {
		v := true
		c.FastEvaluation = &v
	}
	if c.ValidMethod == "" {
		c.ValidMethod = string(core.ValidMethodFast)
	}
	if c.ImpressionBatchSize <= 0 {
		c.ImpressionBatchSize = 128
	}
	if c.SavedWeightNum <= 0 {
		c.SavedWeightNum = 250
	}
	if len(c.Metrics) == 0 {
		c.Metrics = []string{"group_auc", "mean_mrr", "ndcg_5", "ndcg_10"}
	}
	if c.ModelDir == "" {
		c.ModelDir = "./output"
	}
	if c.NumProcesses <= 0 {
		c.NumProcesses = 1
	}
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
}

// Validate 做构造期校验：全部枚举开关必须是已知取值。
func (c *TrainerConfig) Validate() error {
	if err := core.TopicVariant(c.TopicVariant).Validate(); err != nil {
		return err
	}
	if err := core.TrainStrategy(c.TrainStrategy).Validate(); err != nil {
		return err
	}
	if err := core.UserEmbedMethod(c.UserEmbedMethod).Validate(); err != nil {
		return err
	}
	if err := core.EntropyMode(c.EntropyMode).Validate(); err != nil {
		return err
	}
	if err := core.ValidMethod(c.ValidMethod).Validate(); err != nil {
		return err
	}
	if core.UserEmbedMethod(c.UserEmbedMethod) != core.UserEmbedNone && c.UIDPath == "" {
		return core.NewDomainError(core.ModuleTrainer, core.ErrorCodeInvalidInput,
			fmt.Sprintf("user_embed_method %q requires uid_path", c.UserEmbedMethod))
	}
	if c.Rank < 0 || c.Rank >= c.NumProcesses {
		return core.NewDomainError(core.ModuleTrainer, core.ErrorCodeInvalidInput,
			fmt.Sprintf("rank %d out of range for %d processes", c.Rank, c.NumProcesses))
	}
	switch c.Provider.Type {
	case "", "feast", "store":
	default:
		return core.NewDomainError(core.ModuleTrainer, core.ErrorCodeInvalidInput,
			fmt.Sprintf("unknown provider type %q", c.Provider.Type))
	}
	return nil
}

// TrainerRuntime 把配置映射为训练器运行配置。
func (c *TrainerConfig) TrainerRuntime() trainer.Config {
	return trainer.Config{
		Epochs:                c.Epochs,
		LogStep:               c.LogStep,
		ValidInterval:         c.ValidInterval,
		AddL2Norm:             c.AddL2Norm,
		L2Lambda:              c.L2Lambda,
		WithEntropy:           c.WithEntropy,
		EntropyMode:           core.EntropyMode(c.EntropyMode),
		Alpha:                 c.Alpha,
		TopicVariant:          core.TopicVariant(c.TopicVariant),
		Beta:                  c.Beta,
		FastEvaluation:        *c.FastEvaluation,
		ValidMethod:           core.ValidMethod(c.ValidMethod),
		ReturnWeight:          c.ReturnWeight,
		SavedWeightNum:        c.SavedWeightNum,
		ModelDir:              c.ModelDir,
		HeadNum:               c.HeadNum,
		Rank:                  c.Rank,
		WorldSize:             c.NumProcesses,
		MaxConcurrentEncode:   c.MaxConcurrentEncode,
		DisableProgress:       c.DisableProgress,
		EvaluateTopicByEpoch:  c.EvaluateTopicByEpoch,
		TopicEvaluationMethod: c.TopicEvaluationMethod,
	}
}
