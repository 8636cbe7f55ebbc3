package core

import "fmt"

// 本文件收敛所有字符串配置开关为封闭枚举：
// 非法取值在构造期报错，而不是在运行期走到未知分支。

// TopicVariant 是主题建模变体。
type TopicVariant string

const (
	// TopicVariantBase 基础模型，无主题头
	TopicVariantBase TopicVariant = "base"
	// TopicVariantVariational 变分主题变体，附带 KL 散度项
	TopicVariantVariational TopicVariant = "variational_topic"
)

// Validate 校验取值合法。
func (v TopicVariant) Validate() error {
	switch v {
	case TopicVariantBase, TopicVariantVariational:
		return nil
	}
	return NewDomainError(ModuleTrainer, ErrorCodeInvalidInput,
		fmt.Sprintf("unknown topic_variant %q", string(v)))
}

// ValidMethod 是验证策略。
type ValidMethod string

const (
	// ValidMethodFast 快速评估：预先缓存新闻向量
	ValidMethodFast ValidMethod = "fast_evaluation"
	// ValidMethodSlow 慢速评估：每个 impression 重新编码
	ValidMethodSlow ValidMethod = "slow_evaluation"
)

func (v ValidMethod) Validate() error {
	switch v {
	case ValidMethodFast, ValidMethodSlow:
		return nil
	}
	return NewDomainError(ModuleTrainer, ErrorCodeInvalidInput,
		fmt.Sprintf("unknown valid_method %q", string(v)))
}

// TrainStrategy 是训练样本组织方式。
type TrainStrategy string

const (
	// TrainStrategyPairWise 一正多负，softmax 交叉熵
	TrainStrategyPairWise TrainStrategy = "pair_wise"
	// TrainStrategyPointWise 逐候选二分类，BCE
	TrainStrategyPointWise TrainStrategy = "point_wise"
)

func (v TrainStrategy) Validate() error {
	switch v {
	case TrainStrategyPairWise, TrainStrategyPointWise:
		return nil
	}
	return NewDomainError(ModuleTrainer, ErrorCodeInvalidInput,
		fmt.Sprintf("unknown train_strategy %q", string(v)))
}

// UserEmbedMethod 是用户 ID embedding 的接入方式。
type UserEmbedMethod string

const (
	// UserEmbedNone 不使用用户 ID embedding
	UserEmbedNone UserEmbedMethod = ""
	// UserEmbedInit 用户 embedding 作为用户编码器的初始查询
	UserEmbedInit UserEmbedMethod = "init"
	// UserEmbedCat 用户 embedding 叠加到最终用户向量
	UserEmbedCat UserEmbedMethod = "cat"
)

func (v UserEmbedMethod) Validate() error {
	switch v {
	case UserEmbedNone, UserEmbedInit, UserEmbedCat:
		return nil
	}
	return NewDomainError(ModuleModel, ErrorCodeInvalidInput,
		fmt.Sprintf("unknown user_embed_method %q", string(v)))
}

// EntropyMode 是熵辅助损失的系数模式。
type EntropyMode string

const (
	// EntropyModeStatic 固定系数 alpha
	EntropyModeStatic EntropyMode = "static"
	// EntropyModeDynamic 按熵/损失的数量级动态缩放，
	// 使两项保持在大致同一数量级
	EntropyModeDynamic EntropyMode = "dynamic"
)

func (v EntropyMode) Validate() error {
	switch v {
	case EntropyModeStatic, EntropyModeDynamic:
		return nil
	}
	return NewDomainError(ModuleTrainer, ErrorCodeInvalidInput,
		fmt.Sprintf("unknown entropy_mode %q", string(v)))
}
