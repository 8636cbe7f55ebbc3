// Package metric 提供新闻推荐常用的排序指标（AUC/MRR/nDCG/Accuracy）。
//
// 所有指标都实现 core.MetricFunc：输入截断后的 (labels, scores)，
// 输出 [0,1] 原始值；是否转百分比由调用方（训练器）决定。
package metric

import (
	"fmt"

	"github.com/rushteam/mindrs/core"
)

// Resolve 将配置中的指标名解析为指标函数列表。
// 未知指标名是构造期错误。
func Resolve(names []string) ([]core.MetricFunc, error) {
	funcs := make([]core.MetricFunc, 0, len(names))
	for _, name := range names {
		m, err := byName(name)
		if err != nil {
			return nil, err
		}
		funcs = append(funcs, m)
	}
	return funcs, nil
}

func byName(name string) (core.MetricFunc, error) {
	switch name {
	case "group_auc":
		return AUC{}, nil
	case "mean_mrr":
		return MRR{}, nil
	case "ndcg_5":
		return NDCG{K: 5}, nil
	case "ndcg_10":
		return NDCG{K: 10}, nil
	case "accuracy":
		return Accuracy{}, nil
	}
	return nil, core.NewDomainError(core.ModuleMetric, core.ErrorCodeNotFound,
		fmt.Sprintf("unknown metric %q", name))
}

// Names 返回默认的指标集合（与 MIND 榜单一致）。
func Names() []string {
	return []string{"group_auc", "mean_mrr", "ndcg_5", "ndcg_10"}
}
